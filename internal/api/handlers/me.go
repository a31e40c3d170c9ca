// me.go — обработчики /api/v1/me endpoints: роль, допуск и профиль текущего пользователя.
// Доступ: Bearer token.
package handlers

import (
	"net/http"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/membergate/internal/api/errors"
	"github.com/bigkaa/membergate/internal/api/middleware"
	"github.com/bigkaa/membergate/internal/domain/model"
)

// roleResponse — решение о роли.
type roleResponse struct {
	Role     string               `json:"role"`
	Email    *openapi_types.Email `json:"email,omitempty"`
	IsMember bool                 `json:"isMember"`
	IsAdmin  bool                 `json:"isAdmin"`
	IsSuper  bool                 `json:"isSuper"`
	IsOwner  bool                 `json:"isOwner"`
}

// admissionResponse — решение о допуске.
type admissionResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// profileResponse — профиль участника.
type profileResponse struct {
	UID           string               `json:"uid"`
	Email         *openapi_types.Email `json:"email,omitempty"`
	FirstName     string               `json:"firstName"`
	LastName      string               `json:"lastName"`
	Role          string               `json:"role"`
	Active        bool                 `json:"active"`
	EmailVerified bool                 `json:"emailVerified"`
	CreatedAt     *time.Time           `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time           `json:"updatedAt,omitempty"`
}

func optionalEmail(s string) *openapi_types.Email {
	if s == "" {
		return nil
	}
	email := openapi_types.Email(s)
	return &email
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

// mapProfile конвертирует domain model в API type.
func mapProfile(p *model.Profile) profileResponse {
	return profileResponse{
		UID:           p.UID,
		Email:         optionalEmail(p.Email),
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Role:          p.Role,
		Active:        p.Active,
		EmailVerified: p.EmailVerified,
		CreatedAt:     optionalTime(p.CreatedAt),
		UpdatedAt:     optionalTime(p.UpdatedAt),
	}
}

// GetMyRole — GET /api/v1/me/role.
func (h *APIHandler) GetMyRole(w http.ResponseWriter, r *http.Request) {
	d := h.roles.Resolve(r.Context(), middleware.IdentityFromContext(r.Context()))
	writeJSON(w, http.StatusOK, roleResponse{
		Role:     d.Role,
		Email:    optionalEmail(d.Email),
		IsMember: d.IsMember,
		IsAdmin:  d.IsAdmin,
		IsSuper:  d.IsSuper,
		IsOwner:  d.IsOwner,
	})
}

// GetMyAdmission — GET /api/v1/me/admission.
// Отказ — не ошибка: всегда 200 с {ok, reason}.
func (h *APIHandler) GetMyAdmission(w http.ResponseWriter, r *http.Request) {
	a := h.admission.Check(r.Context(), middleware.IdentityFromContext(r.Context()))
	writeJSON(w, http.StatusOK, admissionResponse{OK: a.OK, Reason: string(a.Reason)})
}

// GetMyProfile — GET /api/v1/me/profile.
func (h *APIHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	p := h.roles.Profile(r.Context(), middleware.IdentityFromContext(r.Context()))
	if p == nil {
		apierrors.NotFound(w, "Профиль не найден")
		return
	}
	writeJSON(w, http.StatusOK, mapProfile(p))
}
