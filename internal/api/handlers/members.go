// members.go — обработчики /api/v1/members endpoints.
// Справочник участников и управление статусом/ролью. Доступ: admin.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/membergate/internal/api/errors"
	"github.com/bigkaa/membergate/internal/api/middleware"
	"github.com/bigkaa/membergate/internal/domain/model"
)

// memberListResponse — список участников.
type memberListResponse struct {
	Items  []profileResponse `json:"items"`
	Total  int               `json:"total"`
	Filter string            `json:"filter"`
}

// setActiveRequest — тело PUT /api/v1/members/{id}/active.
type setActiveRequest struct {
	Active *bool `json:"active"`
}

// setRoleRequest — тело PUT /api/v1/members/{id}/role.
type setRoleRequest struct {
	Role string `json:"role"`
}

// ListMembers — GET /api/v1/members?filter=active|disabled|all.
func (h *APIHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	filter := model.MemberFilter(r.URL.Query().Get("filter"))
	if filter == "" {
		filter = model.FilterAll
	}

	profiles, err := h.members.List(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, "получение списка участников", err)
		return
	}

	items := make([]profileResponse, len(profiles))
	for i, p := range profiles {
		items[i] = mapProfile(p)
	}
	writeJSON(w, http.StatusOK, memberListResponse{Items: items, Total: len(items), Filter: string(filter)})
}

// SetMemberActive — PUT /api/v1/members/{id}/active.
func (h *APIHandler) SetMemberActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Active == nil {
		apierrors.ValidationError(w, "Поле active обязательно")
		return
	}

	if err := h.members.SetActive(r.Context(), chi.URLParam(r, "id"), *req.Active); err != nil {
		h.writeServiceError(w, "изменение статуса участника", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetMemberRole — PUT /api/v1/members/{id}/role.
func (h *APIHandler) SetMemberRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var caller model.RoleDecision
	if d := middleware.DecisionFromContext(r.Context()); d != nil {
		caller = *d
	}

	if err := h.members.SetRole(r.Context(), caller, chi.URLParam(r, "id"), req.Role); err != nil {
		h.writeServiceError(w, "изменение роли участника", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
