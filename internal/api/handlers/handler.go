// handler.go — основной обработчик API membergate.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/membergate/internal/api/errors"
	"github.com/bigkaa/membergate/internal/domain/model"
	"github.com/bigkaa/membergate/internal/keycloak"
	"github.com/bigkaa/membergate/internal/service"
	"github.com/bigkaa/membergate/internal/session"
)

// SessionFactory создаёт новую пустую сессию провайдера идентификации.
// Сервер не хранит сессии между запросами: одна сессия на запрос.
type SessionFactory func() *session.Store

// APIHandler — основной обработчик API membergate.
type APIHandler struct {
	health     *HealthHandler
	roles      *service.RoleResolver
	admission  *service.AdmissionGate
	invites    *service.InviteService
	accounts   *service.AccountService
	members    *service.MemberDirectory
	newSession SessionFactory
	logger     *slog.Logger
}

// Deps — зависимости APIHandler.
type Deps struct {
	Health     *HealthHandler
	Roles      *service.RoleResolver
	Admission  *service.AdmissionGate
	Invites    *service.InviteService
	Accounts   *service.AccountService
	Members    *service.MemberDirectory
	NewSession SessionFactory
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(deps Deps, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		health:     deps.Health,
		roles:      deps.Roles,
		admission:  deps.Admission,
		invites:    deps.Invites,
		accounts:   deps.Accounts,
		members:    deps.Members,
		newSession: deps.NewSession,
		logger:     logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- DTO ---

// identityResponse — Identity в ответах API.
type identityResponse struct {
	ID            string               `json:"id"`
	Email         *openapi_types.Email `json:"email,omitempty"`
	EmailVerified bool                 `json:"emailVerified"`
}

func mapIdentity(id *model.Identity) identityResponse {
	result := identityResponse{ID: id.ID, EmailVerified: id.EmailVerified}
	if id.Email != "" {
		email := openapi_types.Email(id.Email)
		result.Email = &email
	}
	return result
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeBody разбирает JSON тела запроса. При ошибке пишет 400 и возвращает false.
func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// writeServiceError переводит ошибку сервисного слоя или провайдера в HTTP-ответ.
// Сообщения ошибок валидации, приглашения и провайдера передаются без изменений.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	var validationErr *service.ValidationError
	var inviteErr *service.InviteError

	switch {
	case errors.As(err, &validationErr):
		apierrors.ValidationError(w, validationErr.Error())
	case errors.As(err, &inviteErr):
		apierrors.InviteRejected(w, inviteErr.Msg)
	case errors.Is(err, service.ErrInvalidRole), errors.Is(err, keycloak.ErrWeakPassword):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotSignedIn),
		errors.Is(err, keycloak.ErrInvalidCredentials),
		errors.Is(err, keycloak.ErrSessionExpired),
		errors.Is(err, keycloak.ErrInvalidToken):
		apierrors.Unauthorized(w, err.Error())
	case errors.Is(err, keycloak.ErrAccountDisabled), errors.Is(err, service.ErrSuperadminRequired):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, keycloak.ErrAccountExists):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrNotFound), errors.Is(err, keycloak.ErrUserNotFound):
		apierrors.NotFound(w, err.Error())
	default:
		h.logger.Error("Ошибка обработки запроса",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка: "+op)
	}
}
