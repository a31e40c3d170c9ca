// auth.go — обработчики /api/v1/auth endpoints: регистрация, вход, сброс пароля.
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/membergate/internal/api/middleware"
	"github.com/bigkaa/membergate/internal/domain/model"
	"github.com/bigkaa/membergate/internal/service"
	"github.com/bigkaa/membergate/internal/session"
)

// signUpRequest — тело POST /api/v1/auth/signup.
// Email — строка: проверка формата остаётся на стороне Keycloak.
type signUpRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"` //nolint:gosec // G117: пароль передаётся в Keycloak и не хранится
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	InviteCode string `json:"inviteCode"`
}

// signInRequest — тело POST /api/v1/auth/signin.
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // G117: пароль передаётся в Keycloak и не хранится
}

// passwordResetRequest — тело POST /api/v1/auth/password-reset.
type passwordResetRequest struct {
	Email string `json:"email"`
}

// sessionResponse — Identity и токены новой сессии.
type sessionResponse struct {
	Identity     identityResponse `json:"identity"`
	AccessToken  string           `json:"accessToken,omitempty"`
	RefreshToken string           `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time       `json:"expiresAt,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
}

func mapSession(identity *model.Identity, sess *session.Store) sessionResponse {
	resp := sessionResponse{Identity: mapIdentity(identity)}
	if creds := sess.Credentials(); creds != nil {
		resp.AccessToken = creds.AccessToken
		resp.RefreshToken = creds.RefreshToken
		if !creds.ExpiresAt.IsZero() {
			expiresAt := creds.ExpiresAt.UTC()
			resp.ExpiresAt = &expiresAt
		}
	}
	return resp
}

// SignUp — POST /api/v1/auth/signup.
// Регистрация по коду приглашения. Доступ: публичный.
func (h *APIHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess := h.newSession()
	result, err := h.accounts.WithSession(sess).SignUp(r.Context(), service.SignUpInput{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		InviteCode: req.InviteCode,
	})
	if err != nil {
		h.writeServiceError(w, "регистрация", err)
		return
	}

	resp := mapSession(result.Identity, sess)
	resp.Warnings = result.Warnings
	writeJSON(w, http.StatusCreated, resp)
}

// SignIn — POST /api/v1/auth/signin. Доступ: публичный.
func (h *APIHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess := h.newSession()
	identity, err := h.accounts.WithSession(sess).SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, "вход", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSession(identity, sess))
}

// PasswordReset — POST /api/v1/auth/password-reset. Доступ: публичный.
func (h *APIHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.accounts.WithSession(h.newSession()).ResetPassword(r.Context(), req.Email); err != nil {
		h.writeServiceError(w, "сброс пароля", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ResendVerification — POST /api/v1/auth/resend-verification.
// Письмо подтверждения текущему пользователю. Доступ: Bearer token.
func (h *APIHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	sess := h.newSession()
	if info := middleware.AuthFromContext(r.Context()); info != nil {
		sess.Adopt(&model.Credentials{Identity: info.Identity, AccessToken: info.AccessToken})
	}

	if err := h.accounts.WithSession(sess).ResendVerification(r.Context()); err != nil {
		h.writeServiceError(w, "отправка письма подтверждения", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
