// auth.go — JWT middleware аутентификации и проверка роли membergate.
// Bearer token проверяется через JWKS Keycloak, Identity помещается в контекст.
// Роль вычисляется отдельно (RequireAdmin) и только там, где она нужна.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/membergate/internal/api/errors"
	"github.com/bigkaa/membergate/internal/domain/model"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyAuth — данные аутентификации в контексте запроса.
	ContextKeyAuth contextKey = "auth"
	// ContextKeyDecision — решение о роли в контексте запроса.
	ContextKeyDecision contextKey = "role_decision"
)

// IdentityVerifier проверяет access token. Реализуется keycloak.Verifier.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*model.Identity, error)
}

// RoleResolver вычисляет решение о роли. Реализуется service.RoleResolver.
type RoleResolver interface {
	Resolve(ctx context.Context, identity *model.Identity) model.RoleDecision
}

// AuthInfo — аутентифицированный субъект запроса.
type AuthInfo struct {
	Identity    *model.Identity
	AccessToken string
}

// JWTAuth — middleware для JWT-аутентификации.
type JWTAuth struct {
	verifier IdentityVerifier
	logger   *slog.Logger
}

// NewJWTAuth создаёт JWT middleware.
func NewJWTAuth(verifier IdentityVerifier, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		verifier: verifier,
		logger:   logger.With(slog.String("component", "jwt_auth")),
	}
}

// Middleware возвращает HTTP middleware: извлекает Bearer token,
// проверяет его и помещает AuthInfo в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, msg := bearerToken(r)
			if msg != "" {
				apierrors.Unauthorized(w, msg)
				return
			}

			identity, err := j.verifier.Verify(r.Context(), tokenString)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAuth, &AuthInfo{
				Identity:    identity,
				AccessToken: tokenString,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken извлекает token из заголовка Authorization.
// Возвращает сообщение об ошибке, если заголовок некорректен.
func bearerToken(r *http.Request) (token, errMsg string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "Отсутствует заголовок Authorization"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "Неверный формат Authorization: ожидается Bearer <token>"
	}
	if parts[1] == "" {
		return "", "Пустой Bearer token"
	}
	return parts[1], ""
}

// RequireAdmin возвращает middleware, пропускающий только пользователей
// с ролью не ниже admin. Решение о роли сохраняется в контексте.
// Должен использоваться ПОСЛЕ JWTAuth.Middleware().
func RequireAdmin(roles RoleResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				apierrors.Unauthorized(w, "Отсутствует аутентификация в контексте")
				return
			}

			decision := roles.Resolve(r.Context(), identity)
			if !decision.IsAdmin {
				apierrors.Forbidden(w, "Недостаточно прав: требуется роль admin")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyDecision, &decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// --- Context helpers ---

// AuthFromContext извлекает AuthInfo из контекста запроса.
// Возвращает nil, если запрос не аутентифицирован.
func AuthFromContext(ctx context.Context) *AuthInfo {
	info, _ := ctx.Value(ContextKeyAuth).(*AuthInfo)
	return info
}

// IdentityFromContext извлекает Identity из контекста запроса.
func IdentityFromContext(ctx context.Context) *model.Identity {
	info := AuthFromContext(ctx)
	if info == nil {
		return nil
	}
	return info.Identity
}

// DecisionFromContext извлекает решение о роли, сохранённое RequireAdmin.
func DecisionFromContext(ctx context.Context) *model.RoleDecision {
	d, _ := ctx.Value(ContextKeyDecision).(*model.RoleDecision)
	return d
}
