// provider.go — IdentityProvider: операции над учётными записями пользователей
// поверх Client (token endpoint + Admin REST API) и Verifier (JWKS).
package keycloak

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/membergate/internal/domain/model"
)

// TokenVerifier проверяет access token и возвращает Identity.
// Реализуется *Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*model.Identity, error)
}

// IdentityProvider — провайдер идентификации на Keycloak.
type IdentityProvider struct {
	client   *Client
	verifier TokenVerifier
	logger   *slog.Logger

	// now — источник времени (для тестов).
	now func() time.Time
}

// NewIdentityProvider создаёт провайдер идентификации.
func NewIdentityProvider(client *Client, verifier TokenVerifier, logger *slog.Logger) *IdentityProvider {
	return &IdentityProvider{
		client:   client,
		verifier: verifier,
		logger:   logger.With(slog.String("component", "identity_provider")),
		now:      time.Now,
	}
}

// SignInWithPassword выполняет вход по email и паролю.
func (p *IdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*model.Credentials, error) {
	token, err := p.client.PasswordGrant(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return p.credentials(ctx, token)
}

// CreateAccount создаёт пользователя и сразу выполняет вход под ним.
func (p *IdentityProvider) CreateAccount(ctx context.Context, email, password, firstName, lastName string) (*model.Credentials, error) {
	id, err := p.client.CreateUser(ctx, email, password, firstName, lastName)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Пользователь создан в Keycloak", slog.String("user_id", id))

	creds, err := p.SignInWithPassword(ctx, email, password)
	if err == nil {
		return creds, nil
	}

	// Realm с обязательным подтверждением email отклоняет вход до подтверждения
	// («Account is not fully set up»). Учётная запись уже создана: возвращается
	// Identity без токенов, чтобы регистрация могла продолжиться.
	p.logger.Warn("Вход после создания пользователя не выполнен",
		slog.String("user_id", id),
		slog.String("error", err.Error()),
	)
	return &model.Credentials{Identity: p.createdIdentity(ctx, id, email)}, nil
}

// createdIdentity читает созданного пользователя через Admin API.
// Если чтение не удалось, Identity строится из id и email регистрации.
func (p *IdentityProvider) createdIdentity(ctx context.Context, id, email string) *model.Identity {
	user, err := p.client.GetUser(ctx, id)
	if err != nil {
		p.logger.Warn("Не удалось прочитать созданного пользователя",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
		return &model.Identity{ID: id, Email: email}
	}
	identity := &model.Identity{ID: user.ID, Email: user.Email, EmailVerified: user.EmailVerified}
	if identity.ID == "" {
		identity.ID = id
	}
	if identity.Email == "" {
		identity.Email = email
	}
	return identity
}

// SendVerificationEmail отправляет письмо подтверждения email.
func (p *IdentityProvider) SendVerificationEmail(ctx context.Context, identity *model.Identity) error {
	if identity == nil || identity.ID == "" {
		return ErrUserNotFound
	}
	return p.client.SendVerifyEmail(ctx, identity.ID)
}

// SendPasswordReset отправляет письмо сброса пароля.
func (p *IdentityProvider) SendPasswordReset(ctx context.Context, email string) error {
	user, err := p.client.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	return p.client.ExecuteActionsEmail(ctx, user.ID, []string{"UPDATE_PASSWORD"})
}

// SignOut завершает сессию в Keycloak.
// Без refresh token завершать нечего.
func (p *IdentityProvider) SignOut(ctx context.Context, creds *model.Credentials) error {
	if creds == nil || creds.RefreshToken == "" {
		return nil
	}
	return p.client.Logout(ctx, creds.RefreshToken)
}

// Refresh восстанавливает сессию по refresh token.
func (p *IdentityProvider) Refresh(ctx context.Context, refreshToken string) (*model.Credentials, error) {
	if refreshToken == "" {
		return nil, ErrSessionExpired
	}
	token, err := p.client.RefreshGrant(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return p.credentials(ctx, token)
}

// credentials строит Credentials из ответа token endpoint.
func (p *IdentityProvider) credentials(ctx context.Context, token *TokenResponse) (*model.Credentials, error) {
	identity, err := p.verifier.Verify(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("проверка access token: %w", err)
	}
	return &model.Credentials{
		Identity:     identity,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.ExpiresAt(p.now()),
	}, nil
}
