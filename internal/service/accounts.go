// accounts.go — регистрация, вход и операции с учётной записью.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bigkaa/membergate/internal/domain/model"
	"github.com/bigkaa/membergate/internal/domain/rbac"
	"github.com/bigkaa/membergate/internal/repository"
)

// Сообщения локальной валидации.
const (
	msgSignUpRequired = "Email, password, first name, last name and invite code are required."
	msgSignInRequired = "Email and password are required."
	msgEmailRequired  = "Email is required."
)

// WarnLegacyMirror — предупреждение о незаписанной устаревшей копии профиля.
const WarnLegacyMirror = "legacy member record was not written"

// SessionStore — сессия пользователя у провайдера идентификации.
// Реализуется session.Store.
type SessionStore interface {
	Current() *model.Identity
	SignIn(ctx context.Context, email, password string) (*model.Identity, error)
	CreateAccount(ctx context.Context, email, password, firstName, lastName string) (*model.Identity, error)
	SendVerificationEmail(ctx context.Context, identity *model.Identity) error
	SendPasswordReset(ctx context.Context, email string) error
	SignOut(ctx context.Context) error
}

// SignUpInput — данные формы регистрации.
type SignUpInput struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	InviteCode string
}

// SignUpResult — результат регистрации.
type SignUpResult struct {
	Identity *model.Identity
	// Warnings — некритичные сбои (учётная запись создана)
	Warnings []string
}

// AccountService — сценарии регистрации и входа.
type AccountService struct {
	sessions SessionStore
	invites  *InviteService
	profiles repository.ProfileRepository
	logger   *slog.Logger
}

// NewAccountService создаёт AccountService поверх сессии sessions.
func NewAccountService(
	sessions SessionStore,
	invites *InviteService,
	profiles repository.ProfileRepository,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		sessions: sessions,
		invites:  invites,
		profiles: profiles,
		logger:   logger.With(slog.String("component", "account_service")),
	}
}

// WithSession возвращает копию сервиса, работающую с другой сессией.
// Сервер создаёт отдельную сессию на каждый запрос.
func (s *AccountService) WithSession(sessions SessionStore) *AccountService {
	c := *s
	c.sessions = sessions
	return &c
}

// SignUp регистрирует пользователя по коду приглашения.
//
// Порядок: локальная валидация, проверка приглашения, создание учётной
// записи у провайдера, создание профиля, устаревшая копия профиля
// (одна повторная попытка, сбой — предупреждение), письмо подтверждения
// (сбой только логируется).
func (s *AccountService) SignUp(ctx context.Context, in SignUpInput) (*SignUpResult, error) {
	result, err := s.signUp(ctx, in)
	label := "ok"
	if err != nil {
		label = "error"
	}
	signupsTotal.WithLabelValues(label).Inc()
	return result, err
}

func (s *AccountService) signUp(ctx context.Context, in SignUpInput) (*SignUpResult, error) {
	email := strings.TrimSpace(in.Email)
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	code := strings.TrimSpace(in.InviteCode)

	if err := requireFields(msgSignUpRequired,
		[]string{"email", "password", "firstName", "lastName", "inviteCode"},
		email, in.Password, firstName, lastName, code,
	); err != nil {
		return nil, err
	}

	if check := s.invites.Validate(ctx, code); !check.OK {
		return nil, &InviteError{Msg: check.Msg}
	}

	identity, err := s.sessions.CreateAccount(ctx, email, in.Password, firstName, lastName)
	if err != nil {
		return nil, err
	}

	profile := &model.Profile{
		UID:       identity.ID,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      rbac.RoleMember,
		Active:    true,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("создание профиля: %w", err)
	}

	result := &SignUpResult{Identity: identity}
	if s.profiles.LegacyMirrorEnabled() && !s.mirrorLegacy(ctx, profile) {
		result.Warnings = append(result.Warnings, WarnLegacyMirror)
	}

	if err := s.sessions.SendVerificationEmail(ctx, identity); err != nil {
		s.logger.Warn("Не удалось отправить письмо подтверждения",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("Пользователь зарегистрирован", slog.String("user_id", identity.ID))
	return result, nil
}

// mirrorLegacy пишет устаревшую копию профиля, повторяя запись один раз.
func (s *AccountService) mirrorLegacy(ctx context.Context, p *model.Profile) bool {
	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		if err = s.profiles.MirrorLegacy(ctx, p); err == nil {
			return true
		}
	}
	s.logger.Warn("Устаревшая копия профиля не записана",
		slog.String("user_id", p.UID),
		slog.String("error", err.Error()),
	)
	return false
}

// SignIn выполняет вход. Ошибки провайдера возвращаются без изменений.
func (s *AccountService) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	email = strings.TrimSpace(email)
	if err := requireFields(msgSignInRequired, []string{"email", "password"}, email, password); err != nil {
		return nil, err
	}
	return s.sessions.SignIn(ctx, email, password)
}

// ResetPassword отправляет письмо сброса пароля.
func (s *AccountService) ResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := requireFields(msgEmailRequired, []string{"email"}, email); err != nil {
		return err
	}
	return s.sessions.SendPasswordReset(ctx, email)
}

// ResendVerification повторно отправляет письмо подтверждения текущему пользователю.
func (s *AccountService) ResendVerification(ctx context.Context) error {
	identity := s.sessions.Current()
	if identity == nil {
		return ErrNotSignedIn
	}
	return s.sessions.SendVerificationEmail(ctx, identity)
}

// SignOut завершает текущую сессию.
func (s *AccountService) SignOut(ctx context.Context) error {
	return s.sessions.SignOut(ctx)
}
