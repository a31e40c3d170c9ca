// invite.go — проверка и администрирование кода приглашения.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/membergate/internal/domain/model"
	"github.com/bigkaa/membergate/internal/repository"
)

// Сообщения результата проверки приглашения.
const (
	MsgInviteRequired   = "Invite code required."
	MsgInviteNotFound   = "Invite not found."
	MsgSignupsDisabled  = "Sign-ups are disabled."
	MsgInviteInvalid    = "Invalid invite code."
	MsgInviteUnverified = "Could not verify invite code."
)

// invitePrefix — префикс сгенерированных кодов приглашения.
const invitePrefix = "F64-"

// InviteService — единственный многоразовый код приглашения.
// Использование кода не отслеживается: код действует, пока его не
// отключат или не сменят.
type InviteService struct {
	invites repository.InviteRepository
	logger  *slog.Logger
}

// NewInviteService создаёт InviteService.
func NewInviteService(invites repository.InviteRepository, logger *slog.Logger) *InviteService {
	return &InviteService{
		invites: invites,
		logger:  logger.With(slog.String("component", "invite_service")),
	}
}

// Validate проверяет код. Отказ возвращается значением, не ошибкой.
func (s *InviteService) Validate(ctx context.Context, code string) model.InviteCheck {
	result := s.validate(ctx, code)
	label := "ok"
	if !result.OK {
		label = "rejected"
	}
	inviteChecksTotal.WithLabelValues(label).Inc()
	return result
}

func (s *InviteService) validate(ctx context.Context, code string) model.InviteCheck {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.InviteCheck{Msg: MsgInviteRequired}
	}

	rec, err := s.invites.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.InviteCheck{Msg: MsgInviteNotFound}
		}
		s.logger.Warn("Не удалось прочитать приглашение", slog.String("error", err.Error()))
		return model.InviteCheck{Msg: MsgInviteUnverified}
	}
	if !rec.Enabled {
		return model.InviteCheck{Msg: MsgSignupsDisabled}
	}
	if strings.TrimSpace(rec.Code) != code {
		return model.InviteCheck{Msg: MsgInviteInvalid}
	}
	return model.InviteCheck{OK: true, Ref: rec.Ref}
}

// Current возвращает текущую запись приглашения. ErrNotFound, если её нет.
func (s *InviteService) Current(ctx context.Context) (*model.InviteRecord, error) {
	rec, err := s.invites.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Rotate заменяет код приглашения. Пустой code — сгенерировать новый.
// Флаг enabled сохраняется; для новой записи он true.
func (s *InviteService) Rotate(ctx context.Context, code string) (*model.InviteRecord, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		code = GenerateInviteCode()
	}

	enabled := true
	current, err := s.invites.Get(ctx)
	switch {
	case err == nil:
		enabled = current.Enabled
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("чтение приглашения: %w", err)
	}

	rec := &model.InviteRecord{Enabled: enabled, Code: code}
	if err := s.invites.Save(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("Код приглашения изменён", slog.Bool("enabled", enabled))
	return rec, nil
}

// SetEnabled включает или отключает регистрацию по приглашению.
func (s *InviteService) SetEnabled(ctx context.Context, enabled bool) error {
	if err := s.invites.SetEnabled(ctx, enabled); err != nil {
		return err
	}
	s.logger.Info("Регистрация по приглашению переключена", slog.Bool("enabled", enabled))
	return nil
}

// GenerateInviteCode возвращает новый код вида F64-XXXXXXXX.
func GenerateInviteCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return invitePrefix + strings.ToUpper(raw[:8])
}
