// admission.go — допуск к закрытому контенту: email подтверждён и профиль активен.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bigkaa/membergate/internal/domain/model"
	"github.com/bigkaa/membergate/internal/repository"
)

// AdmissionGate проверяет допуск пользователя. Только чтение.
type AdmissionGate struct {
	profiles repository.ProfileRepository
	logger   *slog.Logger
}

// NewAdmissionGate создаёт AdmissionGate.
func NewAdmissionGate(profiles repository.ProfileRepository, logger *slog.Logger) *AdmissionGate {
	return &AdmissionGate{
		profiles: profiles,
		logger:   logger.With(slog.String("component", "admission_gate")),
	}
}

// Check возвращает решение о допуске.
// Подтверждение email проверяется первым и не требует чтения хранилища.
// Затем ровно одно чтение профиля: допуск только при active строго true.
func (g *AdmissionGate) Check(ctx context.Context, identity *model.Identity) model.Admission {
	result := g.check(ctx, identity)
	label := "ok"
	if !result.OK {
		label = string(result.Reason)
	}
	admissionChecksTotal.WithLabelValues(label).Inc()
	return result
}

func (g *AdmissionGate) check(ctx context.Context, identity *model.Identity) model.Admission {
	if identity == nil || !identity.EmailVerified {
		return model.Admission{Reason: model.ReasonVerify}
	}

	p, err := g.profiles.Get(ctx, identity.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			g.logger.Warn("Не удалось прочитать профиль при проверке допуска",
				slog.String("user_id", identity.ID),
				slog.String("error", err.Error()),
			)
		}
		return model.Admission{Reason: model.ReasonInactive}
	}
	if !p.Active {
		return model.Admission{Reason: model.ReasonInactive}
	}
	return model.Admission{OK: true}
}
