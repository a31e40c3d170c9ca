// roles.go — определение итоговой роли пользователя.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bigkaa/membergate/internal/domain/model"
	"github.com/bigkaa/membergate/internal/domain/rbac"
	"github.com/bigkaa/membergate/internal/repository"
)

// RoleResolver вычисляет RoleDecision для Identity.
// Решение не кэшируется: профиль читается на каждый вызов.
type RoleResolver struct {
	profiles repository.ProfileRepository
	sources  []rbac.AuthoritySource
	logger   *slog.Logger
}

// DefaultSources — источники полномочий по умолчанию:
// роль в профиле, список admin ID, список email владельцев.
func DefaultSources(adminIDs, ownerEmails []string) []rbac.AuthoritySource {
	return []rbac.AuthoritySource{
		rbac.ProfileRole(),
		rbac.PrivilegedIDs(adminIDs, rbac.RoleAdmin),
		rbac.OwnerEmails(ownerEmails),
	}
}

// NewRoleResolver создаёт RoleResolver с заданными источниками полномочий.
func NewRoleResolver(profiles repository.ProfileRepository, sources []rbac.AuthoritySource, logger *slog.Logger) *RoleResolver {
	return &RoleResolver{
		profiles: profiles,
		sources:  sources,
		logger:   logger.With(slog.String("component", "role_resolver")),
	}
}

// Resolve возвращает решение о роли. Никогда не возвращает ошибку:
// сбой чтения профиля означает «профиля нет».
func (r *RoleResolver) Resolve(ctx context.Context, identity *model.Identity) model.RoleDecision {
	if identity == nil {
		return model.RoleDecision{}
	}
	return rbac.Decide(identity, r.Profile(ctx, identity), r.sources)
}

// Profile возвращает профиль Identity или nil, если его нет или чтение не удалось.
func (r *RoleResolver) Profile(ctx context.Context, identity *model.Identity) *model.Profile {
	if identity == nil {
		return nil
	}
	p, err := r.profiles.Get(ctx, identity.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			r.logger.Warn("Не удалось прочитать профиль",
				slog.String("user_id", identity.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	return p
}
