// members.go — справочник участников: список с фильтром и управление статусом.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/bigkaa/membergate/internal/domain/model"
	"github.com/bigkaa/membergate/internal/domain/rbac"
	"github.com/bigkaa/membergate/internal/repository"
)

const (
	msgMemberIDRequired = "Member id is required."
	msgInvalidFilter    = "Filter must be one of: active, disabled, all."
)

// MemberDirectory — список участников и изменение их статуса.
type MemberDirectory struct {
	profiles repository.ProfileRepository
	locale   language.Tag
	logger   *slog.Logger
}

// NewMemberDirectory создаёт справочник. locale — BCP 47 тег для сортировки
// имён; некорректный тег заменяется на английский.
func NewMemberDirectory(profiles repository.ProfileRepository, locale string, logger *slog.Logger) *MemberDirectory {
	l := logger.With(slog.String("component", "member_directory"))
	tag, err := language.Parse(locale)
	if err != nil {
		l.Warn("Некорректная локаль сортировки, используется en",
			slog.String("locale", locale),
			slog.String("error", err.Error()),
		)
		tag = language.English
	}
	return &MemberDirectory{profiles: profiles, locale: tag, logger: l}
}

// List возвращает участников, отсортированных по "lastName firstName".
// Основной путь — индексированный запрос; при любой его ошибке выполняется
// полный скан коллекции с фильтрацией на клиенте.
func (d *MemberDirectory) List(ctx context.Context, filter model.MemberFilter) ([]*model.Profile, error) {
	if filter == "" {
		filter = model.FilterAll
	}
	if !filter.IsValid() {
		return nil, &ValidationError{Fields: []string{"filter"}, Msg: msgInvalidFilter}
	}

	profiles, err := d.profiles.Query(ctx, filter)
	if err != nil {
		d.logger.Warn("Индексированный запрос не выполнен, полный скан",
			slog.String("filter", string(filter)),
			slog.String("error", err.Error()),
		)
		directoryFallbacksTotal.Inc()

		profiles, err = d.profiles.Scan(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("чтение списка участников: %w", err)
		}
	}

	d.sortByName(profiles)
	return profiles, nil
}

// sortByName упорядочивает профили по "lastName firstName" с учётом локали.
// Сортировка устойчивая: равные ключи сохраняют порядок хранилища.
func (d *MemberDirectory) sortByName(profiles []*model.Profile) {
	c := collate.New(d.locale)
	keys := make(map[*model.Profile]string, len(profiles))
	for _, p := range profiles {
		keys[p] = p.LastName + " " + p.FirstName
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		return c.CompareString(keys[profiles[i]], keys[profiles[j]]) < 0
	})
}

// SetActive включает или отключает участника. Последняя запись побеждает.
func (d *MemberDirectory) SetActive(ctx context.Context, id string, active bool) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &ValidationError{Fields: []string{"id"}, Msg: msgMemberIDRequired}
	}
	if err := d.profiles.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	d.logger.Info("Статус участника изменён",
		slog.String("user_id", id),
		slog.Bool("active", active),
	)
	return nil
}

// SetRole назначает участнику роль из закрытого набора.
// caller — решение о роли администратора, выполняющего операцию.
func (d *MemberDirectory) SetRole(ctx context.Context, caller model.RoleDecision, id, role string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &ValidationError{Fields: []string{"id"}, Msg: msgMemberIDRequired}
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if !rbac.IsValidRole(role) {
		return ErrInvalidRole
	}
	if role == rbac.RoleSuperadmin && !caller.IsSuper {
		return ErrSuperadminRequired
	}
	if err := d.profiles.SetRole(ctx, id, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	d.logger.Info("Роль участника изменена",
		slog.String("user_id", id),
		slog.String("role", role),
	)
	return nil
}
