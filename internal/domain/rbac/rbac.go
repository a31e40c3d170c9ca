// Пакет rbac — логика определения итоговой роли пользователя.
// Роль складывается из нескольких независимых источников полномочий
// (роль в профиле, список привилегированных ID, список владельцев).
// Правила: итоговая роль = max(роли всех источников).
// Источник может только повысить роль, но не понизить.
package rbac

import (
	"strings"

	"github.com/bigkaa/membergate/internal/domain/model"
)

// Роли в порядке возрастания привилегий.
const (
	RoleMember     = "member"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

// roleLegacyUser — устаревшее имя роли member.
const roleLegacyUser = "user"

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий.
var roleWeight = map[string]int{
	RoleMember:     1,
	RoleAdmin:      2,
	RoleSuperadmin: 3,
}

// Normalize приводит значение роли из профиля к допустимой роли.
// Регистр игнорируется, "user" считается member.
// Нераспознанное или пустое значение — наименее привилегированная роль.
func Normalize(raw string) string {
	role := strings.ToLower(strings.TrimSpace(raw))
	if role == roleLegacyUser {
		return RoleMember
	}
	if _, ok := roleWeight[role]; ok {
		return role
	}
	return RoleMember
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// AtLeast проверяет, что роль не ниже минимальной.
func AtLeast(role, minimum string) bool {
	w, ok := roleWeight[role]
	if !ok {
		return false
	}
	return w >= roleWeight[minimum]
}

// maxRole возвращает роль с максимальными привилегиями из двух.
func maxRole(a, b string) string {
	wa := roleWeight[a]
	wb := roleWeight[b]
	if wa >= wb {
		return a
	}
	return b
}

// Grant — вклад одного источника полномочий.
type Grant struct {
	// Role — выданная роль ("" — источник ничего не выдаёт)
	Role string
	// Owner — источник признал пользователя владельцем
	Owner bool
}

// AuthoritySource — независимый источник полномочий.
// Предикат над Identity × Profile; profile может быть nil.
type AuthoritySource interface {
	Grant(identity *model.Identity, profile *model.Profile) Grant
}

// SourceFunc — адаптер функции к AuthoritySource.
type SourceFunc func(identity *model.Identity, profile *model.Profile) Grant

// Grant реализует AuthoritySource.
func (f SourceFunc) Grant(identity *model.Identity, profile *model.Profile) Grant {
	return f(identity, profile)
}

// ProfileRole — роль, явно указанная в профиле.
func ProfileRole() AuthoritySource {
	return SourceFunc(func(_ *model.Identity, profile *model.Profile) Grant {
		if profile == nil {
			return Grant{}
		}
		return Grant{Role: Normalize(profile.Role)}
	})
}

// PrivilegedIDs выдаёт роль role пользователям из статического списка ID.
func PrivilegedIDs(ids []string, role string) AuthoritySource {
	set := toSet(ids)
	return SourceFunc(func(identity *model.Identity, _ *model.Profile) Grant {
		if identity == nil || !set[identity.ID] {
			return Grant{}
		}
		return Grant{Role: role}
	})
}

// OwnerEmails выдаёт superadmin и признак владельца по списку email.
// Email берётся из профиля, иначе из Identity.
func OwnerEmails(emails []string) AuthoritySource {
	set := toSet(emails)
	return SourceFunc(func(identity *model.Identity, profile *model.Profile) Grant {
		email := DeclaredEmail(identity, profile)
		if email == "" || !set[email] {
			return Grant{}
		}
		return Grant{Role: RoleSuperadmin, Owner: true}
	})
}

// DeclaredEmail возвращает email профиля, а при его отсутствии — email Identity.
func DeclaredEmail(identity *model.Identity, profile *model.Profile) string {
	if profile != nil && profile.Email != "" {
		return profile.Email
	}
	if identity != nil {
		return identity.Email
	}
	return ""
}

// Decide сворачивает источники полномочий в RoleDecision.
// Без Identity возвращает нулевое решение.
// Вошедший пользователь получает как минимум member.
func Decide(identity *model.Identity, profile *model.Profile, sources []AuthoritySource) model.RoleDecision {
	if identity == nil {
		return model.RoleDecision{}
	}

	role := RoleMember
	owner := false
	for _, src := range sources {
		g := src.Grant(identity, profile)
		if g.Role != "" && IsValidRole(g.Role) {
			role = maxRole(role, g.Role)
		}
		owner = owner || g.Owner
	}

	email := DeclaredEmail(identity, profile)
	return model.RoleDecision{
		Role:     role,
		Email:    email,
		IsMember: AtLeast(role, RoleMember),
		IsAdmin:  AtLeast(role, RoleAdmin),
		IsSuper:  AtLeast(role, RoleSuperadmin),
		IsOwner:  owner,
	}
}

// toSet конвертирует срез строк в map для быстрого поиска.
func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
