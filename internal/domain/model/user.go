// Пакет model — доменные модели membergate.
package model

import "time"

// Identity — субъект, выданный внешним Identity Provider (Keycloak).
// Для membergate только на чтение: создаётся и изменяется на стороне IdP.
type Identity struct {
	// ID — стабильный идентификатор пользователя в IdP (sub)
	ID string
	// Email — адрес электронной почты (может отсутствовать, меняется IdP)
	Email string
	// EmailVerified — подтверждён ли email (контролирует IdP)
	EmailVerified bool
}

// Credentials — сессионные данные IdP для Identity.
// Нужны для сохранения и восстановления сессии между перезапусками.
type Credentials struct {
	Identity     *Identity
	AccessToken  string
	RefreshToken string
	// ExpiresAt — время истечения access token
	ExpiresAt time.Time
}

// Profile — прикладная запись пользователя в хранилище документов.
// Один документ на Identity, ключ — Identity.ID.
type Profile struct {
	// UID — идентификатор Identity (ключ документа)
	UID string
	// Email — email на момент регистрации
	Email string
	// FirstName — имя
	FirstName string
	// LastName — фамилия
	LastName string
	// Role — нормализованная роль (member, admin, superadmin)
	Role string
	// Active — true только если в документе active строго равно true
	Active bool
	// EmailVerified — копия флага верификации, которую ведёт приложение
	EmailVerified bool
	// CreatedAt — время создания (серверное)
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления (серверное)
	UpdatedAt time.Time
}

// MemberFilter — фильтр списка участников.
type MemberFilter string

const (
	// FilterActive — только активные участники.
	FilterActive MemberFilter = "active"
	// FilterDisabled — только отключённые участники.
	FilterDisabled MemberFilter = "disabled"
	// FilterAll — все участники.
	FilterAll MemberFilter = "all"
)

// IsValid проверяет, является ли фильтр допустимым.
func (f MemberFilter) IsValid() bool {
	switch f {
	case FilterActive, FilterDisabled, FilterAll:
		return true
	}
	return false
}

// Matches проверяет, проходит ли участник фильтр.
func (f MemberFilter) Matches(p *Profile) bool {
	if p == nil {
		return false
	}
	switch f {
	case FilterActive:
		return p.Active
	case FilterDisabled:
		return !p.Active
	default:
		return true
	}
}
