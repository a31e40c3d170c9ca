// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrInvalidRole — некорректная роль.
	ErrInvalidRole = errors.New("некорректная роль: допустимые значения — member, admin, superadmin")
	// ErrSuperadminRequired — роль superadmin назначает только superadmin.
	ErrSuperadminRequired = errors.New("назначить роль superadmin может только superadmin")
	// ErrNotSignedIn — операция требует вошедшего пользователя.
	ErrNotSignedIn = errors.New("You must be signed in.")
)

// ValidationError — локальная ошибка валидации, возникает до любых
// обращений к провайдеру и хранилищу.
type ValidationError struct {
	// Fields — обязательные поля операции
	Fields []string
	// Msg — сообщение для пользователя
	Msg string
}

func (e *ValidationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "required: " + strings.Join(e.Fields, ", ")
}

// InviteError — отказ проверки кода приглашения при регистрации.
// Msg — сообщение InviteCheck без изменений.
type InviteError struct {
	Msg string
}

func (e *InviteError) Error() string {
	return e.Msg
}

// requireFields возвращает ValidationError, если хотя бы одно значение пустое.
// В сообщении перечисляются все обязательные поля.
func requireFields(msg string, fields []string, values ...string) error {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Fields: fields, Msg: msg}
		}
	}
	return nil
}
