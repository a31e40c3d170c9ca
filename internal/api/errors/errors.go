// Пакет errors — ответы API membergate с ошибкой.
// Тело всегда одного вида: {"error": {"code": "...", "message": "..."}},
// HTTP-статус определяется кодом.
package errors

import (
	"encoding/json"
	"net/http"
)

// Code — машиночитаемый код ошибки.
type Code string

const (
	CodeValidationError Code = "VALIDATION_ERROR"
	CodeInviteRejected  Code = "INVITE_REJECTED"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInternalError   Code = "INTERNAL_ERROR"
)

var statusByCode = map[Code]int{
	CodeValidationError: http.StatusBadRequest,
	CodeInviteRejected:  http.StatusBadRequest,
	CodeUnauthorized:    http.StatusUnauthorized,
	CodeForbidden:       http.StatusForbidden,
	CodeNotFound:        http.StatusNotFound,
	CodeConflict:        http.StatusConflict,
	CodeInternalError:   http.StatusInternalServerError,
}

// Status возвращает HTTP-статус для кода. Неизвестный код — 500.
func (c Code) Status() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

type envelope struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Write отправляет ошибку с кодом code и статусом code.Status().
func Write(w http.ResponseWriter, code Code, message string) {
	var body envelope
	body.Error.Code = code
	body.Error.Message = message

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code.Status())
	_ = json.NewEncoder(w).Encode(body)
}

// ValidationError — некорректные поля запроса.
func ValidationError(w http.ResponseWriter, message string) {
	Write(w, CodeValidationError, message)
}

// InviteRejected — код приглашения не принят при регистрации.
func InviteRejected(w http.ResponseWriter, message string) {
	Write(w, CodeInviteRejected, message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Write(w, CodeUnauthorized, message)
}

func Forbidden(w http.ResponseWriter, message string) {
	Write(w, CodeForbidden, message)
}

func NotFound(w http.ResponseWriter, message string) {
	Write(w, CodeNotFound, message)
}

// Conflict — аккаунт с таким email уже есть.
func Conflict(w http.ResponseWriter, message string) {
	Write(w, CodeConflict, message)
}

// InternalError — сбой хранилища или провайдера; детали только в логе.
func InternalError(w http.ResponseWriter, message string) {
	Write(w, CodeInternalError, message)
}
