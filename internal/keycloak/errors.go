package keycloak

import "errors"

// Ошибки провайдера идентификации. Передаются вызывающему коду без трансляции.
var (
	// ErrInvalidCredentials — неверный email или пароль.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDisabled — учётная запись отключена в Keycloak.
	ErrAccountDisabled = errors.New("account is disabled")
	// ErrAccountExists — пользователь с таким email уже существует.
	ErrAccountExists = errors.New("an account with this email already exists")
	// ErrWeakPassword — пароль не удовлетворяет политике realm.
	ErrWeakPassword = errors.New("password does not meet the password policy")
	// ErrUserNotFound — пользователь не найден.
	ErrUserNotFound = errors.New("no account found for this email")
	// ErrSessionExpired — refresh token недействителен или истёк.
	ErrSessionExpired = errors.New("session expired, please sign in again")
	// ErrInvalidToken — access token не прошёл проверку.
	ErrInvalidToken = errors.New("invalid or expired token")
)
