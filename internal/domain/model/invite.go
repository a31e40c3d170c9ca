package model

// InviteRecord — единственная запись приглашения (invites/primary).
// Код многоразовый: использование не отслеживается, код действует,
// пока его не отключат или не сменят.
type InviteRecord struct {
	// Enabled — разрешены ли регистрации (true, если поле отсутствует)
	Enabled bool
	// Code — секретный код приглашения
	Code string
	// Ref — путь документа приглашения в хранилище (collection/id)
	Ref string
}

// InviteCheck — результат проверки кода приглашения.
// Ошибки приглашения возвращаются как значение, а не как error.
type InviteCheck struct {
	OK  bool
	Msg string
	// Ref — путь документа приглашения; заполнен только при OK.
	Ref string
}
