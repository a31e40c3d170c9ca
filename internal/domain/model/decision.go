package model

// RoleDecision — вычисленное решение об авторизации.
// Не хранится и не кэшируется: вычисляется заново на каждый запрос.
type RoleDecision struct {
	// Role — итоговая роль ("" если пользователь не вошёл)
	Role string
	// Email — email из профиля, иначе из Identity
	Email string
	// IsMember — роль не ниже member
	IsMember bool
	// IsAdmin — роль не ниже admin (superadmin и owner включены)
	IsAdmin bool
	// IsSuper — роль superadmin
	IsSuper bool
	// IsOwner — email входит в список владельцев
	IsOwner bool
}

// AdmissionReason — причина отказа в доступе.
type AdmissionReason string

const (
	// ReasonVerify — email не подтверждён (или пользователь не вошёл).
	ReasonVerify AdmissionReason = "verify"
	// ReasonInactive — профиль отсутствует или не активен.
	ReasonInactive AdmissionReason = "inactive"
)

// Admission — результат проверки допуска к закрытому контенту.
type Admission struct {
	OK     bool
	Reason AdmissionReason
}
