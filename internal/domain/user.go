package domain

type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleStudent, RoleTutor, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// User — проекция записи из внешнего сервиса аккаунтов; здесь только то,
// что нужно для авторизации.
type User struct {
	ID          int64
	Role        Role
	Banned      bool
	DisplayName *string
}
