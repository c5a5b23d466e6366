package model

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleStaff UserRole = "staff"
)

// Principal is the caller identity extracted from an access token.
type Principal struct {
	Subject string
	Role    UserRole
}

func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleAdmin
}
