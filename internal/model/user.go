package model

// Staff roles.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// User is a staff account as stored in the `users` table.  Accounts
// are provisioned out of band (see cmd/staffctl) and are read-only for
// the rest of the service.
//
// Fields:
//	ID           – storage identifier (UUID).
//	Username     – unique login name.
//	PasswordHash – bcrypt hash of the password.
//	Name         – display name.
//	Role         – admin or staff.
type User struct {
	ID           string // users.id
	Username     string // users.username
	PasswordHash string // users.password_hash
	Name         string // users.name
	Role         string // users.role
}
