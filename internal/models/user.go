package models

// User presence states.
const (
	StatusOnline  = "ONLINE"
	StatusOffline = "OFFLINE"
)

// RoleUser is the role assigned to every registered account.
const RoleUser = "USER"

// User represents a registered account.
type User struct {
	ID       int    `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Password string `db:"password" json:"-"`
	Role     string `db:"role" json:"role"`
	Status   string `db:"status" json:"status"`
}
