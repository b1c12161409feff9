package auth

import "time"

// Account is a user record as the identity layer sees it: credentials,
// role and school, enough to build a request principal.
type Account struct {
	ID               int64
	Email            string
	PasswordHash     string
	FirstName        string
	PaternalLastName string
	MaternalLastName string
	RUT              string
	Active           bool
	RoleID           int64
	RoleName         string
	SchoolID         *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
