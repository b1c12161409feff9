package users

import "time"

// User is a managed account record.
type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	PaternalLastName string    `json:"paternal_last_name"`
	MaternalLastName string    `json:"maternal_last_name"`
	RUT              string    `json:"rut"`
	Active           bool      `json:"active"`
	RoleID           int64     `json:"role_id"`
	RoleName         string    `json:"role"`
	SchoolID         *int64    `json:"school_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
