package users

type CreateUserRequest struct {
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=6"`
	FirstName        string `json:"first_name" validate:"required,max=100"`
	PaternalLastName string `json:"paternal_last_name" validate:"required,max=100"`
	MaternalLastName string `json:"maternal_last_name" validate:"required,max=100"`
	RUT              string `json:"rut" validate:"required,max=12"`
	RoleID           int64  `json:"role_id" validate:"required,gt=0"`
	SchoolID         int64  `json:"school_id" validate:"required,gt=0"`
}

type UpdateUserRequest struct {
	Email            *string `json:"email,omitempty" validate:"omitempty,email"`
	Password         *string `json:"password,omitempty" validate:"omitempty,min=6"`
	FirstName        *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	PaternalLastName *string `json:"paternal_last_name,omitempty" validate:"omitempty,max=100"`
	MaternalLastName *string `json:"maternal_last_name,omitempty" validate:"omitempty,max=100"`
	RUT              *string `json:"rut,omitempty" validate:"omitempty,max=12"`
	RoleID           *int64  `json:"role_id,omitempty" validate:"omitempty,gt=0"`
	SchoolID         *int64  `json:"school_id,omitempty" validate:"omitempty,gt=0"`
	Active           *bool   `json:"active,omitempty"`
}

// Fields lists the JSON names of the fields the request intends to change,
// in the form the authorization gate expects.
func (r UpdateUserRequest) Fields() []string {
	var fields []string
	if r.Email != nil {
		fields = append(fields, "email")
	}
	if r.Password != nil {
		fields = append(fields, "password")
	}
	if r.FirstName != nil {
		fields = append(fields, "first_name")
	}
	if r.PaternalLastName != nil {
		fields = append(fields, "paternal_last_name")
	}
	if r.MaternalLastName != nil {
		fields = append(fields, "maternal_last_name")
	}
	if r.RUT != nil {
		fields = append(fields, "rut")
	}
	if r.RoleID != nil {
		fields = append(fields, "role_id")
	}
	if r.SchoolID != nil {
		fields = append(fields, "school_id")
	}
	if r.Active != nil {
		fields = append(fields, "active")
	}
	return fields
}

type ListUsersRequest struct {
	SchoolID *int64
	RoleID   *int64
	Search   string
	Page     int
	PerPage  int
}
