package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/edumetrics/edumetrics/internal/auth"
	"github.com/edumetrics/edumetrics/internal/authz"
	"github.com/edumetrics/edumetrics/internal/shared"
)

// Service handles user management on top of the authorization gate.
type Service struct {
	repo Repository
	gate *authz.Gate
}

// NewService builds a Service instance.
func NewService(repo Repository, gate *authz.Gate) *Service {
	return &Service{repo: repo, gate: gate}
}

// List returns users visible to the principal. Non-global principals only
// see their own school regardless of the requested filter.
func (s *Service) List(ctx context.Context, p *authz.Principal, req ListUsersRequest) ([]User, int, error) {
	if !p.Role.Global() {
		req.SchoolID = p.SchoolID
	}
	return s.repo.List(ctx, req)
}

// Get fetches a user the principal may see.
func (s *Service) Get(ctx context.Context, p *authz.Principal, id int64) (*User, authz.Decision, error) {
	d, err := s.gate.AuthorizeUserRead(ctx, p, id)
	if err != nil || !d.Allow {
		return nil, d, err
	}
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, authz.Decision{}, err
	}
	return u, d, nil
}

// Create registers a new user. The principal must outrank the assigned
// role and, unless global, stay inside its own school.
func (s *Service) Create(ctx context.Context, p *authz.Principal, req CreateUserRequest) (*User, authz.Decision, error) {
	roleName, err := s.repo.RoleName(ctx, req.RoleID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, authz.Decision{}, fmt.Errorf("%w: role does not exist", shared.ErrValidation)
		}
		return nil, authz.Decision{}, err
	}
	role, err := authz.ParseRole(roleName)
	if err != nil {
		return nil, authz.Decision{}, fmt.Errorf("%w: role is not assignable", shared.ErrValidation)
	}
	if d := s.gate.AuthorizeRoleAssignment(p, role); !d.Allow {
		return nil, d, nil
	}
	if d := s.gate.AuthorizeInstitution(p, &req.SchoolID); !d.Allow {
		return nil, d, nil
	}
	exists, err := s.repo.SchoolExists(ctx, req.SchoolID)
	if err != nil {
		return nil, authz.Decision{}, err
	}
	if !exists {
		return nil, authz.Decision{}, fmt.Errorf("%w: school does not exist", shared.ErrValidation)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, authz.Decision{}, err
	}
	u := User{
		Email:            req.Email,
		FirstName:        req.FirstName,
		PaternalLastName: req.PaternalLastName,
		MaternalLastName: req.MaternalLastName,
		RUT:              req.RUT,
		RoleID:           req.RoleID,
		SchoolID:         &req.SchoolID,
	}
	id, err := s.repo.Create(ctx, u, hash)
	if err != nil {
		return nil, authz.Decision{}, err
	}
	created, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, authz.Decision{}, err
	}
	return created, authz.Allowed(), nil
}

// Update applies the requested changes to targetID after the gate approves
// the field set and the management relationship.
func (s *Service) Update(ctx context.Context, p *authz.Principal, targetID int64, req UpdateUserRequest) (*User, authz.Decision, error) {
	d, err := s.gate.AuthorizeUserUpdate(ctx, p, targetID, req.Fields())
	if err != nil || !d.Allow {
		return nil, d, err
	}

	updates := make(map[string]any)
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.PaternalLastName != nil {
		updates["paternal_last_name"] = *req.PaternalLastName
	}
	if req.MaternalLastName != nil {
		updates["maternal_last_name"] = *req.MaternalLastName
	}
	if req.RUT != nil {
		updates["rut"] = *req.RUT
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, authz.Decision{}, err
		}
		updates["password_hash"] = hash
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if req.SchoolID != nil {
		if d := s.gate.AuthorizeInstitution(p, req.SchoolID); !d.Allow {
			return nil, d, nil
		}
		updates["school_id"] = *req.SchoolID
	}
	if req.RoleID != nil {
		roleName, err := s.repo.RoleName(ctx, *req.RoleID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, authz.Decision{}, fmt.Errorf("%w: role does not exist", shared.ErrValidation)
			}
			return nil, authz.Decision{}, err
		}
		role, err := authz.ParseRole(roleName)
		if err != nil {
			return nil, authz.Decision{}, fmt.Errorf("%w: role is not assignable", shared.ErrValidation)
		}
		if d := s.gate.AuthorizeRoleAssignment(p, role); !d.Allow {
			return nil, d, nil
		}
		updates["role_id"] = *req.RoleID
	}

	if err := s.repo.Update(ctx, targetID, updates); err != nil {
		return nil, authz.Decision{}, err
	}
	updated, err := s.repo.Get(ctx, targetID)
	if err != nil {
		return nil, authz.Decision{}, err
	}
	return updated, authz.Allowed(), nil
}

// Delete removes targetID after the gate approves.
func (s *Service) Delete(ctx context.Context, p *authz.Principal, targetID int64) (authz.Decision, error) {
	d, err := s.gate.AuthorizeUserDelete(ctx, p, targetID)
	if err != nil || !d.Allow {
		return d, err
	}
	if err := s.repo.Delete(ctx, targetID); err != nil {
		return authz.Decision{}, err
	}
	return authz.Allowed(), nil
}
