package authz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/edumetrics/edumetrics/internal/shared"
)

// Principal is the authenticated actor for one request, resolved once by
// the auth middleware and read-only afterwards.
type Principal struct {
	ID       int64
	Active   bool
	Role     Role
	SchoolID *int64
}

// TargetUser carries the fields of a user record the gate needs for
// hierarchy and institution checks.
type TargetUser struct {
	ID       int64
	Role     Role
	SchoolID *int64
}

// Resource is an owned record fetched for ownership checks. SchoolID is nil
// for resource types that carry no institution column.
type Resource struct {
	ID       int64
	OwnerID  int64
	SchoolID *int64
}

// UserDirectory looks up target users. Implementations return
// shared.ErrNotFound for missing ids; any other error is treated as an
// infrastructure failure and surfaced to the caller.
type UserDirectory interface {
	FindTarget(ctx context.Context, id int64) (*TargetUser, error)
}

// ResourceLookup resolves a resource id to its ownership attributes. Each
// resource type registers its own lookup because the owner column differs
// per table (teacher_id on evaluations, user_id on students, and so on).
type ResourceLookup func(ctx context.Context, id int64) (*Resource, error)

// Catalog maps resource types to their ownership lookups. Populated once
// during wiring, read-only afterwards.
type Catalog struct {
	lookups map[string]ResourceLookup
}

// NewCatalog builds an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{lookups: make(map[string]ResourceLookup)}
}

// Register installs the lookup for a resource type. Must not be called
// after the gate starts serving requests.
func (c *Catalog) Register(resourceType string, lookup ResourceLookup) {
	c.lookups[resourceType] = lookup
}

// selfServiceFields are the only fields a user may change on their own
// record. Everything else, notably role, school and active status, stays
// immutable through self-service no matter the requester's role.
var selfServiceFields = map[string]struct{}{
	"first_name":         {},
	"paternal_last_name": {},
	"maternal_last_name": {},
	"email":              {},
	"password":           {},
}

// Gate is the single authorization decision point. All checks are
// stateless; the only I/O is the target lookup in the user-management and
// ownership paths.
type Gate struct {
	users   UserDirectory
	catalog *Catalog
}

// NewGate constructs a Gate over the given collaborators.
func NewGate(users UserDirectory, catalog *Catalog) *Gate {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Gate{users: users, catalog: catalog}
}

// Authenticate denies requests without a resolved, active principal.
func (g *Gate) Authenticate(p *Principal) Decision {
	if p == nil {
		return Denied(ReasonUnauthenticated, "authentication required")
	}
	if !p.Active {
		return Denied(ReasonInactiveAccount, "account is inactive")
	}
	return Allowed()
}

// Authorize runs the authentication and permission steps.
func (g *Gate) Authorize(p *Principal, perm Permission) Decision {
	if d := g.Authenticate(p); !d.Allow {
		return d
	}
	if !HasPermission(p.Role, perm) {
		return Denied(ReasonPermission, fmt.Sprintf("missing permission %s", perm))
	}
	return Allowed()
}

// AuthorizeInstitution confines non-global principals to their own school.
// A nil schoolID on either side denies for non-global roles.
func (g *Gate) AuthorizeInstitution(p *Principal, schoolID *int64) Decision {
	if d := g.Authenticate(p); !d.Allow {
		return d
	}
	if p.Role.Global() {
		return Allowed()
	}
	if p.SchoolID == nil || schoolID == nil || *p.SchoolID != *schoolID {
		return Denied(ReasonCrossInstitution, "resource belongs to another school")
	}
	return Allowed()
}

// AuthorizeRoleAssignment checks that the principal may hand out the given
// role. Strict outranking blocks lateral grants.
func (g *Gate) AuthorizeRoleAssignment(p *Principal, target Role) Decision {
	if d := g.Authenticate(p); !d.Allow {
		return d
	}
	if !p.Role.CanManage(target) {
		return Denied(ReasonRoleRank, fmt.Sprintf("cannot assign role %s", target))
	}
	return Allowed()
}

// AuthorizeUserUpdate gates an update of the user record targetID. fields
// lists the field names the request intends to change.
//
// A principal updating its own record is a self-service operation: allowed
// without the users:update permission, but restricted to the self-service
// field set. Updating anyone else requires the permission, a strictly
// higher role rank than the target, and (for non-global roles) the same
// school as the target.
func (g *Gate) AuthorizeUserUpdate(ctx context.Context, p *Principal, targetID int64, fields []string) (Decision, error) {
	if d := g.Authenticate(p); !d.Allow {
		return d, nil
	}

	if p.ID == targetID {
		var denied []string
		for _, f := range fields {
			if _, ok := selfServiceFields[f]; !ok {
				denied = append(denied, f)
			}
		}
		if len(denied) > 0 {
			sort.Strings(denied)
			return Denied(ReasonField, fmt.Sprintf("fields not editable on own account: %s", strings.Join(denied, ", "))), nil
		}
		return Allowed(), nil
	}

	if !HasPermission(p.Role, PermUsersUpdate) {
		return Denied(ReasonPermission, fmt.Sprintf("missing permission %s", PermUsersUpdate)), nil
	}
	return g.manageTarget(ctx, p, targetID)
}

// AuthorizeUserDelete gates deletion of the user record targetID.
// Self-deletion is denied unconditionally, for every role.
func (g *Gate) AuthorizeUserDelete(ctx context.Context, p *Principal, targetID int64) (Decision, error) {
	if d := g.Authenticate(p); !d.Allow {
		return d, nil
	}
	if p.ID == targetID {
		return Denied(ReasonSelfDelete, "cannot delete own account"), nil
	}
	if !HasPermission(p.Role, PermUsersDelete) {
		return Denied(ReasonPermission, fmt.Sprintf("missing permission %s", PermUsersDelete)), nil
	}
	return g.manageTarget(ctx, p, targetID)
}

// AuthorizeUserRead gates reading another user's record. Reading one's own
// record is always allowed for an active principal.
func (g *Gate) AuthorizeUserRead(ctx context.Context, p *Principal, targetID int64) (Decision, error) {
	if d := g.Authenticate(p); !d.Allow {
		return d, nil
	}
	if p.ID == targetID {
		return Allowed(), nil
	}
	if !HasPermission(p.Role, PermUsersRead) {
		return Denied(ReasonPermission, fmt.Sprintf("missing permission %s", PermUsersRead)), nil
	}
	return g.manageTarget(ctx, p, targetID)
}

func (g *Gate) manageTarget(ctx context.Context, p *Principal, targetID int64) (Decision, error) {
	target, err := g.users.FindTarget(ctx, targetID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Denied(ReasonNotFound, "user not found"), nil
		}
		return Decision{}, fmt.Errorf("authz: find target user %d: %w", targetID, err)
	}
	if !p.Role.CanManage(target.Role) {
		return Denied(ReasonRoleRank, fmt.Sprintf("cannot manage a user with role %s", target.Role)), nil
	}
	if !p.Role.Global() {
		if p.SchoolID == nil || target.SchoolID == nil || *p.SchoolID != *target.SchoolID {
			return Denied(ReasonCrossInstitution, "user belongs to another school"), nil
		}
	}
	return Allowed(), nil
}

// AuthorizeOwnership gates access to an owned resource. Administrative
// roles skip the owner comparison but stay confined to their school when
// the resource carries one.
func (g *Gate) AuthorizeOwnership(ctx context.Context, p *Principal, resourceType string, id int64) (Decision, error) {
	if d := g.Authenticate(p); !d.Allow {
		return d, nil
	}

	lookup, ok := g.catalog.lookups[resourceType]
	if !ok {
		return Decision{}, fmt.Errorf("authz: no ownership lookup registered for %q", resourceType)
	}
	res, err := lookup(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Denied(ReasonNotFound, resourceType+" not found"), nil
		}
		return Decision{}, fmt.Errorf("authz: find %s %d: %w", resourceType, id, err)
	}

	if !p.Role.Global() && res.SchoolID != nil {
		if p.SchoolID == nil || *p.SchoolID != *res.SchoolID {
			return Denied(ReasonCrossInstitution, resourceType+" belongs to another school"), nil
		}
	}
	if p.Role.Administrative() {
		return Allowed(), nil
	}
	if res.OwnerID != p.ID {
		return Denied(ReasonNotOwner, "only the owner may manage this "+resourceType), nil
	}
	return Allowed(), nil
}
