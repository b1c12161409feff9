package authz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/edumetrics/edumetrics/internal/shared"
)

type stubDirectory struct {
	users map[int64]*TargetUser
	err   error
	calls int
}

func (s *stubDirectory) FindTarget(ctx context.Context, id int64) (*TargetUser, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func schoolID(id int64) *int64 { return &id }

func principal(id int64, role Role, school *int64) *Principal {
	return &Principal{ID: id, Active: true, Role: role, SchoolID: school}
}

func newTestGate(dir *stubDirectory, resources map[int64]*Resource) *Gate {
	catalog := NewCatalog()
	catalog.Register("evaluation", func(ctx context.Context, id int64) (*Resource, error) {
		res, ok := resources[id]
		if !ok {
			return nil, shared.ErrNotFound
		}
		return res, nil
	})
	return NewGate(dir, catalog)
}

func TestAuthenticate(t *testing.T) {
	g := NewGate(&stubDirectory{}, nil)

	if d := g.Authenticate(nil); d.Allow || d.Reason != ReasonUnauthenticated {
		t.Fatalf("nil principal: %+v", d)
	}
	inactive := &Principal{ID: 1, Active: false, Role: RoleSuperadmin}
	if d := g.Authenticate(inactive); d.Allow || d.Reason != ReasonInactiveAccount {
		t.Fatalf("inactive principal: %+v", d)
	}
	if d := g.Authenticate(principal(1, RoleStudent, schoolID(1))); !d.Allow {
		t.Fatalf("active principal denied: %+v", d)
	}
}

func TestInactivePrincipalDeniedEverywhere(t *testing.T) {
	g := newTestGate(&stubDirectory{users: map[int64]*TargetUser{}}, nil)
	p := &Principal{ID: 1, Active: false, Role: RoleSuperadmin, SchoolID: nil}

	if d := g.Authorize(p, PermUsersDelete); d.Allow || d.Reason != ReasonInactiveAccount {
		t.Errorf("Authorize: %+v", d)
	}
	if d, _ := g.AuthorizeUserUpdate(context.Background(), p, 1, []string{"email"}); d.Allow || d.Reason != ReasonInactiveAccount {
		t.Errorf("AuthorizeUserUpdate: %+v", d)
	}
	if d, _ := g.AuthorizeUserDelete(context.Background(), p, 2); d.Allow || d.Reason != ReasonInactiveAccount {
		t.Errorf("AuthorizeUserDelete: %+v", d)
	}
}

func TestAuthorizePermissionGate(t *testing.T) {
	g := NewGate(&stubDirectory{}, nil)

	if d := g.Authorize(principal(1, RoleAdmin, schoolID(1)), PermUsersDelete); !d.Allow {
		t.Fatalf("admin users:delete denied: %+v", d)
	}
	d := g.Authorize(principal(1, RoleTeacher, schoolID(1)), PermUsersDelete)
	if d.Allow || d.Reason != ReasonPermission {
		t.Fatalf("teacher users:delete: %+v", d)
	}
	if !strings.Contains(d.Detail, string(PermUsersDelete)) {
		t.Fatalf("denial should name the missing permission: %q", d.Detail)
	}
}

func TestTeacherDeniedBeforeHierarchyChecks(t *testing.T) {
	dir := &stubDirectory{users: map[int64]*TargetUser{
		2: {ID: 2, Role: RoleStudent, SchoolID: schoolID(1)},
	}}
	g := newTestGate(dir, nil)

	d, err := g.AuthorizeUserDelete(context.Background(), principal(1, RoleTeacher, schoolID(1)), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allow || d.Reason != ReasonPermission {
		t.Fatalf("want FORBIDDEN_PERMISSION, got %+v", d)
	}
	if dir.calls != 0 {
		t.Fatalf("permission denial must short-circuit before the target lookup")
	}
}

func TestInstitutionScoping(t *testing.T) {
	g := NewGate(&stubDirectory{}, nil)

	// Superadmin bypasses scoping even with mismatched ids.
	if d := g.AuthorizeInstitution(principal(1, RoleSuperadmin, nil), schoolID(9)); !d.Allow {
		t.Fatalf("superadmin should bypass scoping: %+v", d)
	}
	if d := g.AuthorizeInstitution(principal(1, RoleAdmin, schoolID(1)), schoolID(1)); !d.Allow {
		t.Fatalf("same school denied: %+v", d)
	}
	if d := g.AuthorizeInstitution(principal(1, RoleAdmin, schoolID(1)), schoolID(2)); d.Allow || d.Reason != ReasonCrossInstitution {
		t.Fatalf("cross school: %+v", d)
	}
	if d := g.AuthorizeInstitution(principal(1, RoleAdmin, nil), schoolID(2)); d.Allow {
		t.Fatalf("admin without school must be denied")
	}
}

func TestUserDeleteScenario(t *testing.T) {
	dir := &stubDirectory{users: map[int64]*TargetUser{
		10: {ID: 10, Role: RoleTeacher, SchoolID: schoolID(1)},
		20: {ID: 20, Role: RoleTeacher, SchoolID: schoolID(2)},
	}}
	g := newTestGate(dir, nil)
	admin := principal(1, RoleAdmin, schoolID(1))

	d, err := g.AuthorizeUserDelete(context.Background(), admin, 10)
	if err != nil || !d.Allow {
		t.Fatalf("admin deleting teacher in own school: %+v err=%v", d, err)
	}

	d, err = g.AuthorizeUserDelete(context.Background(), admin, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allow || d.Reason != ReasonCrossInstitution {
		t.Fatalf("admin deleting teacher in other school: %+v", d)
	}
}

func TestUserDeleteRankChecks(t *testing.T) {
	dir := &stubDirectory{users: map[int64]*TargetUser{
		2: {ID: 2, Role: RoleAdmin, SchoolID: schoolID(1)},
		3: {ID: 3, Role: RoleSuperadmin, SchoolID: nil},
	}}
	g := newTestGate(dir, nil)
	admin := principal(1, RoleAdmin, schoolID(1))

	// Lateral management is blocked: Admin on Admin.
	d, _ := g.AuthorizeUserDelete(context.Background(), admin, 2)
	if d.Allow || d.Reason != ReasonRoleRank {
		t.Fatalf("admin deleting admin: %+v", d)
	}
	d, _ = g.AuthorizeUserDelete(context.Background(), admin, 3)
	if d.Allow || d.Reason != ReasonRoleRank {
		t.Fatalf("admin deleting superadmin: %+v", d)
	}
}

func TestSelfDeleteAlwaysDenied(t *testing.T) {
	g := newTestGate(&stubDirectory{}, nil)
	for _, role := range []Role{RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher, RoleStudent} {
		d, err := g.AuthorizeUserDelete(context.Background(), principal(7, role, schoolID(1)), 7)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", role, err)
		}
		if d.Allow || d.Reason != ReasonSelfDelete {
			t.Errorf("%s self-delete: %+v", role, d)
		}
	}
}

func TestSelfServiceUpdate(t *testing.T) {
	g := newTestGate(&stubDirectory{}, nil)
	student := principal(42, RoleStudent, schoolID(1))

	// Permitted field on own record, no users:update permission needed.
	d, err := g.AuthorizeUserUpdate(context.Background(), student, 42, []string{"email"})
	if err != nil || !d.Allow {
		t.Fatalf("student self email update: %+v err=%v", d, err)
	}

	d, _ = g.AuthorizeUserUpdate(context.Background(), student, 42, []string{"active", "role_id"})
	if d.Allow || d.Reason != ReasonField {
		t.Fatalf("restricted fields: %+v", d)
	}
	if !strings.Contains(d.Detail, "active") || !strings.Contains(d.Detail, "role_id") {
		t.Fatalf("denial should name offending fields: %q", d.Detail)
	}

	// Restricted fields deny regardless of acting role.
	super := principal(9, RoleSuperadmin, nil)
	d, _ = g.AuthorizeUserUpdate(context.Background(), super, 9, []string{"role_id", "school_id"})
	if d.Allow || d.Reason != ReasonField {
		t.Fatalf("superadmin self role change: %+v", d)
	}

	// Mixed permitted + forbidden still denies.
	d, _ = g.AuthorizeUserUpdate(context.Background(), student, 42, []string{"email", "school_id"})
	if d.Allow || d.Reason != ReasonField {
		t.Fatalf("mixed field set: %+v", d)
	}
}

func TestUpdateOtherUserRequiresPermissionAndRank(t *testing.T) {
	dir := &stubDirectory{users: map[int64]*TargetUser{
		5: {ID: 5, Role: RoleTeacher, SchoolID: schoolID(1)},
	}}
	g := newTestGate(dir, nil)

	d, _ := g.AuthorizeUserUpdate(context.Background(), principal(42, RoleStudent, schoolID(1)), 5, []string{"email"})
	if d.Allow || d.Reason != ReasonPermission {
		t.Fatalf("student updating someone else: %+v", d)
	}

	d, err := g.AuthorizeUserUpdate(context.Background(), principal(1, RoleUTP, schoolID(1)), 5, []string{"email", "active"})
	if err != nil || !d.Allow {
		t.Fatalf("UTP updating teacher: %+v err=%v", d, err)
	}

	d, _ = g.AuthorizeUserUpdate(context.Background(), principal(1, RoleUTP, schoolID(2)), 5, []string{"email"})
	if d.Allow || d.Reason != ReasonCrossInstitution {
		t.Fatalf("cross-school update: %+v", d)
	}
}

func TestRoleAssignmentBlocksLateralGrant(t *testing.T) {
	g := newTestGate(&stubDirectory{}, nil)
	admin := principal(1, RoleAdmin, schoolID(1))

	if d := g.AuthorizeRoleAssignment(admin, RoleTeacher); !d.Allow {
		t.Fatalf("admin assigning Teacher: %+v", d)
	}
	d := g.AuthorizeRoleAssignment(admin, RoleAdmin)
	if d.Allow || d.Reason != ReasonRoleRank {
		t.Fatalf("admin assigning Admin: %+v", d)
	}
}

func TestTargetUserNotFound(t *testing.T) {
	g := newTestGate(&stubDirectory{users: map[int64]*TargetUser{}}, nil)
	d, err := g.AuthorizeUserDelete(context.Background(), principal(1, RoleAdmin, schoolID(1)), 99)
	if err != nil {
		t.Fatalf("missing target is a denial, not an error: %v", err)
	}
	if d.Allow || d.Reason != ReasonNotFound {
		t.Fatalf("missing user: %+v", d)
	}
}

func TestDirectoryFailureIsAnError(t *testing.T) {
	boom := errors.New("connection refused")
	g := newTestGate(&stubDirectory{err: boom}, nil)
	_, err := g.AuthorizeUserDelete(context.Background(), principal(1, RoleAdmin, schoolID(1)), 99)
	if !errors.Is(err, boom) {
		t.Fatalf("storage failure must surface as an error, got %v", err)
	}
}

func TestOwnershipGate(t *testing.T) {
	resources := map[int64]*Resource{
		100: {ID: 100, OwnerID: 7, SchoolID: schoolID(1)},
	}
	g := newTestGate(&stubDirectory{}, resources)
	ctx := context.Background()

	// Owner below the administrative tier.
	d, err := g.AuthorizeOwnership(ctx, principal(7, RoleTeacher, schoolID(1)), "evaluation", 100)
	if err != nil || !d.Allow {
		t.Fatalf("owner teacher: %+v err=%v", d, err)
	}

	// Non-owner teacher in the same school.
	d, _ = g.AuthorizeOwnership(ctx, principal(8, RoleTeacher, schoolID(1)), "evaluation", 100)
	if d.Allow || d.Reason != ReasonNotOwner {
		t.Fatalf("non-owner teacher: %+v", d)
	}

	// Administrative tier bypasses ownership within its school.
	d, err = g.AuthorizeOwnership(ctx, principal(9, RoleUTP, schoolID(1)), "evaluation", 100)
	if err != nil || !d.Allow {
		t.Fatalf("UTP bypass: %+v err=%v", d, err)
	}

	// But not across schools.
	d, _ = g.AuthorizeOwnership(ctx, principal(9, RoleAdmin, schoolID(2)), "evaluation", 100)
	if d.Allow || d.Reason != ReasonCrossInstitution {
		t.Fatalf("admin other school: %+v", d)
	}

	// Superadmin sees everything.
	d, err = g.AuthorizeOwnership(ctx, principal(1, RoleSuperadmin, nil), "evaluation", 100)
	if err != nil || !d.Allow {
		t.Fatalf("superadmin: %+v err=%v", d, err)
	}

	// Missing resource.
	d, _ = g.AuthorizeOwnership(ctx, principal(7, RoleTeacher, schoolID(1)), "evaluation", 404)
	if d.Allow || d.Reason != ReasonNotFound {
		t.Fatalf("missing resource: %+v", d)
	}

	// Unregistered resource type is a configuration error.
	if _, err := g.AuthorizeOwnership(ctx, principal(7, RoleTeacher, schoolID(1)), "ghost", 1); err == nil {
		t.Fatalf("unregistered resource type must error")
	}
}

func TestDecisionsAreIdempotent(t *testing.T) {
	dir := &stubDirectory{users: map[int64]*TargetUser{
		2: {ID: 2, Role: RoleTeacher, SchoolID: schoolID(1)},
	}}
	g := newTestGate(dir, nil)
	admin := principal(1, RoleAdmin, schoolID(1))

	first, err1 := g.AuthorizeUserDelete(context.Background(), admin, 2)
	second, err2 := g.AuthorizeUserDelete(context.Background(), admin, 2)
	if err1 != nil || err2 != nil {
		t.Fatalf("errors: %v %v", err1, err2)
	}
	if first != second {
		t.Fatalf("same inputs produced different decisions: %+v vs %+v", first, second)
	}
}
