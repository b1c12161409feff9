package authz

import "testing"

func TestHasPermissionFailsClosed(t *testing.T) {
	if HasPermission(RoleSuperadmin, "users:fly") {
		t.Fatalf("unknown permission must deny even for Superadmin")
	}
	if HasPermission(Role("Profesor"), PermUsersRead) {
		t.Fatalf("unknown role must deny")
	}
	if HasPermission("", PermUsersRead) {
		t.Fatalf("empty role must deny")
	}
}

func TestPermissionTableGrants(t *testing.T) {
	cases := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleSuperadmin, PermRolesCreate, true},
		{RoleAdmin, PermRolesCreate, false},
		{RoleAdmin, PermRolesRead, true},
		{RoleAdmin, PermUsersDelete, true},
		{RoleUTP, PermUsersDelete, false},
		{RoleTeacher, PermUsersDelete, false},
		{RoleTeacher, PermUsersRead, true},
		{RoleStudent, PermUsersRead, false},
		{RoleStudent, PermCoursesRead, true},
		{RoleStudent, PermCoursesCreate, false},
		{RoleTeacher, PermEvaluationsCreate, true},
		{RoleStudent, PermEvaluationsRead, true},
		{RoleStudent, PermAnswersCreate, true},
		{RoleStudent, PermAnswersDelete, false},
		{RoleTeacher, PermGradesDelete, false},
		{RoleUTP, PermGradesDelete, true},
		{RoleAdmin, PermSchoolsDelete, false},
		{RoleSuperadmin, PermSchoolsDelete, true},
	}
	for _, tc := range cases {
		if got := HasPermission(tc.role, tc.perm); got != tc.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestEveryGrantedRoleHasARank(t *testing.T) {
	for perm, set := range permissionTable {
		for role := range set {
			if role.Rank() == 0 {
				t.Errorf("permission %s grants unranked role %q", perm, role)
			}
		}
	}
}

func TestRolePermissionsMatchesTable(t *testing.T) {
	perms := RolePermissions(RoleStudent)
	seen := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		if !HasPermission(RoleStudent, p) {
			t.Errorf("RolePermissions reported %s which HasPermission denies", p)
		}
		seen[p] = true
	}
	if !seen[PermAnswersCreate] || seen[PermUsersUpdate] {
		t.Errorf("unexpected student permission set: %v", perms)
	}
}
