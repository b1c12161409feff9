package authz

import "testing"

func TestParseRole(t *testing.T) {
	for _, name := range []string{"Superadmin", "Admin", "UTP", "Teacher", "Student"} {
		role, err := ParseRole(name)
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", name, err)
		}
		if !role.Valid() {
			t.Fatalf("ParseRole(%q) returned invalid role", name)
		}
	}

	for _, name := range []string{"", "superadmin", "Profesor", "root", "Admin "} {
		if name == "Admin " {
			// trimmed input parses
			if _, err := ParseRole(name); err != nil {
				t.Fatalf("ParseRole(%q) should trim whitespace: %v", name, err)
			}
			continue
		}
		if _, err := ParseRole(name); err == nil {
			t.Fatalf("ParseRole(%q) should fail", name)
		}
	}
}

func TestRoleRanksAreStrictlyOrdered(t *testing.T) {
	order := []Role{RoleStudent, RoleTeacher, RoleUTP, RoleAdmin, RoleSuperadmin}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Fatalf("rank(%s)=%d not above rank(%s)=%d", order[i], order[i].Rank(), order[i-1], order[i-1].Rank())
		}
	}
	if Role("unknown").Rank() != 0 {
		t.Fatalf("unknown role should rank 0")
	}
}

func TestCanManage(t *testing.T) {
	all := []Role{RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher, RoleStudent}
	for _, a := range all {
		if a.CanManage(a) {
			t.Errorf("%s must not manage its own rank", a)
		}
		for _, b := range all {
			got := a.CanManage(b)
			want := a.Rank() > b.Rank()
			if got != want {
				t.Errorf("CanManage(%s, %s) = %v, want %v", a, b, got, want)
			}
		}
	}
	if Role("unknown").CanManage(RoleStudent) {
		t.Errorf("unknown role must not manage anyone")
	}
	if !RoleStudent.CanManage(Role("unknown")) {
		t.Errorf("rank 1 outranks unknown rank 0")
	}
}

func TestAdministrativeTier(t *testing.T) {
	for role, want := range map[Role]bool{
		RoleSuperadmin: true,
		RoleAdmin:      true,
		RoleUTP:        true,
		RoleTeacher:    false,
		RoleStudent:    false,
	} {
		if role.Administrative() != want {
			t.Errorf("%s.Administrative() = %v, want %v", role, role.Administrative(), want)
		}
	}
	if !RoleSuperadmin.Global() || RoleAdmin.Global() {
		t.Errorf("only Superadmin has global scope")
	}
}
