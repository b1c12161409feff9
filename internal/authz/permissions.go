package authz

// Permission identifies a gated operation as "resource:action".
type Permission string

// Permissions per resource. Keep these grouped by resource so the table
// below stays readable next to the route declarations that use them.
const (
	PermRolesCreate Permission = "roles:create"
	PermRolesRead   Permission = "roles:read"
	PermRolesUpdate Permission = "roles:update"
	PermRolesDelete Permission = "roles:delete"

	PermSchoolsCreate Permission = "schools:create"
	PermSchoolsRead   Permission = "schools:read"
	PermSchoolsUpdate Permission = "schools:update"
	PermSchoolsDelete Permission = "schools:delete"

	PermUsersCreate Permission = "users:create"
	PermUsersRead   Permission = "users:read"
	PermUsersUpdate Permission = "users:update"
	PermUsersDelete Permission = "users:delete"

	PermCoursesCreate Permission = "courses:create"
	PermCoursesRead   Permission = "courses:read"
	PermCoursesUpdate Permission = "courses:update"
	PermCoursesDelete Permission = "courses:delete"

	PermSubjectsCreate Permission = "subjects:create"
	PermSubjectsRead   Permission = "subjects:read"
	PermSubjectsUpdate Permission = "subjects:update"
	PermSubjectsDelete Permission = "subjects:delete"

	PermStudentsCreate Permission = "students:create"
	PermStudentsRead   Permission = "students:read"
	PermStudentsUpdate Permission = "students:update"
	PermStudentsDelete Permission = "students:delete"

	PermEvaluationsCreate Permission = "evaluations:create"
	PermEvaluationsRead   Permission = "evaluations:read"
	PermEvaluationsUpdate Permission = "evaluations:update"
	PermEvaluationsDelete Permission = "evaluations:delete"

	PermQuestionsCreate Permission = "questions:create"
	PermQuestionsRead   Permission = "questions:read"
	PermQuestionsUpdate Permission = "questions:update"
	PermQuestionsDelete Permission = "questions:delete"

	PermOptionsCreate Permission = "options:create"
	PermOptionsRead   Permission = "options:read"
	PermOptionsUpdate Permission = "options:update"
	PermOptionsDelete Permission = "options:delete"

	PermApplicationsCreate Permission = "applications:create"
	PermApplicationsRead   Permission = "applications:read"
	PermApplicationsUpdate Permission = "applications:update"
	PermApplicationsDelete Permission = "applications:delete"

	PermGradesCreate Permission = "grades:create"
	PermGradesRead   Permission = "grades:read"
	PermGradesUpdate Permission = "grades:update"
	PermGradesDelete Permission = "grades:delete"

	PermAnswersCreate Permission = "answers:create"
	PermAnswersRead   Permission = "answers:read"
	PermAnswersUpdate Permission = "answers:update"
	PermAnswersDelete Permission = "answers:delete"
)

type roleSet map[Role]struct{}

func roles(rs ...Role) roleSet {
	set := make(roleSet, len(rs))
	for _, r := range rs {
		set[r] = struct{}{}
	}
	return set
}

// permissionTable is the static grant matrix, loaded once and never mutated.
// Grants are always explicit; rank never implies a permission. Note the
// intentional non-prefix grants: students may read courses they cannot list
// users for, and answer submission reaches all the way down to Student.
var permissionTable = map[Permission]roleSet{
	PermRolesCreate: roles(RoleSuperadmin),
	PermRolesRead:   roles(RoleSuperadmin, RoleAdmin, RoleUTP),
	PermRolesUpdate: roles(RoleSuperadmin),
	PermRolesDelete: roles(RoleSuperadmin),

	PermSchoolsCreate: roles(RoleSuperadmin),
	PermSchoolsRead:   roles(RoleSuperadmin, RoleAdmin, RoleUTP),
	PermSchoolsUpdate: roles(RoleSuperadmin, RoleAdmin),
	PermSchoolsDelete: roles(RoleSuperadmin),

	PermUsersCreate: roles(RoleSuperadmin, RoleAdmin, RoleUTP),
	PermUsersRead:   roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),
	PermUsersUpdate: roles(RoleSuperadmin, RoleAdmin, RoleUTP),
	PermUsersDelete: roles(RoleSuperadmin, RoleAdmin),

	PermCoursesCreate: roles(RoleSuperadmin, RoleAdmin, RoleUTP),
	PermCoursesRead:   roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher, RoleStudent),
	PermCoursesUpdate: roles(RoleSuperadmin, RoleAdmin, RoleUTP),
	PermCoursesDelete: roles(RoleSuperadmin, RoleAdmin, RoleUTP),

	PermSubjectsCreate: roles(RoleSuperadmin, RoleAdmin, RoleUTP),
	PermSubjectsRead:   roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher, RoleStudent),
	PermSubjectsUpdate: roles(RoleSuperadmin, RoleAdmin, RoleUTP),
	PermSubjectsDelete: roles(RoleSuperadmin, RoleAdmin, RoleUTP),

	PermStudentsCreate: roles(RoleSuperadmin, RoleAdmin, RoleUTP),
	PermStudentsRead:   roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),
	PermStudentsUpdate: roles(RoleSuperadmin, RoleAdmin, RoleUTP),
	PermStudentsDelete: roles(RoleSuperadmin, RoleAdmin, RoleUTP),

	PermEvaluationsCreate: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),
	PermEvaluationsRead:   roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher, RoleStudent),
	PermEvaluationsUpdate: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),
	PermEvaluationsDelete: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),

	PermQuestionsCreate: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),
	PermQuestionsRead:   roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher, RoleStudent),
	PermQuestionsUpdate: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),
	PermQuestionsDelete: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),

	PermOptionsCreate: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),
	PermOptionsRead:   roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher, RoleStudent),
	PermOptionsUpdate: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),
	PermOptionsDelete: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),

	PermApplicationsCreate: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),
	PermApplicationsRead:   roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher, RoleStudent),
	PermApplicationsUpdate: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),
	PermApplicationsDelete: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),

	PermGradesCreate: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),
	PermGradesRead:   roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher, RoleStudent),
	PermGradesUpdate: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),
	PermGradesDelete: roles(RoleSuperadmin, RoleAdmin, RoleUTP),

	PermAnswersCreate: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher, RoleStudent),
	PermAnswersRead:   roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher, RoleStudent),
	PermAnswersUpdate: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher, RoleStudent),
	PermAnswersDelete: roles(RoleSuperadmin, RoleAdmin, RoleUTP, RoleTeacher),
}

// HasPermission reports whether role is granted perm. Unknown permissions
// and unknown roles deny (fail closed).
func HasPermission(role Role, perm Permission) bool {
	set, ok := permissionTable[perm]
	if !ok {
		return false
	}
	_, ok = set[role]
	return ok
}

// RolePermissions returns every permission granted to role, for the
// "effective permissions" endpoint.
func RolePermissions(role Role) []Permission {
	var perms []Permission
	for perm, set := range permissionTable {
		if _, ok := set[role]; ok {
			perms = append(perms, perm)
		}
	}
	return perms
}
