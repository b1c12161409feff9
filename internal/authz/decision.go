package authz

// Reason classifies why a request was denied. Handlers translate reasons
// into transport status codes; the gate itself never writes responses.
type Reason string

const (
	ReasonUnauthenticated  Reason = "UNAUTHENTICATED"
	ReasonInactiveAccount  Reason = "INACTIVE_ACCOUNT"
	ReasonPermission       Reason = "FORBIDDEN_PERMISSION"
	ReasonCrossInstitution Reason = "FORBIDDEN_CROSS_INSTITUTION"
	ReasonRoleRank         Reason = "FORBIDDEN_ROLE_RANK"
	ReasonField            Reason = "FORBIDDEN_FIELD"
	ReasonSelfDelete       Reason = "FORBIDDEN_SELF_DELETE"
	ReasonNotOwner         Reason = "FORBIDDEN_NOT_OWNER"
	ReasonNotFound         Reason = "NOT_FOUND"
)

// Decision is the outcome of an authorization check. It is computed fresh
// for every request and never stored.
type Decision struct {
	Allow  bool
	Reason Reason
	Detail string
}

// Allowed is the positive decision.
func Allowed() Decision {
	return Decision{Allow: true}
}

// Denied builds a denial with the given reason and human-readable detail.
func Denied(reason Reason, detail string) Decision {
	return Decision{Allow: false, Reason: reason, Detail: detail}
}
