package auth

import (
	"testing"
	"time"
)

func testAccount() *Account {
	school := int64(3)
	return &Account{
		ID:       12,
		Email:    "ana@colegio.cl",
		RoleName: "Teacher",
		SchoolID: &school,
		Active:   true,
	}
}

func TestIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	token, claims, err := issuer.Issue(testAccount())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if claims.ID == "" {
		t.Fatalf("token must carry a JTI")
	}

	parsed, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Role != "Teacher" {
		t.Fatalf("role claim = %q", parsed.Role)
	}
	id, err := parsed.UserID()
	if err != nil || id != 12 {
		t.Fatalf("subject = %d, err %v", id, err)
	}
	if parsed.SchoolID == nil || *parsed.SchoolID != 3 {
		t.Fatalf("school claim = %v", parsed.SchoolID)
	}
}

func TestParseRejectsForgedTokens(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Hour)
	other := NewTokenIssuer("secret-b", time.Hour)

	token, _, err := issuer.Issue(testAccount())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := other.Parse(token); err == nil {
		t.Fatalf("token signed with another secret must not parse")
	}
	if _, err := issuer.Parse(""); err == nil {
		t.Fatalf("empty token must not parse")
	}
	if _, err := issuer.Parse("not.a.jwt"); err == nil {
		t.Fatalf("garbage must not parse")
	}
}

func TestParseRejectsExpiredTokens(t *testing.T) {
	issuer := NewTokenIssuer("secret", -time.Minute)
	token, _, err := issuer.Issue(testAccount())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := issuer.Parse(token); err == nil {
		t.Fatalf("expired token must not parse")
	}
}
