package auth

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewTokenIssuerRejectsShortSecret(t *testing.T) {
	if _, err := NewTokenIssuer("too-short"); err == nil {
		t.Fatal("expected error for short secret")
	}
	if _, err := NewTokenIssuer(testSecret); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIssueAndValidateServiceToken(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, exp, err := issuer.IssueServiceToken("org1", RoleService)
	if err != nil {
		t.Fatalf("IssueServiceToken: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Error("token already expired at issue time")
	}

	claims, err := issuer.ValidateServiceToken(token)
	if err != nil {
		t.Fatalf("ValidateServiceToken: %v", err)
	}
	if claims.OrganizationID != "org1" {
		t.Errorf("organization = %q, want org1", claims.OrganizationID)
	}
	if claims.Role != RoleService {
		t.Errorf("role = %q, want %q", claims.Role, RoleService)
	}
}

func TestValidateServiceTokenRejectsTampering(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret)
	token, _, err := issuer.IssueServiceToken("org1", RoleAdmin)
	if err != nil {
		t.Fatalf("IssueServiceToken: %v", err)
	}

	if _, err := issuer.ValidateServiceToken(token + "x"); err == nil {
		t.Error("tampered signature accepted")
	}
	if _, err := issuer.ValidateServiceToken("not-a-token"); err == nil {
		t.Error("garbage token accepted")
	}

	// A token signed under a different secret must not validate.
	other, _ := NewTokenIssuer(strings.Repeat("z", 32))
	foreign, _, err := other.IssueServiceToken("org1", RoleService)
	if err != nil {
		t.Fatalf("IssueServiceToken: %v", err)
	}
	if _, err := issuer.ValidateServiceToken(foreign); err == nil {
		t.Error("token from another issuer accepted")
	}
}

func TestValidateServiceTokenRejectsUnknownRole(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret)
	token, _, err := issuer.IssueServiceToken("org1", "visitor")
	if err != nil {
		t.Fatalf("IssueServiceToken: %v", err)
	}
	if _, err := issuer.ValidateServiceToken(token); err == nil {
		t.Error("unknown role accepted")
	}
}
