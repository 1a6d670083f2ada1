package identity

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm, err := GenerateTokenManager("")
	if err != nil {
		t.Fatalf("GenerateTokenManager: %v", err)
	}

	p := &Principal{Subject: "alice", Tenant: "t1", Role: []string{"editor", "reviewer"}}
	tok, err := tm.Issue(p, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if strings.Count(tok, ".") != 2 {
		t.Errorf("token %q is not a JWT", tok)
	}

	got, err := tm.Validate(tok)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Subject != "alice" || got.Tenant != "t1" || len(got.Role) != 2 {
		t.Errorf("principal = %+v", got)
	}
}

func TestTokenManager_Expired(t *testing.T) {
	tm, err := GenerateTokenManager("")
	if err != nil {
		t.Fatalf("GenerateTokenManager: %v", err)
	}

	tok, err := tm.Issue(&Principal{Subject: "alice"}, -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := tm.Validate(tok); err == nil {
		t.Error("expired token validated")
	}
}

func TestTokenManager_WrongKey(t *testing.T) {
	issuer, err := GenerateTokenManager("")
	if err != nil {
		t.Fatalf("GenerateTokenManager: %v", err)
	}
	verifier, err := GenerateTokenManager("")
	if err != nil {
		t.Fatalf("GenerateTokenManager: %v", err)
	}

	tok, err := issuer.Issue(&Principal{Subject: "alice"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Validate(tok); err == nil {
		t.Error("token signed by another key validated")
	}
}

func TestTokenManager_WrongIssuer(t *testing.T) {
	tm, err := GenerateTokenManager("other/issuer")
	if err != nil {
		t.Fatalf("GenerateTokenManager: %v", err)
	}
	tok, err := tm.Issue(&Principal{Subject: "alice"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	strict := NewTokenManager(tm.pub, tm.priv, "castellan/identity")
	if _, err := strict.Validate(tok); err == nil {
		t.Error("token with foreign issuer validated")
	}
}

func TestPrincipalContext(t *testing.T) {
	p := &Principal{Subject: "alice", Tenant: "t1"}
	ctx := WithPrincipal(context.Background(), p)

	if got := FromContext(ctx); got == nil || got.Subject != "alice" {
		t.Errorf("FromContext = %+v", got)
	}
	if got := FromContext(context.Background()); got != nil {
		t.Errorf("empty context yielded %+v", got)
	}
}

func TestPrincipal_ContractsInterface(t *testing.T) {
	p := &Principal{Subject: "alice", Tenant: "t1", Role: []string{"admin"}}
	if p.ID() != "alice" || p.TenantID() != "t1" || len(p.Roles()) != 1 {
		t.Errorf("accessors = %q %q %v", p.ID(), p.TenantID(), p.Roles())
	}
}
