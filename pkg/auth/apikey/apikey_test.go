package apikey

import (
	"context"
	"net/http"
	"testing"

	"github.com/sandbox-llm/orch/pkg/auth"
)

func newTestAuth() *Authenticator {
	return New([]Entry{
		{Key: "sk-test-key-1", Subject: "alice", TenantID: "org-1"},
		{Key: "sk-test-key-2", Subject: "bob"},
	})
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name         string
		header       string
		wantDecision auth.AuthDecision
		wantSubject  string
		wantTenant   string
	}{
		{"valid key with tenant", "Bearer sk-test-key-1", auth.Yes, "alice", "org-1"},
		{"second key", "Bearer sk-test-key-2", auth.Yes, "bob", ""},
		{"invalid key", "Bearer sk-wrong-key", auth.No, "", ""},
		{"no header", "", auth.Abstain, "", ""},
		{"non-bearer header", "Basic dXNlcjpwYXNz", auth.Abstain, "", ""},
		{"empty bearer token", "Bearer ", auth.No, "", ""},
	}

	a := newTestAuth()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest("POST", "/api/chat", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			result := a.Authenticate(context.Background(), r)

			if result.Decision != tt.wantDecision {
				t.Fatalf("Decision = %d, want %d", result.Decision, tt.wantDecision)
			}
			if tt.wantDecision != auth.Yes {
				return
			}
			if result.Identity.Subject != tt.wantSubject {
				t.Errorf("Subject = %q, want %q", result.Identity.Subject, tt.wantSubject)
			}
			if result.Identity.Tenant != tt.wantTenant {
				t.Errorf("Tenant = %q, want %q", result.Identity.Tenant, tt.wantTenant)
			}
		})
	}
}

func TestIdentityIsNotShared(t *testing.T) {
	a := newTestAuth()
	r, _ := http.NewRequest("POST", "/api/chat", nil)
	r.Header.Set("Authorization", "Bearer sk-test-key-1")

	first := a.Authenticate(context.Background(), r)
	first.Identity.Tenant = "mutated"

	second := a.Authenticate(context.Background(), r)
	if second.Identity.Tenant != "org-1" {
		t.Errorf("Tenant = %q after mutating an earlier identity", second.Identity.Tenant)
	}
}
