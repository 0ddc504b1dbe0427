package journal

import (
	"context"
	"testing"
)

func TestTenantPartition(t *testing.T) {
	base := context.Background()
	scoped := SetTenant(base, "org-1")

	tests := []struct {
		name string
		ctx  context.Context
		x    *Exchange
		want string
	}{
		{"shared partition", base, &Exchange{}, ""},
		{"plain string key ignored", context.WithValue(base, "tenant", "wrong"), &Exchange{}, ""},
		{"from context", scoped, &Exchange{}, "org-1"},
		{"latest SetTenant wins", SetTenant(scoped, "org-2"), &Exchange{}, "org-2"},
		{"exchange overrides context", scoped, &Exchange{Tenant: "org-3"}, "org-3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TenantFor(tt.ctx, tt.x); got != tt.want {
				t.Errorf("TenantFor = %q, want %q", got, tt.want)
			}
			if tt.x.Tenant == "" {
				if got := GetTenant(tt.ctx); got != tt.want {
					t.Errorf("GetTenant = %q, want %q", got, tt.want)
				}
			}
		})
	}
}
