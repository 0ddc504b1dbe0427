package journal

import "context"

// Exchanges are partitioned by tenant. Stores read the tenant from the
// request context on Get and List, and from the exchange itself (falling
// back to the context) on Record. An empty tenant is the shared partition
// used when auth carries no tenant.

type tenantKey struct{}

// SetTenant scopes journal reads and writes made with ctx to tenant.
func SetTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenant)
}

// GetTenant returns the tenant set on ctx, or "" for the shared partition.
func GetTenant(ctx context.Context) string {
	tenant, _ := ctx.Value(tenantKey{}).(string)
	return tenant
}

// TenantFor returns the partition x is recorded under.
func TenantFor(ctx context.Context, x *Exchange) string {
	if x.Tenant == "" {
		return GetTenant(ctx)
	}
	return x.Tenant
}
