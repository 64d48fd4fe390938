package router

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/internal/storage"
)

// DefaultTenantTTL bounds how long a cached tenant snapshot stays valid
const DefaultTenantTTL = 5 * time.Minute

type tenantCacheEntry struct {
	tenant    *models.Tenant
	fetchedAt time.Time
}

// TenantResolver maps channel session IDs and phone numbers to tenants,
// caching snapshots for a fixed TTL. Expired entries are treated as misses.
// Not-found results are never cached: every miss re-queries the store.
type TenantResolver struct {
	store storage.Store
	ttl   time.Duration

	mu    sync.Mutex
	cache map[string]tenantCacheEntry
}

// NewTenantResolver creates a resolver with the given snapshot TTL
func NewTenantResolver(store storage.Store, ttl time.Duration) *TenantResolver {
	if ttl <= 0 {
		ttl = DefaultTenantTTL
	}
	return &TenantResolver{
		store: store,
		ttl:   ttl,
		cache: make(map[string]tenantCacheEntry),
	}
}

// ResolveBySession resolves a tenant by messaging channel session ID
func (r *TenantResolver) ResolveBySession(ctx context.Context, sessionID string) (*models.Tenant, error) {
	return r.resolve(ctx, "session:"+sessionID, func() (*models.Tenant, error) {
		return r.store.GetTenantBySession(ctx, sessionID)
	})
}

// ResolveByPhone resolves a tenant by its business phone number
func (r *TenantResolver) ResolveByPhone(ctx context.Context, phone string) (*models.Tenant, error) {
	return r.resolve(ctx, "phone:"+phone, func() (*models.Tenant, error) {
		return r.store.GetTenantByPhone(ctx, phone)
	})
}

func (r *TenantResolver) resolve(ctx context.Context, key string, fetch func() (*models.Tenant, error)) (*models.Tenant, error) {
	r.mu.Lock()
	entry, ok := r.cache[key]
	r.mu.Unlock()

	if ok && time.Since(entry.fetchedAt) < r.ttl {
		return entry.tenant, nil
	}

	tenant, err := fetch()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[key] = tenantCacheEntry{tenant: tenant, fetchedAt: time.Now()}
	r.mu.Unlock()

	return tenant, nil
}

// EvictTenant removes every cache entry referencing the tenant ID, forcing a
// fresh fetch on next resolution
func (r *TenantResolver) EvictTenant(tenantID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, entry := range r.cache {
		if entry.tenant.ID == tenantID {
			delete(r.cache, key)
		}
	}
}

// Clear evicts every cached tenant snapshot
func (r *TenantResolver) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]tenantCacheEntry)
}

// Size reports the number of cached entries
func (r *TenantResolver) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}
