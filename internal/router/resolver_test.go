package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/internal/storage"
)

func TestResolverCachesWithinTTL(t *testing.T) {
	store := storage.NewMemoryStore()
	tenant := seedTenant(t, store, "cached-shop", models.TenantStatusActive)
	resolver := NewTenantResolver(store, time.Minute)

	first, err := resolver.ResolveBySession(context.Background(), "cached-shop")
	require.NoError(t, err)
	require.Equal(t, tenant.ID, first.ID)

	// A store-side rename is invisible until the entry expires
	tenant.BusinessName = "Renamed"
	require.NoError(t, store.UpdateTenant(context.Background(), tenant))

	second, err := resolver.ResolveBySession(context.Background(), "cached-shop")
	require.NoError(t, err)
	require.Equal(t, "Testaurant", second.BusinessName)
	require.Equal(t, 1, resolver.Size())
}

func TestResolverExpiryRefetches(t *testing.T) {
	store := storage.NewMemoryStore()
	tenant := seedTenant(t, store, "expiring-shop", models.TenantStatusActive)
	resolver := NewTenantResolver(store, 10*time.Millisecond)

	_, err := resolver.ResolveBySession(context.Background(), "expiring-shop")
	require.NoError(t, err)

	tenant.BusinessName = "Renamed"
	require.NoError(t, store.UpdateTenant(context.Background(), tenant))

	time.Sleep(20 * time.Millisecond)

	refreshed, err := resolver.ResolveBySession(context.Background(), "expiring-shop")
	require.NoError(t, err)
	require.Equal(t, "Renamed", refreshed.BusinessName)
}

func TestResolverDoesNotCacheMisses(t *testing.T) {
	store := storage.NewMemoryStore()
	resolver := NewTenantResolver(store, time.Minute)

	_, err := resolver.ResolveBySession(context.Background(), "late-signup")
	require.True(t, errors.Is(err, storage.ErrNotFound))
	require.Equal(t, 0, resolver.Size())

	// The tenant appears and the very next resolve finds it
	seedTenant(t, store, "late-signup", models.TenantStatusActive)

	tenant, err := resolver.ResolveBySession(context.Background(), "late-signup")
	require.NoError(t, err)
	require.Equal(t, "late-signup", tenant.SessionID)
}

func TestResolverByPhone(t *testing.T) {
	store := storage.NewMemoryStore()
	seeded := seedTenant(t, store, "phone-shop", models.TenantStatusActive)
	resolver := NewTenantResolver(store, time.Minute)

	tenant, err := resolver.ResolveByPhone(context.Background(), "27820001111")
	require.NoError(t, err)
	require.Equal(t, seeded.ID, tenant.ID)
}

func TestResolverEvictTenantDropsAllKeys(t *testing.T) {
	store := storage.NewMemoryStore()
	tenant := seedTenant(t, store, "both-keys", models.TenantStatusActive)
	resolver := NewTenantResolver(store, time.Minute)

	_, err := resolver.ResolveBySession(context.Background(), "both-keys")
	require.NoError(t, err)
	_, err = resolver.ResolveByPhone(context.Background(), "27820001111")
	require.NoError(t, err)
	require.Equal(t, 2, resolver.Size())

	resolver.EvictTenant(tenant.ID)
	require.Equal(t, 0, resolver.Size())
}

func TestRegistryCachesHandlerPerTenant(t *testing.T) {
	store := storage.NewMemoryStore()
	tenant := seedTenant(t, store, "one-handler", models.TenantStatusActive)
	registry := NewRegistry(store)

	first, err := registry.ResolveHandler(context.Background(), tenant)
	require.NoError(t, err)

	second, err := registry.ResolveHandler(context.Background(), tenant)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, registry.Size())
}

func TestRegistryHitRefreshesTenantSnapshot(t *testing.T) {
	store := storage.NewMemoryStore()
	tenant := seedTenant(t, store, "refresh-shop", models.TenantStatusActive)
	registry := NewRegistry(store)

	h, err := registry.ResolveHandler(context.Background(), tenant)
	require.NoError(t, err)

	updated := *tenant
	updated.BusinessName = "Fresh Name"

	_, err = registry.ResolveHandler(context.Background(), &updated)
	require.NoError(t, err)
	require.Equal(t, "Fresh Name", h.Tenant().BusinessName)
}

func TestRegistryEvict(t *testing.T) {
	store := storage.NewMemoryStore()
	tenant := seedTenant(t, store, "evict-shop", models.TenantStatusActive)
	registry := NewRegistry(store)

	_, err := registry.ResolveHandler(context.Background(), tenant)
	require.NoError(t, err)
	require.Equal(t, 1, registry.Size())

	registry.Evict(context.Background(), tenant.ID)
	require.Equal(t, 0, registry.Size())

	// Evicting an unknown tenant is a no-op
	registry.Evict(context.Background(), tenant.ID)
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	var counter int
	done := make(chan struct{})

	release := km.lock("a")
	go func() {
		unlock := km.lock("a")
		counter++
		unlock()
		close(done)
	}()

	// The goroutine must block until the first holder releases
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, 0, counter)

	release()
	<-done
	require.Equal(t, 1, counter)
}

func TestKeyedMutexShrinksWhenIdle(t *testing.T) {
	km := newKeyedMutex()

	release := km.lock("a")
	release()

	km.mu.Lock()
	defer km.mu.Unlock()
	require.Empty(t, km.locks)
}
