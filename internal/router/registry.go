package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/whatsorder/whatsorder-server/internal/handler"
	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/internal/storage"
)

type handlerCacheEntry struct {
	handler  handler.Handler
	loadedAt time.Time
}

// Registry caches one handler instance per tenant and owns its lifecycle.
// A cache hit refreshes the instance's tenant snapshot so branding and limit
// changes propagate without re-running initialization; only an explicit
// reload re-initializes.
type Registry struct {
	store storage.Store

	mu       sync.Mutex
	handlers map[uuid.UUID]handlerCacheEntry
}

// NewRegistry creates an empty handler registry
func NewRegistry(store storage.Store) *Registry {
	return &Registry{
		store:    store,
		handlers: make(map[uuid.UUID]handlerCacheEntry),
	}
}

// ResolveHandler returns the tenant's handler, loading and initializing it on
// a cache miss
func (r *Registry) ResolveHandler(ctx context.Context, tenant *models.Tenant) (handler.Handler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.handlers[tenant.ID]; ok {
		entry.handler.SetTenant(tenant)
		return entry.handler, nil
	}

	h, err := handler.New(tenant, r.store)
	if err != nil {
		return nil, err
	}

	if err := h.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize handler: %w", err)
	}

	r.handlers[tenant.ID] = handlerCacheEntry{handler: h, loadedAt: time.Now()}

	log.Info().
		Str("type", string(tenant.BusinessType)).
		Str("tenant", tenant.BusinessName).
		Msg("Handler loaded")

	return h, nil
}

// Evict runs cleanup on the tenant's cached handler, if any, and drops it.
// In-flight work keeps its reference; the only effect is an extra cache miss.
func (r *Registry) Evict(ctx context.Context, tenantID uuid.UUID) {
	r.mu.Lock()
	entry, ok := r.handlers[tenantID]
	if ok {
		delete(r.handlers, tenantID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	if err := entry.handler.Cleanup(ctx); err != nil {
		log.Warn().Err(err).Str("tenant", tenantID.String()).Msg("Handler cleanup failed")
	}
}

// Clear evicts every cached handler instance
func (r *Registry) Clear(ctx context.Context) {
	r.mu.Lock()
	handlers := r.handlers
	r.handlers = make(map[uuid.UUID]handlerCacheEntry)
	r.mu.Unlock()

	for tenantID, entry := range handlers {
		if err := entry.handler.Cleanup(ctx); err != nil {
			log.Warn().Err(err).Str("tenant", tenantID.String()).Msg("Handler cleanup failed")
		}
	}
}

// Size reports the number of cached handler instances
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers)
}
