package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/whatsorder/whatsorder-server/internal/handler"
	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/internal/storage"
)

// Domain errors surfaced by the router
var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantInactive = errors.New("tenant inactive")
)

// Customer-safe replies; raw error detail never reaches the end customer
const (
	replyNotConfigured = "This number is not configured. Please contact support."
	replyUnavailable   = "This service is currently unavailable. Please try again later."
	replyFallback      = "Sorry, something went wrong. Please try again later."
)

// TenantSummary is the tenant view embedded in a routing result
type TenantSummary struct {
	ID           uuid.UUID `json:"id"`
	BusinessName string    `json:"businessName"`
	PhoneNumber  string    `json:"phoneNumber"`
}

// Result is the outcome of routing one inbound message. Reply is always set:
// a recognized message event never goes unanswered.
type Result struct {
	Success bool           `json:"success"`
	Reply   string         `json:"message"`
	Error   string         `json:"error,omitempty"`
	Tenant  *TenantSummary `json:"tenant,omitempty"`
}

// Stats reports cache sizes for health and diagnostics endpoints
type Stats struct {
	CachedHandlers int           `json:"cachedHandlers"`
	CachedTenants  int           `json:"cachedTenants"`
	TenantCacheTTL time.Duration `json:"tenantCacheTTL"`
}

// Router orchestrates one inbound message: tenant resolution, status check,
// handler dispatch and best-effort interaction logging. Failures inside the
// handler are converted to a generic customer-safe reply at this boundary.
type Router struct {
	store    storage.Store
	resolver *TenantResolver
	registry *Registry
	turns    *keyedMutex
}

// New creates a router with the given tenant cache TTL
func New(store storage.Store, tenantTTL time.Duration) *Router {
	return &Router{
		store:    store,
		resolver: NewTenantResolver(store, tenantTTL),
		registry: NewRegistry(store),
		turns:    newKeyedMutex(),
	}
}

// Route processes one inbound message and returns the reply to dispatch
func (r *Router) Route(ctx context.Context, sessionID, customerPhone, text string) *Result {
	tenant, err := r.resolver.ResolveBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Warn().Str("session", sessionID).Msg("No tenant for session")
			return &Result{Success: false, Error: ErrTenantNotFound.Error(), Reply: replyNotConfigured}
		}
		log.Error().Err(err).Str("session", sessionID).Msg("Tenant lookup failed")
		return &Result{Success: false, Error: err.Error(), Reply: replyFallback}
	}

	if !tenant.CanReceiveMessages() {
		log.Info().
			Str("tenant", tenant.BusinessName).
			Str("status", string(tenant.Status)).
			Msg("Tenant cannot receive messages")
		return &Result{Success: false, Error: ErrTenantInactive.Error(), Reply: replyUnavailable}
	}

	// Serialize turns per (tenant, customer) so two close-together messages
	// cannot race on read-then-write of conversation state
	unlock := r.turns.lock(tenant.ID.String() + ":" + customerPhone)
	defer unlock()

	reply, err := r.dispatch(ctx, tenant, customerPhone, text)
	if err != nil {
		log.Error().Err(err).
			Str("tenant", tenant.BusinessName).
			Str("customer", customerPhone).
			Msg("Message handling failed")
		return &Result{Success: false, Error: err.Error(), Reply: replyFallback}
	}

	r.logInteraction(ctx, tenant.ID, customerPhone, text, reply)

	return &Result{
		Success: true,
		Reply:   reply,
		Tenant: &TenantSummary{
			ID:           tenant.ID,
			BusinessName: tenant.BusinessName,
			PhoneNumber:  tenant.PhoneNumber,
		},
	}
}

func (r *Router) dispatch(ctx context.Context, tenant *models.Tenant, customerPhone, text string) (string, error) {
	h, err := r.registry.ResolveHandler(ctx, tenant)
	if err != nil {
		return "", err
	}
	return h.HandleMessage(ctx, customerPhone, text)
}

// logInteraction is best-effort; its failure never alters the reply
func (r *Router) logInteraction(ctx context.Context, tenantID uuid.UUID, customerPhone, incoming, outgoing string) {
	entry := &models.InteractionLog{
		TenantID:        tenantID,
		CustomerPhone:   customerPhone,
		IncomingMessage: incoming,
		OutgoingMessage: outgoing,
	}
	if err := r.store.LogInteraction(ctx, entry); err != nil {
		log.Warn().Err(err).Msg("Failed to log interaction")
	}
}

// UpdateOrderStatus persists the status transition and returns the composed
// customer notification together with the owning tenant. Sending is the
// caller's concern.
func (r *Router) UpdateOrderStatus(ctx context.Context, tenantID, orderID uuid.UUID, status models.OrderStatus) (*handler.Notification, *models.Tenant, error) {
	tenant, err := r.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("get tenant: %w", err)
	}

	if err := r.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return nil, nil, fmt.Errorf("update order status: %w", err)
	}

	order, err := r.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("get order: %w", err)
	}

	h, err := r.registry.ResolveHandler(ctx, tenant)
	if err != nil {
		return nil, nil, err
	}

	notification, err := h.ComposeNotification(ctx, order, status)
	if err != nil {
		return nil, nil, fmt.Errorf("compose notification: %w", err)
	}

	return notification, tenant, nil
}

// ComposeStatusNotification composes the notification for an already updated
// order without touching persistence
func (r *Router) ComposeStatusNotification(ctx context.Context, order *models.Order, status models.OrderStatus) (*handler.Notification, *models.Tenant, error) {
	tenant, err := r.store.GetTenant(ctx, order.TenantID)
	if err != nil {
		return nil, nil, fmt.Errorf("get tenant: %w", err)
	}

	h, err := r.registry.ResolveHandler(ctx, tenant)
	if err != nil {
		return nil, nil, err
	}

	notification, err := h.ComposeNotification(ctx, order, status)
	if err != nil {
		return nil, nil, fmt.Errorf("compose notification: %w", err)
	}

	return notification, tenant, nil
}

// Reload evicts the tenant's handler (running its cleanup) and every tenant
// cache entry for it, forcing a fresh fetch and full re-initialization on
// next use
func (r *Router) Reload(ctx context.Context, tenantID uuid.UUID) {
	r.registry.Evict(ctx, tenantID)
	r.resolver.EvictTenant(tenantID)
	log.Info().Str("tenant", tenantID.String()).Msg("Handler reloaded")
}

// ClearCaches evicts every cached handler and tenant entry. In-flight work
// sees at most a transient extra cache miss.
func (r *Router) ClearCaches(ctx context.Context) {
	r.registry.Clear(ctx)
	r.resolver.Clear()
	log.Info().Msg("All caches cleared")
}

// Cleanup unloads every cached handler; called on shutdown
func (r *Router) Cleanup(ctx context.Context) {
	r.registry.Clear(ctx)
	r.resolver.Clear()
}

// Stats reports current cache sizes
func (r *Router) Stats() Stats {
	return Stats{
		CachedHandlers: r.registry.Size(),
		CachedTenants:  r.resolver.Size(),
		TenantCacheTTL: r.resolver.ttl,
	}
}
