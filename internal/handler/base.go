package handler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/internal/storage"
)

// variant supplies the business-specific pieces of the conversation flow.
// Every concrete handler embeds baseHandler and passes itself as the variant.
type variant interface {
	FormatCatalog(ctx context.Context) (string, error)
	ParseOrderItems(ctx context.Context, text string) (models.OrderItems, error)
	StatusTemplates(order *models.Order) map[models.OrderStatus]string
	HelpText() string
	ParseGuidance() string
	IdlePrompt() string
}

// menuCommands reset the conversation to the catalog view from any step
var menuCommands = map[string]struct{}{
	"menu": {}, "hi": {}, "hello": {}, "start": {},
}

const limitReachedReply = "⚠️ Monthly message limit reached. Please contact support to upgrade your plan."

// baseHandler carries the shared conversation engine and order assembly logic.
// Variant-specific behavior is reached through the variant interface.
type baseHandler struct {
	mu      sync.RWMutex
	tenant  *models.Tenant
	store   storage.Store
	variant variant
}

func newBaseHandler(tenant *models.Tenant, store storage.Store, v variant) baseHandler {
	return baseHandler{tenant: tenant, store: store, variant: v}
}

// Tenant returns the current tenant snapshot
func (h *baseHandler) Tenant() *models.Tenant {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tenant
}

// SetTenant refreshes the tenant snapshot without re-initializing the handler
func (h *baseHandler) SetTenant(tenant *models.Tenant) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tenant = tenant
}

// Initialize logs the load; variants override to read their config
func (h *baseHandler) Initialize(ctx context.Context) error {
	tenant := h.Tenant()
	log.Info().
		Str("tenant", tenant.BusinessName).
		Str("type", string(tenant.BusinessType)).
		Msg("Handler initialized")
	return nil
}

// Cleanup is a no-op by default
func (h *baseHandler) Cleanup(ctx context.Context) error {
	return nil
}

// HandleMessage advances the (tenant, customer) conversation one turn.
// The menu commands always win over step-dependent branches, so they reset
// to the catalog view regardless of where the customer is.
func (h *baseHandler) HandleMessage(ctx context.Context, customerPhone, text string) (string, error) {
	tenant := h.Tenant()

	// Rate check happens before any state or counter mutation
	if tenant.MessageLimitReached() {
		return limitReachedReply, nil
	}

	if err := h.store.IncrementUsage(ctx, tenant.ID, storage.UsageCounterMessage); err != nil {
		return "", fmt.Errorf("increment message count: %w", err)
	}

	trimmed := strings.TrimSpace(text)
	normalized := strings.ToLower(trimmed)

	state, err := h.store.GetConversationState(ctx, tenant.ID, customerPhone)
	if errors.Is(err, storage.ErrNotFound) {
		state = &models.ConversationState{
			TenantID:      tenant.ID,
			CustomerPhone: customerPhone,
			CurrentStep:   models.StepIdle,
		}
	} else if err != nil {
		return "", fmt.Errorf("get conversation state: %w", err)
	}

	if _, ok := menuCommands[normalized]; ok {
		return h.showCatalog(ctx, customerPhone)
	}

	switch normalized {
	case "orders", "my orders":
		return h.customerOrders(ctx, customerPhone)
	case "help":
		return h.variant.HelpText(), nil
	}

	switch state.CurrentStep {
	case models.StepIdle, models.StepViewingMenu:
		return h.tryParseOrder(ctx, state, normalized)
	case models.StepAwaitingAddress:
		// Address keeps the customer's original casing
		return h.completeOrder(ctx, state, trimmed)
	default:
		return h.variant.IdlePrompt(), nil
	}
}

// showCatalog renders the catalog and moves the customer to viewing_menu
func (h *baseHandler) showCatalog(ctx context.Context, customerPhone string) (string, error) {
	catalog, err := h.variant.FormatCatalog(ctx)
	if err != nil {
		return "", fmt.Errorf("format catalog: %w", err)
	}

	state := &models.ConversationState{
		TenantID:      h.Tenant().ID,
		CustomerPhone: customerPhone,
		CurrentStep:   models.StepViewingMenu,
	}
	if err := h.store.SaveConversationState(ctx, state); err != nil {
		return "", fmt.Errorf("save conversation state: %w", err)
	}

	return catalog, nil
}

// tryParseOrder runs item parsing on free text; an unparseable message keeps
// the step unchanged and resolves into guidance text, never an error
func (h *baseHandler) tryParseOrder(ctx context.Context, state *models.ConversationState, text string) (string, error) {
	items, err := h.variant.ParseOrderItems(ctx, text)
	if err != nil {
		return "", fmt.Errorf("parse order items: %w", err)
	}

	if len(items) == 0 {
		return h.variant.ParseGuidance(), nil
	}

	state.CurrentStep = models.StepAwaitingAddress
	state.Items = items
	state.Total = items.Total()
	if err := h.store.SaveConversationState(ctx, state); err != nil {
		return "", fmt.Errorf("save conversation state: %w", err)
	}

	return h.formatOrderSummary(items, state.Total), nil
}

// completeOrder interprets the address turn, persists the order and clears state
func (h *baseHandler) completeOrder(ctx context.Context, state *models.ConversationState, text string) (string, error) {
	tenant := h.Tenant()

	info := CustomerInfo{
		Phone:        state.CustomerPhone,
		Address:      text,
		DeliveryType: models.DeliveryTypeDelivery,
	}
	if lower := strings.ToLower(text); lower == "pickup" || lower == "collection" {
		info.DeliveryType = models.DeliveryTypePickup
		info.Address = models.PickupAddress
	}

	order, err := h.ProcessOrder(ctx, state.Items, info)
	if err != nil {
		return "", fmt.Errorf("process order: %w", err)
	}

	if err := h.store.ClearConversationState(ctx, tenant.ID, state.CustomerPhone); err != nil {
		return "", fmt.Errorf("clear conversation state: %w", err)
	}

	h.logActivity(ctx, "order.created", models.Variables{
		"order_id":       order.ID.String(),
		"customer_phone": state.CustomerPhone,
		"total":          order.Total,
	})

	return h.formatOrderConfirmation(order), nil
}

// tokenPattern extracts maximal alphanumeric item codes; a single leading
// marker character such as '#' is simply not part of the token
var tokenPattern = regexp.MustCompile(`[A-Za-z0-9]+`)

// parseOrderItems is the shared code-token parser: normalize to uppercase,
// deduplicate preserving first-seen order, keep only available catalog matches
func (h *baseHandler) parseOrderItems(ctx context.Context, text string) (models.OrderItems, error) {
	tenant := h.Tenant()

	var items models.OrderItems
	seen := make(map[string]struct{})

	for _, token := range tokenPattern.FindAllString(text, -1) {
		code := strings.ToUpper(token)
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}

		item, err := h.store.GetCatalogItemByCode(ctx, tenant.ID, code)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup catalog item %q: %w", code, err)
		}
		if !item.Available {
			continue
		}

		items = append(items, models.OrderItem{
			ItemID:   item.ID,
			Code:     item.Code,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: 1,
		})
	}

	return items, nil
}

// ProcessOrder persists a new pending order with the snapshot total and
// bumps the tenant's order counter
func (h *baseHandler) ProcessOrder(ctx context.Context, items models.OrderItems, info CustomerInfo) (*models.Order, error) {
	tenant := h.Tenant()

	order := &models.Order{
		TenantID:        tenant.ID,
		CustomerPhone:   info.Phone,
		Items:           items,
		Total:           items.Total(),
		DeliveryType:    info.DeliveryType,
		DeliveryAddress: info.Address,
		Status:          models.OrderStatusPending,
	}

	if err := h.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// Counter failure must not lose an already persisted order
	if err := h.store.IncrementUsage(ctx, tenant.ID, storage.UsageCounterOrder); err != nil {
		log.Warn().Err(err).Str("tenant", tenant.ID.String()).Msg("Failed to increment order counter")
	}

	return order, nil
}

// ComposeNotification maps a status transition to customer text using the
// variant's templates, with a generic fallback for unmapped statuses
func (h *baseHandler) ComposeNotification(ctx context.Context, order *models.Order, status models.OrderStatus) (*Notification, error) {
	text, ok := h.variant.StatusTemplates(order)[status]
	if !ok {
		text = fmt.Sprintf("Order #%s status: %s", order.OrderNumber, status)
	}

	return &Notification{
		Recipient: order.CustomerPhone,
		Text:      text,
	}, nil
}

// defaultStatusTemplates is the base template set variants start from
func (h *baseHandler) defaultStatusTemplates(order *models.Order) map[models.OrderStatus]string {
	return map[models.OrderStatus]string{
		models.OrderStatusConfirmed: "✅ Your order has been confirmed!",
		models.OrderStatusPreparing: "👨‍🍳 Your order is being prepared...",
		models.OrderStatusReady:     "🎉 Your order is ready for pickup/delivery!",
		models.OrderStatusDelivered: "✅ Order delivered! Thank you!",
		models.OrderStatusCancelled: "❌ Your order has been cancelled.",
	}
}

// formatOrderSummary renders the pending items and asks for a delivery address
func (h *baseHandler) formatOrderSummary(items models.OrderItems, total float64) string {
	var b strings.Builder
	b.WriteString("📋 *ORDER SUMMARY*\n\n")

	for _, item := range items {
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		fmt.Fprintf(&b, "• %s", item.Name)
		if qty > 1 {
			fmt.Fprintf(&b, " (x%d)", qty)
		}
		fmt.Fprintf(&b, " - R%.2f\n", item.Price*float64(qty))
	}

	fmt.Fprintf(&b, "\n*TOTAL: R%.2f*\n\n", total)
	b.WriteString("📍 Please reply with your delivery address or \"pickup\" if collecting in-store.")

	return b.String()
}

// formatOrderConfirmation renders the final confirmation after order creation
func (h *baseHandler) formatOrderConfirmation(order *models.Order) string {
	tenant := h.Tenant()
	emoji := tenant.Emoji("✅")

	var b strings.Builder
	fmt.Fprintf(&b, "%s *ORDER CONFIRMED!*\n\n", emoji)
	fmt.Fprintf(&b, "Order #%s\n\n", order.OrderNumber)
	b.WriteString("📋 Items:\n")

	for _, item := range order.Items {
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		fmt.Fprintf(&b, "• %s", item.Name)
		if qty > 1 {
			fmt.Fprintf(&b, " (x%d)", qty)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n💰 Total: R%.2f\n", order.Total)
	fmt.Fprintf(&b, "📍 %s\n\n", order.DeliveryAddress)
	b.WriteString("⏱️ Your order will be ready in 30-45 minutes.\n")
	b.WriteString("💳 Payment on delivery/collection.\n\n")
	fmt.Fprintf(&b, "Thank you for choosing %s! %s", tenant.BusinessName, emoji)

	return b.String()
}

// customerOrders lists the customer's five most recent orders
func (h *baseHandler) customerOrders(ctx context.Context, customerPhone string) (string, error) {
	tenant := h.Tenant()

	orders, err := h.store.ListCustomerOrders(ctx, tenant.ID, customerPhone, 5)
	if err != nil {
		return "", fmt.Errorf("list customer orders: %w", err)
	}

	if len(orders) == 0 {
		return "📋 You have no previous orders.\n\nType \"menu\" to place your first order!", nil
	}

	var b strings.Builder
	b.WriteString("📋 *YOUR RECENT ORDERS*\n\n")

	for _, order := range orders {
		fmt.Fprintf(&b, "*Order #%s* - %s\n", order.OrderNumber, order.CreatedAt.Format("02/01/2006"))
		fmt.Fprintf(&b, "Status: %s\n", formatStatus(order.Status))
		fmt.Fprintf(&b, "Total: R%.2f\n\n", order.Total)
	}

	b.WriteString("Type \"menu\" to place a new order!")

	return b.String(), nil
}

// formatStatus decorates an order status for customer display
func formatStatus(status models.OrderStatus) string {
	switch status {
	case models.OrderStatusPending:
		return "⏳ Pending"
	case models.OrderStatusConfirmed:
		return "✅ Confirmed"
	case models.OrderStatusPreparing:
		return "👨‍🍳 Preparing"
	case models.OrderStatusReady:
		return "🎉 Ready"
	case models.OrderStatusDelivered:
		return "✅ Delivered"
	case models.OrderStatusCancelled:
		return "❌ Cancelled"
	default:
		return string(status)
	}
}

// businessInfo renders the tenant's contact block for catalog and help texts
func (h *baseHandler) businessInfo() string {
	tenant := h.Tenant()

	var b strings.Builder
	fmt.Fprintf(&b, "📍 %s\n", tenant.BusinessName)
	if tenant.Address != "" {
		fmt.Fprintf(&b, "%s\n", tenant.Address)
	}
	if tenant.PhoneNumber != "" {
		fmt.Fprintf(&b, "📞 %s\n", tenant.PhoneNumber)
	}
	return b.String()
}

// logActivity records a business event; failures never propagate
func (h *baseHandler) logActivity(ctx context.Context, action string, details models.Variables) {
	entry := &models.ActivityLog{
		TenantID: h.Tenant().ID,
		Action:   action,
		Details:  details,
	}
	if err := h.store.LogActivity(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("Failed to log activity")
	}
}
