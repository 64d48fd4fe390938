package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/internal/storage"
)

// RestaurantHandler drives the food ordering workflow
type RestaurantHandler struct {
	baseHandler
}

// NewRestaurantHandler creates the restaurant variant for one tenant
func NewRestaurantHandler(tenant *models.Tenant, store storage.Store) Handler {
	h := &RestaurantHandler{}
	h.baseHandler = newBaseHandler(tenant, store, h)
	return h
}

// Initialize loads restaurant-specific configuration
func (h *RestaurantHandler) Initialize(ctx context.Context) error {
	if err := h.baseHandler.Initialize(ctx); err != nil {
		return err
	}

	tenant := h.Tenant()
	if radius := tenant.HandlerConfig.String("delivery_radius", ""); radius != "" {
		log.Info().
			Str("tenant", tenant.BusinessName).
			Str("delivery_radius", radius).
			Msg("Delivery radius configured")
	}

	return nil
}

// FormatCatalog renders the menu grouped by category
func (h *RestaurantHandler) FormatCatalog(ctx context.Context) (string, error) {
	tenant := h.Tenant()
	emoji := tenant.Emoji("🍽️")

	items, err := h.store.ListCatalogItems(ctx, tenant.ID)
	if err != nil {
		return "", fmt.Errorf("list catalog items: %w", err)
	}

	available := lo.Filter(items, func(item *models.CatalogItem, _ int) bool {
		return item.Available
	})
	byCategory := lo.GroupBy(available, func(item *models.CatalogItem) string {
		return item.Category
	})
	categories := lo.Uniq(lo.Map(available, func(item *models.CatalogItem, _ int) string {
		return item.Category
	}))

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s - MENU* %s\n\n", emoji, strings.ToUpper(tenant.BusinessName), emoji)
	b.WriteString(h.businessInfo())
	b.WriteString("\n")

	for _, category := range categories {
		fmt.Fprintf(&b, "*%s*\n", strings.ToUpper(category))
		for _, item := range byCategory[category] {
			fmt.Fprintf(&b, "#%s - %s - R%.2f\n", item.Code, item.Name, item.Price)
			if item.Description != "" {
				fmt.Fprintf(&b, "   _%s_\n", item.Description)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("💬 *To order, reply with item numbers*\n")
	b.WriteString("Example: #01 #07 #12\n\n")
	b.WriteString("_We look forward to serving you!_ 😊")

	return b.String(), nil
}

// ParseOrderItems uses the shared code-token parser
func (h *RestaurantHandler) ParseOrderItems(ctx context.Context, text string) (models.OrderItems, error) {
	return h.parseOrderItems(ctx, text)
}

// StatusTemplates overrides the defaults with restaurant wording; the ready
// text branches on the delivery type
func (h *RestaurantHandler) StatusTemplates(order *models.Order) map[models.OrderStatus]string {
	tenant := h.Tenant()
	emoji := tenant.Emoji("🍽️")

	ready := fmt.Sprintf("🎉 *Order Ready!*\n\nYour order #%s is ready for %s!\n\n", order.OrderNumber, order.DeliveryType)
	if order.DeliveryType == models.DeliveryTypePickup {
		ready += "Please collect at:\n" + tenant.Address
	} else {
		ready += "Our driver is on the way!"
	}

	return map[models.OrderStatus]string{
		models.OrderStatusConfirmed: fmt.Sprintf("%s *Order Confirmed!*\n\nYour order #%s has been confirmed!\nEstimated ready time: 30-45 minutes", emoji, order.OrderNumber),
		models.OrderStatusPreparing: fmt.Sprintf("👨‍🍳 *Order in Progress*\n\nYour order #%s is being prepared...", order.OrderNumber),
		models.OrderStatusReady:     ready,
		models.OrderStatusDelivered: fmt.Sprintf("✅ *Order Delivered*\n\nThank you for choosing %s!\n\nWe hope you enjoyed your meal %s", tenant.BusinessName, emoji),
		models.OrderStatusCancelled: fmt.Sprintf("❌ *Order Cancelled*\n\nYour order #%s has been cancelled.\n\nIf you have questions, please contact us.", order.OrderNumber),
	}
}

// HelpText lists the available commands
func (h *RestaurantHandler) HelpText() string {
	tenant := h.Tenant()
	emoji := tenant.Emoji("🍽️")

	return fmt.Sprintf("%s *%s - HELP* %s\n\n", emoji, tenant.BusinessName, emoji) +
		"*Available Commands:*\n" +
		"• \"menu\" - View our menu\n" +
		"• \"orders\" - View your order history\n" +
		"• \"help\" - Show this help message\n\n" +
		"*How to Order:*\n" +
		"1. Type \"menu\" to see available items\n" +
		"2. Reply with item numbers (e.g., #01 #07)\n" +
		"3. Provide your delivery address\n" +
		"4. Confirm your order!\n\n" +
		h.businessInfo() + "\n" +
		"Type \"menu\" to get started! 😊"
}

// ParseGuidance is returned when no item codes could be matched
func (h *RestaurantHandler) ParseGuidance() string {
	return "❌ I could not understand that order. Please use item numbers like: #01 #07\n\nType \"menu\" to see the menu again."
}

// IdlePrompt nudges the customer towards the menu
func (h *RestaurantHandler) IdlePrompt() string {
	return "Type \"menu\" to start ordering! 🍽️"
}
