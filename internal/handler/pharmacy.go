package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/internal/storage"
)

// PharmacyHandler drives the pharmacy ordering workflow
type PharmacyHandler struct {
	baseHandler
}

// NewPharmacyHandler creates the pharmacy variant for one tenant
func NewPharmacyHandler(tenant *models.Tenant, store storage.Store) Handler {
	h := &PharmacyHandler{}
	h.baseHandler = newBaseHandler(tenant, store, h)
	return h
}

// FormatCatalog renders the product list grouped by category with a trailing
// script notice, overridable via the handler config "script_notice" key
func (h *PharmacyHandler) FormatCatalog(ctx context.Context) (string, error) {
	tenant := h.Tenant()
	emoji := tenant.Emoji("💊")

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
	fmt.Fprintf(&b, "%s *%s - PRODUCTS* %s\n\n", emoji, strings.ToUpper(tenant.BusinessName), emoji)
	b.WriteString(h.businessInfo())
	b.WriteString("\n")

	for _, category := range categories {
		fmt.Fprintf(&b, "*%s*\n", strings.ToUpper(category))
		for _, item := range byCategory[category] {
			fmt.Fprintf(&b, "#%s - %s - R%.2f\n", item.Code, item.Name, item.Price)
		}
		b.WriteString("\n")
	}

	b.WriteString("💬 *To order, reply with product codes*\n")
	b.WriteString("Example: #P01 #P05\n\n")
	fmt.Fprintf(&b, "⚕️ _%s_", tenant.HandlerConfig.String("script_notice",
		"Prescription items require a valid script on collection."))

	return b.String(), nil
}

// ParseOrderItems uses the shared code-token parser
func (h *PharmacyHandler) ParseOrderItems(ctx context.Context, text string) (models.OrderItems, error) {
	return h.parseOrderItems(ctx, text)
}

// StatusTemplates keeps the defaults but adjusts the ready and delivered texts
func (h *PharmacyHandler) StatusTemplates(order *models.Order) map[models.OrderStatus]string {
	tenant := h.Tenant()

	templates := h.defaultStatusTemplates(order)
	templates[models.OrderStatusReady] = fmt.Sprintf(
		"💊 *Order Ready*\n\nYour order #%s is ready.\n\nPlease bring your prescription if any items require one.", order.OrderNumber)
	templates[models.OrderStatusDelivered] = fmt.Sprintf(
		"✅ *Order Delivered*\n\nThank you for choosing %s. Get well soon! 💊", tenant.BusinessName)
	return templates
}

// HelpText lists the available commands
func (h *PharmacyHandler) HelpText() string {
	tenant := h.Tenant()
	emoji := tenant.Emoji("💊")

	return fmt.Sprintf("%s *%s - HELP* %s\n\n", emoji, tenant.BusinessName, emoji) +
		"*Available Commands:*\n" +
		"• \"menu\" - View our products\n" +
		"• \"orders\" - View your order history\n" +
		"• \"help\" - Show this help message\n\n" +
		"Reply with product codes (e.g., #P01 #P05) to order.\n\n" +
		h.businessInfo()
}

// ParseGuidance is returned when no product codes could be matched
func (h *PharmacyHandler) ParseGuidance() string {
	return "❌ I could not find those products. Please use product codes like: #P01 #P05\n\nType \"menu\" to see the product list."
}

// IdlePrompt nudges the customer towards the product list
func (h *PharmacyHandler) IdlePrompt() string {
	return "Type \"menu\" to see our products! 💊"
}
