package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/internal/storage"
)

// RetailHandler drives the general retail ordering workflow
type RetailHandler struct {
	baseHandler
}

// NewRetailHandler creates the retail variant for one tenant
func NewRetailHandler(tenant *models.Tenant, store storage.Store) Handler {
	h := &RetailHandler{}
	h.baseHandler = newBaseHandler(tenant, store, h)
	return h
}

// FormatCatalog renders a flat product list; retail catalogs are usually
// small enough that category headers add noise
func (h *RetailHandler) FormatCatalog(ctx context.Context) (string, error) {
	tenant := h.Tenant()
	emoji := tenant.Emoji("🛍️")

	items, err := h.store.ListCatalogItems(ctx, tenant.ID)
	if err != nil {
		return "", fmt.Errorf("list catalog items: %w", err)
	}

	available := lo.Filter(items, func(item *models.CatalogItem, _ int) bool {
		return item.Available
	})

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s - CATALOG* %s\n\n", emoji, strings.ToUpper(tenant.BusinessName), emoji)
	b.WriteString(h.businessInfo())
	b.WriteString("\n")

	for _, item := range available {
		fmt.Fprintf(&b, "#%s - %s - R%.2f\n", item.Code, item.Name, item.Price)
	}

	b.WriteString("\n💬 *To order, reply with item codes*\n")
	b.WriteString("Example: #A1 #B2")

	return b.String(), nil
}

// ParseOrderItems uses the shared code-token parser
func (h *RetailHandler) ParseOrderItems(ctx context.Context, text string) (models.OrderItems, error) {
	return h.parseOrderItems(ctx, text)
}

// StatusTemplates uses the base defaults
func (h *RetailHandler) StatusTemplates(order *models.Order) map[models.OrderStatus]string {
	return h.defaultStatusTemplates(order)
}

// HelpText lists the available commands
func (h *RetailHandler) HelpText() string {
	tenant := h.Tenant()
	emoji := tenant.Emoji("🛍️")

	return fmt.Sprintf("%s *%s - HELP* %s\n\n", emoji, tenant.BusinessName, emoji) +
		"*Available Commands:*\n" +
		"• \"menu\" - View our catalog\n" +
		"• \"orders\" - View your order history\n" +
		"• \"help\" - Show this help message\n\n" +
		h.businessInfo()
}

// ParseGuidance is returned when no item codes could be matched
func (h *RetailHandler) ParseGuidance() string {
	return "❌ I could not find those items. Please use item codes like: #A1 #B2\n\nType \"menu\" to see the catalog."
}

// IdlePrompt nudges the customer towards the catalog
func (h *RetailHandler) IdlePrompt() string {
	return "Type \"menu\" to browse our catalog! 🛍️"
}
