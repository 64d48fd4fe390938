package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/internal/storage"
)

// ErrUnknownBusinessType marks a tenant configured with a business type no
// handler variant is registered for. This is a configuration error.
var ErrUnknownBusinessType = errors.New("unknown business type")

// Notification is a composed customer-facing message; sending is left to the caller
type Notification struct {
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

// CustomerInfo carries the delivery details collected during the conversation
type CustomerInfo struct {
	Phone        string
	Address      string
	DeliveryType models.DeliveryType
}

// Handler is the capability contract every business-type variant satisfies.
// One instance serves one tenant; the registry owns its lifecycle.
type Handler interface {
	// HandleMessage advances the customer's conversation one turn and
	// returns the reply text.
	HandleMessage(ctx context.Context, customerPhone, text string) (string, error)

	// FormatCatalog renders the tenant's catalog for display.
	FormatCatalog(ctx context.Context) (string, error)

	// ParseOrderItems extracts priced line items from free text.
	ParseOrderItems(ctx context.Context, text string) (models.OrderItems, error)

	// ProcessOrder persists an order built from the given items.
	ProcessOrder(ctx context.Context, items models.OrderItems, info CustomerInfo) (*models.Order, error)

	// ComposeNotification maps an order-status transition to customer text.
	ComposeNotification(ctx context.Context, order *models.Order, status models.OrderStatus) (*Notification, error)

	// Initialize is called once when the registry loads the instance.
	Initialize(ctx context.Context) error

	// Cleanup is called when the registry unloads the instance.
	Cleanup(ctx context.Context) error

	// Tenant returns the current tenant snapshot.
	Tenant() *models.Tenant

	// SetTenant refreshes the tenant snapshot without re-initializing.
	SetTenant(tenant *models.Tenant)
}

// Constructor builds a handler variant for one tenant
type Constructor func(tenant *models.Tenant, store storage.Store) Handler

// constructors is the closed registry of handler variants
var constructors = map[models.BusinessType]Constructor{
	models.BusinessTypeRestaurant: NewRestaurantHandler,
	models.BusinessTypePharmacy:   NewPharmacyHandler,
	models.BusinessTypeRetail:     NewRetailHandler,
}

// New selects and builds the handler variant for the tenant's business type
func New(tenant *models.Tenant, store storage.Store) (Handler, error) {
	ctor, ok := constructors[tenant.BusinessType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBusinessType, tenant.BusinessType)
	}
	return ctor(tenant, store), nil
}
