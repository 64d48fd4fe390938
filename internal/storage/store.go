package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/whatsorder/whatsorder-server/internal/models"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidData  = errors.New("invalid data")
)

// Usage counters tracked per tenant
const (
	UsageCounterMessage = "message"
	UsageCounterOrder   = "order"
)

// Store defines the persistence interface
type Store interface {
	// Transaction support
	BeginTx(ctx context.Context) (Store, error)
	Commit() error
	Rollback() error

	// Tenant methods
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetTenantBySession(ctx context.Context, sessionID string) (*models.Tenant, error)
	GetTenantByPhone(ctx context.Context, phone string) (*models.Tenant, error)
	UpdateTenant(ctx context.Context, tenant *models.Tenant) error
	DeleteTenant(ctx context.Context, id uuid.UUID) error
	ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error)
	ListActiveTenants(ctx context.Context) ([]*models.Tenant, error)
	GetTenantStats(ctx context.Context, id uuid.UUID) (*models.TenantStats, error)
	IncrementUsage(ctx context.Context, tenantID uuid.UUID, counter string) error

	// Catalog methods
	CreateCatalogItem(ctx context.Context, item *models.CatalogItem) error
	GetCatalogItem(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error)
	GetCatalogItemByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.CatalogItem, error)
	UpdateCatalogItem(ctx context.Context, item *models.CatalogItem) error
	DeleteCatalogItem(ctx context.Context, id uuid.UUID) error
	ListCatalogItems(ctx context.Context, tenantID uuid.UUID) ([]*models.CatalogItem, error)

	// Order methods
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Order, int64, error)
	ListCustomerOrders(ctx context.Context, tenantID uuid.UUID, customerPhone string, limit int) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error

	// Conversation state methods
	GetConversationState(ctx context.Context, tenantID uuid.UUID, customerPhone string) (*models.ConversationState, error)
	SaveConversationState(ctx context.Context, state *models.ConversationState) error
	ClearConversationState(ctx context.Context, tenantID uuid.UUID, customerPhone string) error

	// User methods
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// Logging methods
	LogInteraction(ctx context.Context, entry *models.InteractionLog) error
	LogActivity(ctx context.Context, entry *models.ActivityLog) error

	// Close the store
	Close() error
}
