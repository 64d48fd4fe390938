package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/pkg/crypto"
)

func newStoreWithTenant(t *testing.T) (*MemoryStore, *models.Tenant) {
	t.Helper()

	store := NewMemoryStore()
	tenant := &models.Tenant{
		BusinessName: "Sunset Grill",
		BusinessType: models.BusinessTypeRestaurant,
		Status:       models.TenantStatusActive,
		SessionID:    "sunset-grill",
		PhoneNumber:  "27825550000",
	}
	require.NoError(t, store.CreateTenant(context.Background(), tenant))
	return store, tenant
}

func TestTenantLookup(t *testing.T) {
	store, tenant := newStoreWithTenant(t)
	ctx := context.Background()

	bySession, err := store.GetTenantBySession(ctx, "sunset-grill")
	require.NoError(t, err)
	require.Equal(t, tenant.ID, bySession.ID)

	byPhone, err := store.GetTenantByPhone(ctx, "27825550000")
	require.NoError(t, err)
	require.Equal(t, tenant.ID, byPhone.ID)

	_, err = store.GetTenantBySession(ctx, "unknown")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestDuplicateSessionRejected(t *testing.T) {
	store, _ := newStoreWithTenant(t)

	err := store.CreateTenant(context.Background(), &models.Tenant{
		BusinessName: "Copycat",
		SessionID:    "sunset-grill",
	})
	require.True(t, errors.Is(err, ErrDuplicateKey))
}

func TestUpdateTenantPreservesCounters(t *testing.T) {
	store, tenant := newStoreWithTenant(t)
	ctx := context.Background()

	require.NoError(t, store.IncrementUsage(ctx, tenant.ID, UsageCounterMessage))
	require.NoError(t, store.IncrementUsage(ctx, tenant.ID, UsageCounterMessage))
	require.NoError(t, store.IncrementUsage(ctx, tenant.ID, UsageCounterOrder))

	tenant.BusinessName = "Sunrise Grill"
	tenant.MonthlyMessageCount = 0
	require.NoError(t, store.UpdateTenant(ctx, tenant))

	stored, err := store.GetTenant(ctx, tenant.ID)
	require.NoError(t, err)
	require.Equal(t, "Sunrise Grill", stored.BusinessName)
	require.Equal(t, 2, stored.MonthlyMessageCount)
	require.Equal(t, 1, stored.MonthlyOrderCount)
}

func TestIncrementUsageUnknownCounter(t *testing.T) {
	store, tenant := newStoreWithTenant(t)

	err := store.IncrementUsage(context.Background(), tenant.ID, "visits")
	require.True(t, errors.Is(err, ErrInvalidData))
}

func TestCatalogCodeLookupIsCaseInsensitive(t *testing.T) {
	store, tenant := newStoreWithTenant(t)
	ctx := context.Background()

	item := &models.CatalogItem{
		TenantID:  tenant.ID,
		Code:      "A1",
		Name:      "House Salad",
		Price:     55,
		Available: true,
	}
	require.NoError(t, store.CreateCatalogItem(ctx, item))

	found, err := store.GetCatalogItemByCode(ctx, tenant.ID, "a1")
	require.NoError(t, err)
	require.Equal(t, item.ID, found.ID)

	// Codes are unique per tenant regardless of case
	err = store.CreateCatalogItem(ctx, &models.CatalogItem{
		TenantID: tenant.ID,
		Code:     "a1",
		Name:     "Duplicate",
	})
	require.True(t, errors.Is(err, ErrDuplicateKey))
}

func TestCatalogCodesAreTenantScoped(t *testing.T) {
	store, tenant := newStoreWithTenant(t)
	ctx := context.Background()

	other := &models.Tenant{BusinessName: "Other Place", SessionID: "other-place"}
	require.NoError(t, store.CreateTenant(ctx, other))

	require.NoError(t, store.CreateCatalogItem(ctx, &models.CatalogItem{
		TenantID: tenant.ID, Code: "01", Name: "Burger", Price: 80,
	}))
	require.NoError(t, store.CreateCatalogItem(ctx, &models.CatalogItem{
		TenantID: other.ID, Code: "01", Name: "Aspirin", Price: 20,
	}))

	found, err := store.GetCatalogItemByCode(ctx, other.ID, "01")
	require.NoError(t, err)
	require.Equal(t, "Aspirin", found.Name)
}

func TestOrderNumbersAreSequential(t *testing.T) {
	store, tenant := newStoreWithTenant(t)
	ctx := context.Background()

	first := &models.Order{TenantID: tenant.ID, CustomerPhone: "a"}
	second := &models.Order{TenantID: tenant.ID, CustomerPhone: "b"}

	require.NoError(t, store.CreateOrder(ctx, first))
	require.NoError(t, store.CreateOrder(ctx, second))

	require.Equal(t, "0001", first.OrderNumber)
	require.Equal(t, "0002", second.OrderNumber)
	require.Equal(t, models.OrderStatusPending, first.Status)
}

func TestListCustomerOrdersMostRecentFirst(t *testing.T) {
	store, tenant := newStoreWithTenant(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		order := &models.Order{TenantID: tenant.ID, CustomerPhone: "cust", Total: float64(i)}
		require.NoError(t, store.CreateOrder(ctx, order))
		// CreatedAt granularity
		time.Sleep(time.Millisecond)
	}

	orders, err := store.ListCustomerOrders(ctx, tenant.ID, "cust", 2)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, 2.0, orders[0].Total)
	require.Equal(t, 1.0, orders[1].Total)
}

func TestUpdateOrderStatus(t *testing.T) {
	store, tenant := newStoreWithTenant(t)
	ctx := context.Background()

	order := &models.Order{TenantID: tenant.ID, CustomerPhone: "cust"}
	require.NoError(t, store.CreateOrder(ctx, order))

	require.NoError(t, store.UpdateOrderStatus(ctx, order.ID, models.OrderStatusReady))

	stored, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusReady, stored.Status)
}

func TestConversationStateLifecycle(t *testing.T) {
	store, tenant := newStoreWithTenant(t)
	ctx := context.Background()

	_, err := store.GetConversationState(ctx, tenant.ID, "cust")
	require.True(t, errors.Is(err, ErrNotFound))

	state := &models.ConversationState{
		TenantID:      tenant.ID,
		CustomerPhone: "cust",
		CurrentStep:   models.StepViewingMenu,
	}
	require.NoError(t, store.SaveConversationState(ctx, state))

	// Saving again upserts, one logical state per key
	state.CurrentStep = models.StepAwaitingAddress
	require.NoError(t, store.SaveConversationState(ctx, state))

	stored, err := store.GetConversationState(ctx, tenant.ID, "cust")
	require.NoError(t, err)
	require.Equal(t, models.StepAwaitingAddress, stored.CurrentStep)

	require.NoError(t, store.ClearConversationState(ctx, tenant.ID, "cust"))
	_, err = store.GetConversationState(ctx, tenant.ID, "cust")
	require.True(t, errors.Is(err, ErrNotFound))

	// Clearing an absent state is not an error
	require.NoError(t, store.ClearConversationState(ctx, tenant.ID, "cust"))
}

func TestCreateUserHashesPassword(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user := &models.User{
		Email:    "owner@example.com",
		Username: "owner",
		IsActive: true,
		Settings: models.Variables{"password": "s3cret-pw"},
	}
	require.NoError(t, store.CreateUser(ctx, user))

	stored, err := store.GetUserByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, stored.PasswordHash)
	require.NotEqual(t, "s3cret-pw", stored.PasswordHash)
	require.True(t, crypto.VerifyPassword("s3cret-pw", stored.PasswordHash))

	err = store.CreateUser(ctx, &models.User{Email: "owner@example.com"})
	require.True(t, errors.Is(err, ErrDuplicateKey))
}

func TestTenantStatsAggregation(t *testing.T) {
	store, tenant := newStoreWithTenant(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCatalogItem(ctx, &models.CatalogItem{
		TenantID: tenant.ID, Code: "01", Name: "Burger", Price: 80,
	}))

	require.NoError(t, store.CreateOrder(ctx, &models.Order{
		TenantID: tenant.ID, CustomerPhone: "a", Total: 100, Status: models.OrderStatusPending,
	}))
	require.NoError(t, store.CreateOrder(ctx, &models.Order{
		TenantID: tenant.ID, CustomerPhone: "a", Total: 50, Status: models.OrderStatusDelivered,
	}))
	require.NoError(t, store.CreateOrder(ctx, &models.Order{
		TenantID: tenant.ID, CustomerPhone: "b", Total: 25, Status: models.OrderStatusPending,
	}))

	stats, err := store.GetTenantStats(ctx, tenant.ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.TotalOrders)
	require.Equal(t, int64(2), stats.PendingOrders)
	require.Equal(t, 175.0, stats.TotalRevenue)
	require.Equal(t, int64(2), stats.UniqueCustomers)
	require.Equal(t, int64(1), stats.CatalogItems)
}
