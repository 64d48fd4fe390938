package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/whatsorder/whatsorder-server/internal/models"
	"github.com/whatsorder/whatsorder-server/pkg/crypto"
)

// MemoryStore implements Store with in-process maps. It backs the "memory"
// database driver for local development and is the test double for every
// package that consumes Store.
type MemoryStore struct {
	mu sync.RWMutex

	tenants       map[uuid.UUID]*models.Tenant
	catalogItems  map[uuid.UUID]*models.CatalogItem
	orders        map[uuid.UUID]*models.Order
	conversations map[string]*models.ConversationState
	users         map[uuid.UUID]*models.User

	interactions []*models.InteractionLog
	activities   []*models.ActivityLog

	orderSeq int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:       make(map[uuid.UUID]*models.Tenant),
		catalogItems:  make(map[uuid.UUID]*models.CatalogItem),
		orders:        make(map[uuid.UUID]*models.Order),
		conversations: make(map[string]*models.ConversationState),
		users:         make(map[uuid.UUID]*models.User),
	}
}

func conversationKey(tenantID uuid.UUID, customerPhone string) string {
	return tenantID.String() + ":" + customerPhone
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error { return nil }

// BeginTx returns the store itself; memory operations are atomic per call
func (s *MemoryStore) BeginTx(ctx context.Context) (Store, error) { return s, nil }

// Commit is a no-op
func (s *MemoryStore) Commit() error { return nil }

// Rollback is a no-op
func (s *MemoryStore) Rollback() error { return nil }

// ========== Tenant methods ==========

func (s *MemoryStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	for _, t := range s.tenants {
		if t.SessionID == tenant.SessionID {
			return ErrDuplicateKey
		}
	}

	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now
	if tenant.Status == "" {
		tenant.Status = models.TenantStatusTrial
	}

	cp := *tenant
	s.tenants[tenant.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenant, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *tenant
	return &cp, nil
}

func (s *MemoryStore) GetTenantBySession(ctx context.Context, sessionID string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tenant := range s.tenants {
		if tenant.SessionID == sessionID {
			cp := *tenant
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetTenantByPhone(ctx context.Context, phone string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tenant := range s.tenants {
		if tenant.PhoneNumber == phone {
			cp := *tenant
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tenants[tenant.ID]
	if !ok {
		return ErrNotFound
	}

	tenant.CreatedAt = existing.CreatedAt
	tenant.MonthlyMessageCount = existing.MonthlyMessageCount
	tenant.MonthlyOrderCount = existing.MonthlyOrderCount
	tenant.UpdatedAt = time.Now()

	cp := *tenant
	s.tenants[tenant.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[id]; !ok {
		return ErrNotFound
	}
	delete(s.tenants, id)
	return nil
}

func (s *MemoryStore) ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*models.Tenant, 0, len(s.tenants))
	for _, tenant := range s.tenants {
		cp := *tenant
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *MemoryStore) ListActiveTenants(ctx context.Context) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*models.Tenant
	for _, tenant := range s.tenants {
		if tenant.CanReceiveMessages() {
			cp := *tenant
			active = append(active, &cp)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].BusinessName < active[j].BusinessName })
	return active, nil
}

func (s *MemoryStore) GetTenantStats(ctx context.Context, id uuid.UUID) (*models.TenantStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenant, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}

	stats := &models.TenantStats{
		TenantID:     id,
		MessagesUsed: tenant.MonthlyMessageCount,
		MessageLimit: tenant.MonthlyMessageLimit,
	}

	customers := make(map[string]struct{})
	for _, order := range s.orders {
		if order.TenantID != id {
			continue
		}
		stats.TotalOrders++
		stats.TotalRevenue += order.Total
		if order.Status == models.OrderStatusPending {
			stats.PendingOrders++
		}
		customers[order.CustomerPhone] = struct{}{}
	}
	stats.UniqueCustomers = int64(len(customers))

	for _, item := range s.catalogItems {
		if item.TenantID == id {
			stats.CatalogItems++
		}
	}

	return stats, nil
}

func (s *MemoryStore) IncrementUsage(ctx context.Context, tenantID uuid.UUID, counter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.tenants[tenantID]
	if !ok {
		return ErrNotFound
	}

	switch counter {
	case UsageCounterMessage:
		tenant.MonthlyMessageCount++
	case UsageCounterOrder:
		tenant.MonthlyOrderCount++
	default:
		return fmt.Errorf("%w: unknown usage counter %q", ErrInvalidData, counter)
	}
	tenant.UpdatedAt = time.Now()
	return nil
}

// ========== Catalog methods ==========

func (s *MemoryStore) CreateCatalogItem(ctx context.Context, item *models.CatalogItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	for _, existing := range s.catalogItems {
		if existing.TenantID == item.TenantID && strings.EqualFold(existing.Code, item.Code) {
			return ErrDuplicateKey
		}
	}

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	cp := *item
	s.catalogItems[item.ID] = &cp
	return nil
}

func (s *MemoryStore) GetCatalogItem(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.catalogItems[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *MemoryStore) GetCatalogItemByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.catalogItems {
		if item.TenantID == tenantID && strings.EqualFold(item.Code, code) {
			cp := *item
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateCatalogItem(ctx context.Context, item *models.CatalogItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.catalogItems[item.ID]
	if !ok {
		return ErrNotFound
	}

	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = time.Now()

	cp := *item
	s.catalogItems[item.ID] = &cp
	return nil
}

func (s *MemoryStore) DeleteCatalogItem(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.catalogItems[id]; !ok {
		return ErrNotFound
	}
	delete(s.catalogItems, id)
	return nil
}

func (s *MemoryStore) ListCatalogItems(ctx context.Context, tenantID uuid.UUID) ([]*models.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []*models.CatalogItem
	for _, item := range s.catalogItems {
		if item.TenantID == tenantID {
			cp := *item
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].Code < items[j].Code
	})
	return items, nil
}

// ========== Order methods ==========

func (s *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.OrderNumber == "" {
		s.orderSeq++
		order.OrderNumber = fmt.Sprintf("%04d", s.orderSeq)
	}

	cp := *order
	s.orders[order.ID] = &cp
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (s *MemoryStore) ListOrders(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.Order, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*models.Order
	for _, order := range s.orders {
		if order.TenantID == tenantID {
			cp := *order
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *MemoryStore) ListCustomerOrders(ctx context.Context, tenantID uuid.UUID, customerPhone string, limit int) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []*models.Order
	for _, order := range s.orders {
		if order.TenantID == tenantID && order.CustomerPhone == customerPhone {
			cp := *order
			orders = append(orders, &cp)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })

	if limit > 0 && limit < len(orders) {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	return nil
}

// ========== Conversation state methods ==========

func (s *MemoryStore) GetConversationState(ctx context.Context, tenantID uuid.UUID, customerPhone string) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.conversations[conversationKey(tenantID, customerPhone)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *state
	return &cp, nil
}

func (s *MemoryStore) SaveConversationState(ctx context.Context, state *models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.UpdatedAt = time.Now()
	cp := *state
	s.conversations[conversationKey(state.TenantID, state.CustomerPhone)] = &cp
	return nil
}

func (s *MemoryStore) ClearConversationState(ctx context.Context, tenantID uuid.UUID, customerPhone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, conversationKey(tenantID, customerPhone))
	return nil
}

// ========== User methods ==========

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return ErrDuplicateKey
		}
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if pwd, ok := user.Settings["password"].(string); ok && pwd != "" {
		hash, err := crypto.HashPassword(pwd)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
		delete(user.Settings, "password")
	}

	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ========== Logging methods ==========

func (s *MemoryStore) LogInteraction(ctx context.Context, entry *models.InteractionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	cp := *entry
	s.interactions = append(s.interactions, &cp)
	return nil
}

func (s *MemoryStore) LogActivity(ctx context.Context, entry *models.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	cp := *entry
	s.activities = append(s.activities, &cp)
	return nil
}

// Interactions returns a snapshot of logged interactions, oldest first
func (s *MemoryStore) Interactions() []*models.InteractionLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.InteractionLog(nil), s.interactions...)
}

// Activities returns a snapshot of logged activities, oldest first
func (s *MemoryStore) Activities() []*models.ActivityLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.ActivityLog(nil), s.activities...)
}
