package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/whatsorder/whatsorder-server/internal/models"
)

const tenantColumns = `id, created_at, updated_at, business_name, business_type, status,
	session_id, phone_number, address, monthly_message_count, monthly_message_limit,
	monthly_order_count, branding, handler_config`

func scanTenant(row interface{ Scan(...interface{}) error }) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	err := row.Scan(
		&tenant.ID, &tenant.CreatedAt, &tenant.UpdatedAt, &tenant.BusinessName,
		&tenant.BusinessType, &tenant.Status, &tenant.SessionID, &tenant.PhoneNumber,
		&tenant.Address, &tenant.MonthlyMessageCount, &tenant.MonthlyMessageLimit,
		&tenant.MonthlyOrderCount, &tenant.Branding, &tenant.HandlerConfig,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return tenant, err
}

// CreateTenant creates a new tenant
func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}

	now := time.Now()
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	if tenant.Status == "" {
		tenant.Status = models.TenantStatusTrial
	}

	query := `
		INSERT INTO tenants (
			id, created_at, updated_at, business_name, business_type, status,
			session_id, phone_number, address, monthly_message_count,
			monthly_message_limit, monthly_order_count, branding, handler_config
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		tenant.ID, tenant.CreatedAt, tenant.UpdatedAt, tenant.BusinessName,
		tenant.BusinessType, tenant.Status, tenant.SessionID, tenant.PhoneNumber,
		tenant.Address, tenant.MonthlyMessageCount, tenant.MonthlyMessageLimit,
		tenant.MonthlyOrderCount, tenant.Branding, tenant.HandlerConfig,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetTenant gets a tenant by ID
func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(s.getDB().QueryRowContext(ctx, query, id))
}

// GetTenantBySession gets a tenant by messaging channel session ID
func (s *PostgresStore) GetTenantBySession(ctx context.Context, sessionID string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE session_id = $1`
	return scanTenant(s.getDB().QueryRowContext(ctx, query, sessionID))
}

// GetTenantByPhone gets a tenant by its business phone number
func (s *PostgresStore) GetTenantByPhone(ctx context.Context, phone string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE phone_number = $1`
	return scanTenant(s.getDB().QueryRowContext(ctx, query, phone))
}

// UpdateTenant updates a tenant
func (s *PostgresStore) UpdateTenant(ctx context.Context, tenant *models.Tenant) error {
	tenant.UpdatedAt = time.Now()

	query := `
		UPDATE tenants SET
			updated_at = $2, business_name = $3, business_type = $4, status = $5,
			session_id = $6, phone_number = $7, address = $8,
			monthly_message_limit = $9, branding = $10, handler_config = $11
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		tenant.ID, tenant.UpdatedAt, tenant.BusinessName, tenant.BusinessType,
		tenant.Status, tenant.SessionID, tenant.PhoneNumber, tenant.Address,
		tenant.MonthlyMessageLimit, tenant.Branding, tenant.HandlerConfig,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteTenant deletes a tenant
func (s *PostgresStore) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM tenants WHERE id = $1", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// ListTenants lists tenants
func (s *PostgresStore) ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error) {
	var count int64
	if err := s.getDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + tenantColumns + ` FROM tenants` +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.getDB().QueryContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, tenant)
	}

	return tenants, count, rows.Err()
}

// ListActiveTenants lists tenants that can receive messages
func (s *PostgresStore) ListActiveTenants(ctx context.Context) ([]*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants
		WHERE status IN ('active', 'trial') ORDER BY business_name`

	rows, err := s.getDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}

	return tenants, rows.Err()
}

// GetTenantStats aggregates usage statistics for a tenant
func (s *PostgresStore) GetTenantStats(ctx context.Context, id uuid.UUID) (*models.TenantStats, error) {
	tenant, err := s.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	stats := &models.TenantStats{
		TenantID:     id,
		MessagesUsed: tenant.MonthlyMessageCount,
		MessageLimit: tenant.MonthlyMessageLimit,
	}

	err = s.getDB().QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COALESCE(SUM(total), 0),
		       COUNT(DISTINCT customer_phone)
		FROM orders WHERE tenant_id = $1`, id).Scan(
		&stats.TotalOrders, &stats.PendingOrders, &stats.TotalRevenue, &stats.UniqueCustomers,
	)
	if err != nil {
		return nil, err
	}

	err = s.getDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM catalog_items WHERE tenant_id = $1`, id).Scan(&stats.CatalogItems)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// IncrementUsage increments a per-tenant usage counter
func (s *PostgresStore) IncrementUsage(ctx context.Context, tenantID uuid.UUID, counter string) error {
	var column string
	switch counter {
	case UsageCounterMessage:
		column = "monthly_message_count"
	case UsageCounterOrder:
		column = "monthly_order_count"
	default:
		return fmt.Errorf("%w: unknown usage counter %q", ErrInvalidData, counter)
	}

	query := fmt.Sprintf(`UPDATE tenants SET %s = %s + 1, updated_at = $2 WHERE id = $1`, column, column)

	result, err := s.getDB().ExecContext(ctx, query, tenantID, time.Now())
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
