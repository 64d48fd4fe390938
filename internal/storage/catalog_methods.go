package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/whatsorder/whatsorder-server/internal/models"
)

const catalogColumns = `id, created_at, updated_at, tenant_id, code, name, description,
	price, category, available`

func scanCatalogItem(row interface{ Scan(...interface{}) error }) (*models.CatalogItem, error) {
	item := &models.CatalogItem{}
	err := row.Scan(
		&item.ID, &item.CreatedAt, &item.UpdatedAt, &item.TenantID, &item.Code,
		&item.Name, &item.Description, &item.Price, &item.Category, &item.Available,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return item, err
}

// CreateCatalogItem creates a new catalog item
func (s *PostgresStore) CreateCatalogItem(ctx context.Context, item *models.CatalogItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now

	query := `
		INSERT INTO catalog_items (
			id, created_at, updated_at, tenant_id, code, name, description,
			price, category, available
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := s.getDB().ExecContext(ctx, query,
		item.ID, item.CreatedAt, item.UpdatedAt, item.TenantID, item.Code,
		item.Name, item.Description, item.Price, item.Category, item.Available,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateKey
		}
		return err
	}

	return nil
}

// GetCatalogItem gets a catalog item by ID
func (s *PostgresStore) GetCatalogItem(ctx context.Context, id uuid.UUID) (*models.CatalogItem, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_items WHERE id = $1`
	return scanCatalogItem(s.getDB().QueryRowContext(ctx, query, id))
}

// GetCatalogItemByCode gets a tenant's catalog item by case-insensitive code
func (s *PostgresStore) GetCatalogItemByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.CatalogItem, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_items
		WHERE tenant_id = $1 AND UPPER(code) = UPPER($2)`
	return scanCatalogItem(s.getDB().QueryRowContext(ctx, query, tenantID, code))
}

// UpdateCatalogItem updates a catalog item
func (s *PostgresStore) UpdateCatalogItem(ctx context.Context, item *models.CatalogItem) error {
	item.UpdatedAt = time.Now()

	query := `
		UPDATE catalog_items SET
			updated_at = $2, code = $3, name = $4, description = $5,
			price = $6, category = $7, available = $8
		WHERE id = $1`

	result, err := s.getDB().ExecContext(ctx, query,
		item.ID, item.UpdatedAt, item.Code, item.Name, item.Description,
		item.Price, item.Category, item.Available,
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

// DeleteCatalogItem deletes a catalog item
func (s *PostgresStore) DeleteCatalogItem(ctx context.Context, id uuid.UUID) error {
	result, err := s.getDB().ExecContext(ctx, "DELETE FROM catalog_items WHERE id = $1", id)
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

// ListCatalogItems lists a tenant's catalog ordered by category and code
func (s *PostgresStore) ListCatalogItems(ctx context.Context, tenantID uuid.UUID) ([]*models.CatalogItem, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog_items
		WHERE tenant_id = $1 ORDER BY category, code`

	rows, err := s.getDB().QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
