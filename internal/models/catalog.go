package models

import (
	"time"

	"github.com/google/uuid"
)

// CatalogItem represents a priced, code-addressable product scoped to a tenant.
// Codes are unique within a tenant, compared case-insensitively.
type CatalogItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`

	Code        string  `json:"code" db:"code"`
	Name        string  `json:"name" db:"name"`
	Description string  `json:"description" db:"description"`
	Price       float64 `json:"price" db:"price"`
	Category    string  `json:"category" db:"category"`
	Available   bool    `json:"available" db:"available"`
}
