package models

import (
	"time"

	"github.com/google/uuid"
)

// InteractionLog records one inbound message and the reply it produced
type InteractionLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	TenantID        uuid.UUID `json:"tenantId" db:"tenant_id"`
	CustomerPhone   string    `json:"customerPhone" db:"customer_phone"`
	IncomingMessage string    `json:"incomingMessage" db:"incoming_message"`
	OutgoingMessage string    `json:"outgoingMessage" db:"outgoing_message"`
}

// ActivityLog records a tenant-scoped business event for analytics
type ActivityLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	TenantID uuid.UUID `json:"tenantId" db:"tenant_id"`
	Action   string    `json:"action" db:"action"`
	Details  Variables `json:"details" db:"details"`
}
