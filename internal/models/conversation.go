package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversationStep marks the customer's progress through the ordering dialogue
type ConversationStep string

const (
	StepIdle            ConversationStep = "idle"
	StepViewingMenu     ConversationStep = "viewing_menu"
	StepAwaitingAddress ConversationStep = "awaiting_address"
)

// ConversationState is the per (tenant, customer) dialogue marker. Exactly one
// logical state exists per key; it is cleared when an order completes.
type ConversationState struct {
	TenantID      uuid.UUID `json:"tenantId" db:"tenant_id"`
	CustomerPhone string    `json:"customerPhone" db:"customer_phone"`

	CurrentStep ConversationStep `json:"currentStep" db:"current_step"`

	// Step-scoped payload: pending items and their total while awaiting an address
	Items OrderItems `json:"items" db:"items"`
	Total float64    `json:"total" db:"total"`

	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
