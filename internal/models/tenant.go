package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantStatus represents the lifecycle state of a tenant account
type TenantStatus string

const (
	TenantStatusTrial     TenantStatus = "trial"
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusCancelled TenantStatus = "cancelled"
)

// BusinessType discriminates the conversational handler variant for a tenant
type BusinessType string

const (
	BusinessTypeRestaurant BusinessType = "restaurant"
	BusinessTypePharmacy   BusinessType = "pharmacy"
	BusinessTypeRetail     BusinessType = "retail"
)

// Tenant represents one onboarded business account
type Tenant struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	BusinessName string       `json:"businessName" db:"business_name"`
	BusinessType BusinessType `json:"businessType" db:"business_type"`
	Status       TenantStatus `json:"status" db:"status"`

	// Messaging channel binding
	SessionID   string `json:"sessionId" db:"session_id"`
	PhoneNumber string `json:"phoneNumber" db:"phone_number"`
	Address     string `json:"address" db:"address"`

	// Usage limits
	MonthlyMessageCount int `json:"monthlyMessageCount" db:"monthly_message_count"`
	MonthlyMessageLimit int `json:"monthlyMessageLimit" db:"monthly_message_limit"`
	MonthlyOrderCount   int `json:"monthlyOrderCount" db:"monthly_order_count"`

	Branding     Variables `json:"branding" db:"branding"`
	HandlerConfig Variables `json:"handlerConfig" db:"handler_config"`
}

// CanReceiveMessages reports whether the tenant may be routed to at all
func (t *Tenant) CanReceiveMessages() bool {
	return t.Status == TenantStatusActive || t.Status == TenantStatusTrial
}

// MessageLimitReached reports whether the monthly message ceiling is hit.
// A zero limit blocks every message.
func (t *Tenant) MessageLimitReached() bool {
	return t.MonthlyMessageCount >= t.MonthlyMessageLimit
}

// Emoji returns the branding emoji, falling back to def
func (t *Tenant) Emoji(def string) string {
	return t.Branding.String("emoji", def)
}

// TenantStats aggregates usage numbers for one tenant
type TenantStats struct {
	TenantID       uuid.UUID `json:"tenantId"`
	TotalOrders    int64     `json:"totalOrders"`
	PendingOrders  int64     `json:"pendingOrders"`
	TotalRevenue   float64   `json:"totalRevenue"`
	MessagesUsed   int       `json:"messagesUsed"`
	MessageLimit   int       `json:"messageLimit"`
	CatalogItems   int64     `json:"catalogItems"`
	UniqueCustomers int64    `json:"uniqueCustomers"`
}
