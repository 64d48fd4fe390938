package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the fulfilment state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// DeliveryType distinguishes delivery from in-store collection
type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

// PickupAddress is the fixed address marker used for collection orders
const PickupAddress = "Customer collection"

// OrderItem is a point-in-time snapshot of a catalog item at order creation.
// It stays immutable even if the catalog price later changes.
type OrderItem struct {
	ItemID   uuid.UUID `json:"itemId"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	Price    float64   `json:"price"`
	Quantity int       `json:"quantity"`
}

// OrderItems is the snapshot list stored as a JSON column
type OrderItems []OrderItem

// Value implements driver.Valuer interface
func (i OrderItems) Value() (driver.Value, error) {
	if i == nil {
		return nil, nil
	}
	return json.Marshal(i)
}

// Scan implements sql.Scanner interface
func (i *OrderItems) Scan(value interface{}) error {
	if value == nil {
		*i = nil
		return nil
	}

	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, i)
	case string:
		return json.Unmarshal([]byte(data), i)
	default:
		return json.Unmarshal([]byte(data.(string)), i)
	}
}

// Total computes the snapshot total as sum of price times quantity
func (i OrderItems) Total() float64 {
	var total float64
	for _, item := range i {
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		total += item.Price * float64(qty)
	}
	return total
}

// Order represents a customer order placed through the conversation flow
type Order struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	TenantID      uuid.UUID `json:"tenantId" db:"tenant_id"`
	CustomerPhone string    `json:"customerPhone" db:"customer_phone"`

	// OrderNumber is assigned by the store and treated as opaque
	OrderNumber string `json:"orderNumber" db:"order_number"`

	Items OrderItems `json:"items" db:"items"`
	Total float64    `json:"total" db:"total"`

	DeliveryType    DeliveryType `json:"deliveryType" db:"delivery_type"`
	DeliveryAddress string       `json:"deliveryAddress" db:"delivery_address"`

	Status OrderStatus `json:"status" db:"status"`
}
