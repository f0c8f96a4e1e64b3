package events

import (
	"time"

	"github.com/agriconnect/marketplace-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventProductCreated     EventType = "product_created"
	EventProductDeleted     EventType = "product_deleted"
	EventOrderPlaced        EventType = "order_placed"
	EventOrderStatusChanged EventType = "order_status_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ProductCreatedPayload payload.
type ProductCreatedPayload struct {
	ProductID string `json:"product_id"`
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
}

// ProductDeletedPayload payload.
type ProductDeletedPayload struct {
	ProductID string `json:"product_id"`
	OwnerID   string `json:"owner_id"`
}

// OrderPlacedPayload payload.
type OrderPlacedPayload struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	ClientID  string `json:"client_id"`
	Quantity  int    `json:"quantity"`
}

// OrderStatusChangedPayload payload.
type OrderStatusChangedPayload struct {
	OrderID   string             `json:"order_id"`
	ProductID string             `json:"product_id"`
	OldStatus domain.OrderStatus `json:"old_status"`
	NewStatus domain.OrderStatus `json:"new_status"`
}
