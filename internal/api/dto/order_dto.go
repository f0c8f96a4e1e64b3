package dto

import (
	"time"

	"github.com/agriconnect/marketplace-service/internal/domain"
)

// PlaceOrderRequest payload.
type PlaceOrderRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// UpdateOrderStatusRequest payload for PATCH /orders/:id.
type UpdateOrderStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

// OrderResponse response.
type OrderResponse struct {
	ID        string             `json:"id"`
	ProductID string             `json:"product_id"`
	ClientID  string             `json:"client_id"`
	Quantity  int                `json:"quantity"`
	Status    domain.OrderStatus `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
