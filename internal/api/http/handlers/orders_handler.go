package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/agriconnect/marketplace-service/internal/api/dto"
	"github.com/agriconnect/marketplace-service/internal/auth"
	"github.com/agriconnect/marketplace-service/internal/domain"
	"github.com/agriconnect/marketplace-service/internal/service"
	"github.com/agriconnect/marketplace-service/pkg/apperrors"
)

// OrdersHandler manages order endpoints.
type OrdersHandler struct {
	orders *service.OrderService
}

// NewOrdersHandler constructs handler.
func NewOrdersHandler(orderService *service.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orderService}
}

// Place POST /orders.
func (h *OrdersHandler) Place(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ProductID == "" {
		return apperrors.NewValidationError("product_id required", nil)
	}

	order, err := h.orders.PlaceOrder(c.Context(), actor, req.ProductID, req.Quantity)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": orderResponse(order)})
}

// UpdateStatus PATCH /orders/:id.
func (h *OrdersHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateOrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	order, err := h.orders.Transition(c.Context(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

// Get GET /orders/:id.
func (h *OrdersHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	order, err := h.orders.GetOrder(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": orderResponse(order)})
}

// List GET /orders, optionally filtered by clientId, productId or status.
func (h *OrdersHandler) List(c *fiber.Ctx) error {
	var (
		orders []domain.Order
		err    error
	)
	switch {
	case c.Query("clientId") != "":
		orders, err = h.orders.ListByClient(c.Context(), c.Query("clientId"))
	case c.Query("productId") != "":
		orders, err = h.orders.ListByProduct(c.Context(), c.Query("productId"))
	case c.Query("status") != "":
		orders, err = h.orders.ListByStatus(c.Context(), domain.OrderStatus(c.Query("status")))
	default:
		orders, err = h.orders.ListAll(c.Context())
	}
	if err != nil {
		return err
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, orderResponse(&orders[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func orderResponse(order *domain.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:        order.ID,
		ProductID: order.ProductID,
		ClientID:  order.ClientID,
		Quantity:  order.Quantity,
		Status:    order.Status,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}
