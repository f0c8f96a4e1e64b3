package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/agriconnect/marketplace-service/internal/domain"
	"github.com/agriconnect/marketplace-service/internal/events"
	"github.com/agriconnect/marketplace-service/internal/repository"
	"github.com/agriconnect/marketplace-service/pkg/apperrors"
)

// OrderService owns order records and their status lifecycle. It holds only
// product references; every stock check goes through the catalog so the live
// product is always consulted.
type OrderService struct {
	orders     repository.OrderRepository
	catalog    *CatalogService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// OrderDependencies bundles collaborators for the order service.
type OrderDependencies struct {
	OrderRepo  repository.OrderRepository
	Catalog    *CatalogService
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewOrderService constructs the service.
func NewOrderService(deps OrderDependencies) *OrderService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orders:     deps.OrderRepo,
		catalog:    deps.Catalog,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// PlaceOrder reserves stock and creates a PENDING order. The reservation
// commits before the order becomes visible, so no reader ever observes an
// order whose stock has not been taken.
func (s *OrderService) PlaceOrder(ctx context.Context, actor domain.Actor, productID string, quantity int) (*domain.Order, error) {
	if actor.Role != domain.RoleClient {
		return nil, apperrors.NewForbidden("only clients may place orders")
	}
	if quantity < 1 {
		return nil, apperrors.NewValidationError("quantity must be at least 1", map[string]any{"quantity": quantity})
	}

	if _, err := s.catalog.ReserveStock(ctx, productID, quantity); err != nil {
		return nil, err
	}

	order := &domain.Order{
		ProductID: productID,
		ClientID:  actor.UserID,
		Quantity:  quantity,
		Status:    domain.OrderStatusPending,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		// hand the reserved units back so the failed placement has no effect
		if _, restoreErr := s.catalog.RestoreStock(ctx, productID, quantity); restoreErr != nil {
			s.logger.Error("failed to release reservation after order create failure",
				zap.String("product_id", productID),
				zap.Int("quantity", quantity),
				zap.Error(restoreErr))
		}
		return nil, err
	}

	s.publishEvent(ctx, actor, events.Event{
		Type: events.EventOrderPlaced,
		Payload: events.OrderPlacedPayload{
			OrderID:   order.ID,
			ProductID: order.ProductID,
			ClientID:  order.ClientID,
			Quantity:  order.Quantity,
		},
	})
	return order, nil
}

// Transition moves an order along the status state machine. The order's
// client may only cancel; the owning farmer may confirm, ship, deliver or
// cancel. Cancelling a PENDING or CONFIRMED order restores its reserved
// stock once the status commit wins.
func (s *OrderService) Transition(ctx context.Context, actor domain.Actor, orderID string, target domain.OrderStatus) (*domain.Order, error) {
	if !domain.ValidOrderStatus(target) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": target})
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderErr(err, orderID)
	}

	if err := s.authorizeTransition(ctx, actor, order, target); err != nil {
		return nil, err
	}

	// The commit is conditional on the status the edge was validated
	// against. A loser of a concurrent transition re-reads and
	// re-validates against whatever status won.
	for {
		if !domain.CanTransition(order.Status, target) {
			return nil, apperrors.NewInvalidTransition(string(order.Status), string(target))
		}
		err := s.orders.UpdateStatus(ctx, order.ID, order.Status, target)
		if err == nil {
			break
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if order, err = s.orders.GetByID(ctx, orderID); err != nil {
			return nil, mapOrderErr(err, orderID)
		}
	}

	oldStatus := order.Status
	order.Status = target

	// Restock only after winning the commit, so concurrent cancels
	// cannot both return the same units.
	if target == domain.OrderStatusCancelled {
		if _, err := s.catalog.RestoreStock(ctx, order.ProductID, order.Quantity); err != nil {
			if !apperrors.IsCode(err, apperrors.CodeNotFound) {
				s.logger.Error("stock restore failed after cancellation",
					zap.String("order_id", order.ID),
					zap.String("product_id", order.ProductID),
					zap.Int("quantity", order.Quantity),
					zap.Error(err))
			} else {
				// product already deleted: nothing to return the units to
				s.logger.Warn("stock restore skipped, product gone",
					zap.String("order_id", order.ID),
					zap.String("product_id", order.ProductID),
					zap.Int("quantity", order.Quantity))
			}
		}
	}

	s.publishEvent(ctx, actor, events.Event{
		Type: events.EventOrderStatusChanged,
		Payload: events.OrderStatusChangedPayload{
			OrderID:   order.ID,
			ProductID: order.ProductID,
			OldStatus: oldStatus,
			NewStatus: target,
		},
	})
	return order, nil
}

// GetOrder fetches an order visible to its client or the owning farmer.
func (s *OrderService) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderErr(err, orderID)
	}
	if order.ClientID == actor.UserID {
		return order, nil
	}
	if owns, err := s.ownsProduct(ctx, actor, order.ProductID); err != nil {
		return nil, err
	} else if owns {
		return order, nil
	}
	return nil, apperrors.NewForbidden("access denied")
}

// ListAll returns every order in insertion order.
func (s *OrderService) ListAll(ctx context.Context) ([]domain.Order, error) {
	return s.orders.ListAll(ctx)
}

// ListByClient returns the client's orders in insertion order.
func (s *OrderService) ListByClient(ctx context.Context, clientID string) ([]domain.Order, error) {
	return s.orders.ListByClient(ctx, clientID)
}

// ListByProduct returns orders referencing the product in insertion order.
func (s *OrderService) ListByProduct(ctx context.Context, productID string) ([]domain.Order, error) {
	return s.orders.ListByProduct(ctx, productID)
}

// ListByStatus returns orders currently in the given status.
func (s *OrderService) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if !domain.ValidOrderStatus(status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}
	return s.orders.ListByStatus(ctx, status)
}

func (s *OrderService) authorizeTransition(ctx context.Context, actor domain.Actor, order *domain.Order, target domain.OrderStatus) error {
	if actor.Role == domain.RoleClient && actor.UserID == order.ClientID {
		if target != domain.OrderStatusCancelled {
			return apperrors.NewForbidden("clients may only cancel their orders")
		}
		return nil
	}
	owns, err := s.ownsProduct(ctx, actor, order.ProductID)
	if err != nil {
		return err
	}
	if !owns {
		return apperrors.NewForbidden("only the order's client or the product owner may change its status")
	}
	return nil
}

// ownsProduct reports whether the actor owns the referenced product. A
// deleted product has no owner anymore, so nobody passes this check.
func (s *OrderService) ownsProduct(ctx context.Context, actor domain.Actor, productID string) (bool, error) {
	if actor.Role != domain.RoleFarmer {
		return false, nil
	}
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return product.OwnerID == actor.UserID, nil
}

func (s *OrderService) publishEvent(ctx context.Context, actor domain.Actor, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Actor = events.Actor{UserID: actor.UserID, Role: actor.Role}
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}

func mapOrderErr(err error, orderID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("order", map[string]any{"order_id": orderID})
	}
	return err
}
