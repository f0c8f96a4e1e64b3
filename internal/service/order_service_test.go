package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agriconnect/marketplace-service/internal/domain"
	"github.com/agriconnect/marketplace-service/pkg/apperrors"
)

type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	order  []string
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*domain.Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = uuid.NewString()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	clone := *o
	m.orders[o.ID] = &clone
	m.order = append(m.order, o.ID)
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *o
	return &clone, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return pgx.ErrNoRows
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return nil
}

func (m *mockOrderRepo) ListAll(_ context.Context) ([]domain.Order, error) {
	return m.filter(func(*domain.Order) bool { return true })
}

func (m *mockOrderRepo) ListByClient(_ context.Context, clientID string) ([]domain.Order, error) {
	return m.filter(func(o *domain.Order) bool { return o.ClientID == clientID })
}

func (m *mockOrderRepo) ListByProduct(_ context.Context, productID string) ([]domain.Order, error) {
	return m.filter(func(o *domain.Order) bool { return o.ProductID == productID })
}

func (m *mockOrderRepo) ListByStatus(_ context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return m.filter(func(o *domain.Order) bool { return o.Status == status })
}

func (m *mockOrderRepo) filter(keep func(*domain.Order) bool) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.Order
	for _, id := range m.order {
		if o, ok := m.orders[id]; ok && keep(o) {
			result = append(result, *o)
		}
	}
	return result, nil
}

// insert seeds an order in a given status, bypassing placement.
func (m *mockOrderRepo) insert(o domain.Order) domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	clone := o
	m.orders[o.ID] = &clone
	m.order = append(m.order, o.ID)
	return o
}

type marketFixture struct {
	catalog   *CatalogService
	orders    *OrderService
	orderRepo *mockOrderRepo
	farmer    domain.Actor
	client    domain.Actor
	product   *domain.Product
}

func newMarketFixture(t *testing.T, stock int) *marketFixture {
	t.Helper()
	productRepo := newMockProductRepo()
	orderRepo := newMockOrderRepo()
	catalog := newTestCatalog(productRepo)
	orders := NewOrderService(OrderDependencies{OrderRepo: orderRepo, Catalog: catalog})

	owner := farmer()
	input := validInput()
	input.Stock = stock
	product, err := catalog.CreateProduct(context.Background(), owner, input)
	require.NoError(t, err)

	return &marketFixture{
		catalog:   catalog,
		orders:    orders,
		orderRepo: orderRepo,
		farmer:    owner,
		client:    client(),
		product:   product,
	}
}

func (f *marketFixture) stock(t *testing.T) int {
	t.Helper()
	product, err := f.catalog.GetProduct(context.Background(), f.product.ID)
	require.NoError(t, err)
	return product.Stock
}

func TestOrderService_PlaceOrder(t *testing.T) {
	f := newMarketFixture(t, 10)

	order, err := f.orders.PlaceOrder(context.Background(), f.client, f.product.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, f.client.UserID, order.ClientID)
	assert.Equal(t, 4, order.Quantity)
	assert.Equal(t, 6, f.stock(t))
}

func TestOrderService_PlaceOrder_RequiresClient(t *testing.T) {
	f := newMarketFixture(t, 10)

	_, err := f.orders.PlaceOrder(context.Background(), f.farmer, f.product.ID, 1)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
	assert.Equal(t, 10, f.stock(t))
}

func TestOrderService_PlaceOrder_QuantityValidation(t *testing.T) {
	f := newMarketFixture(t, 10)

	for _, quantity := range []int{0, -3} {
		_, err := f.orders.PlaceOrder(context.Background(), f.client, f.product.ID, quantity)
		assert.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))
	}
	assert.Equal(t, 10, f.stock(t))
}

func TestOrderService_PlaceOrder_InsufficientStock(t *testing.T) {
	f := newMarketFixture(t, 5)

	_, err := f.orders.PlaceOrder(context.Background(), f.client, f.product.ID, 6)
	assert.Equal(t, apperrors.CodeInsufficientStock, apperrors.CodeOf(err))
	assert.Equal(t, 5, f.stock(t))

	placed, err := f.orders.ListByClient(context.Background(), f.client.UserID)
	require.NoError(t, err)
	assert.Empty(t, placed)
}

func TestOrderService_PlaceOrder_ProductNotFound(t *testing.T) {
	f := newMarketFixture(t, 5)

	_, err := f.orders.PlaceOrder(context.Background(), f.client, uuid.NewString(), 1)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestOrderService_CancelRestoresStock(t *testing.T) {
	f := newMarketFixture(t, 10)

	order, err := f.orders.PlaceOrder(context.Background(), f.client, f.product.ID, 4)
	require.NoError(t, err)
	require.Equal(t, 6, f.stock(t))

	cancelled, err := f.orders.Transition(context.Background(), f.client, order.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, f.stock(t))
}

// The market-day scenario: stock 5, client A takes 3, client B's 3 is
// rejected, the farmer cancels A's order and the full 5 come back.
func TestOrderService_MarketDayScenario(t *testing.T) {
	f := newMarketFixture(t, 5)
	clientB := client()

	orderA, err := f.orders.PlaceOrder(context.Background(), f.client, f.product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, f.stock(t))

	_, err = f.orders.PlaceOrder(context.Background(), clientB, f.product.ID, 3)
	assert.Equal(t, apperrors.CodeInsufficientStock, apperrors.CodeOf(err))
	assert.Equal(t, 2, f.stock(t))

	_, err = f.orders.Transition(context.Background(), f.farmer, orderA.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 5, f.stock(t))
}

func TestOrderService_Transition_FarmerFlow(t *testing.T) {
	f := newMarketFixture(t, 10)

	order, err := f.orders.PlaceOrder(context.Background(), f.client, f.product.ID, 2)
	require.NoError(t, err)

	for _, next := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	} {
		order, err = f.orders.Transition(context.Background(), f.farmer, order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, order.Status)
	}
	// delivered orders never released their stock
	assert.Equal(t, 8, f.stock(t))
}

func TestOrderService_Transition_TableIsExhaustive(t *testing.T) {
	statuses := []domain.OrderStatus{
		domain.OrderStatusPending,
		domain.OrderStatusConfirmed,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
		domain.OrderStatusCancelled,
	}
	allowed := map[domain.OrderStatus][]domain.OrderStatus{
		domain.OrderStatusPending:   {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
		domain.OrderStatusConfirmed: {domain.OrderStatusShipped, domain.OrderStatusCancelled},
		domain.OrderStatusShipped:   {domain.OrderStatusDelivered},
	}

	for _, from := range statuses {
		for _, to := range statuses {
			f := newMarketFixture(t, 10)
			order := f.orderRepo.insert(domain.Order{
				ProductID: f.product.ID,
				ClientID:  f.client.UserID,
				Quantity:  1,
				Status:    from,
			})

			_, err := f.orders.Transition(context.Background(), f.farmer, order.ID, to)
			if containsStatus(allowed[from], to) {
				assert.NoError(t, err, "%s -> %s should be allowed", from, to)
			} else {
				assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err),
					"%s -> %s should be rejected", from, to)
			}
		}
	}
}

func containsStatus(list []domain.OrderStatus, s domain.OrderStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func TestOrderService_Transition_ClientMayOnlyCancel(t *testing.T) {
	f := newMarketFixture(t, 10)

	order, err := f.orders.PlaceOrder(context.Background(), f.client, f.product.ID, 1)
	require.NoError(t, err)

	_, err = f.orders.Transition(context.Background(), f.client, order.ID, domain.OrderStatusConfirmed)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
}

func TestOrderService_Transition_StrangerForbidden(t *testing.T) {
	f := newMarketFixture(t, 10)

	order, err := f.orders.PlaceOrder(context.Background(), f.client, f.product.ID, 1)
	require.NoError(t, err)

	_, err = f.orders.Transition(context.Background(), farmer(), order.ID, domain.OrderStatusConfirmed)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))

	_, err = f.orders.Transition(context.Background(), client(), order.ID, domain.OrderStatusCancelled)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
}

func TestOrderService_Transition_NotFound(t *testing.T) {
	f := newMarketFixture(t, 10)

	_, err := f.orders.Transition(context.Background(), f.client, uuid.NewString(), domain.OrderStatusCancelled)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestOrderService_Transition_UnknownStatus(t *testing.T) {
	f := newMarketFixture(t, 10)

	order, err := f.orders.PlaceOrder(context.Background(), f.client, f.product.ID, 1)
	require.NoError(t, err)

	_, err = f.orders.Transition(context.Background(), f.farmer, order.ID, domain.OrderStatus("PACKED"))
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))
}

// Ten concurrent single-unit placements against four units of stock:
// exactly four succeed and stock never goes negative.
func TestOrderService_ConcurrentPlacements(t *testing.T) {
	f := newMarketFixture(t, 4)

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.PlaceOrder(context.Background(), client(), f.product.ID, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case apperrors.IsCode(err, apperrors.CodeInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 4, succeeded)
	assert.Equal(t, 6, rejected)
	assert.Equal(t, 0, f.stock(t))
}

// Two simultaneous cancels of the same order must release its units
// exactly once: one caller wins the status commit, the other observes
// CANCELLED and is rejected by the state machine.
func TestOrderService_ConcurrentCancels(t *testing.T) {
	for i := 0; i < 200; i++ {
		f := newMarketFixture(t, 10)
		order, err := f.orders.PlaceOrder(context.Background(), f.client, f.product.ID, 4)
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make(chan error, 2)
		for _, actor := range []domain.Actor{f.client, f.farmer} {
			wg.Add(1)
			go func(a domain.Actor) {
				defer wg.Done()
				_, err := f.orders.Transition(context.Background(), a, order.ID, domain.OrderStatusCancelled)
				results <- err
			}(actor)
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			switch {
			case err == nil:
				succeeded++
			case apperrors.IsCode(err, apperrors.CodeInvalidTransition):
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}

		require.Equal(t, 1, succeeded)
		require.Equal(t, 10, f.stock(t))
	}
}

func TestOrderService_CancelAfterConfirmRestoresStock(t *testing.T) {
	f := newMarketFixture(t, 10)
	order, err := f.orders.PlaceOrder(context.Background(), f.client, f.product.ID, 4)
	require.NoError(t, err)

	_, err = f.orders.Transition(context.Background(), f.farmer, order.ID, domain.OrderStatusConfirmed)
	require.NoError(t, err)

	cancelled, err := f.orders.Transition(context.Background(), f.client, order.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, f.stock(t))
}

func TestOrderService_DeleteProductKeepsOrders(t *testing.T) {
	f := newMarketFixture(t, 10)

	order, err := f.orders.PlaceOrder(context.Background(), f.client, f.product.ID, 3)
	require.NoError(t, err)

	require.NoError(t, f.catalog.DeleteProduct(context.Background(), f.farmer, f.product.ID))

	remaining, err := f.orders.ListByClient(context.Background(), f.client.UserID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, 3, remaining[0].Quantity)
	assert.Equal(t, domain.OrderStatusPending, remaining[0].Status)

	// cancellation still completes; there is no product left to restock
	cancelled, err := f.orders.Transition(context.Background(), f.client, order.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)
}

func TestOrderService_GetOrder_Access(t *testing.T) {
	f := newMarketFixture(t, 10)

	order, err := f.orders.PlaceOrder(context.Background(), f.client, f.product.ID, 1)
	require.NoError(t, err)

	got, err := f.orders.GetOrder(context.Background(), f.client, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	got, err = f.orders.GetOrder(context.Background(), f.farmer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = f.orders.GetOrder(context.Background(), client(), order.ID)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))
}

func TestOrderService_Listings(t *testing.T) {
	f := newMarketFixture(t, 10)

	first, err := f.orders.PlaceOrder(context.Background(), f.client, f.product.ID, 1)
	require.NoError(t, err)
	_, err = f.orders.PlaceOrder(context.Background(), client(), f.product.ID, 2)
	require.NoError(t, err)

	all, err := f.orders.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)

	byProduct, err := f.orders.ListByProduct(context.Background(), f.product.ID)
	require.NoError(t, err)
	require.Len(t, byProduct, 2)
	assert.Equal(t, first.ID, byProduct[0].ID)

	pending, err := f.orders.ListByStatus(context.Background(), domain.OrderStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.orders.ListByStatus(context.Background(), domain.OrderStatus("bogus"))
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err))
}
