package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/agriconnect/marketplace-service/internal/domain"
	"github.com/agriconnect/marketplace-service/internal/events"
	"github.com/agriconnect/marketplace-service/internal/repository"
	"github.com/agriconnect/marketplace-service/pkg/apperrors"
)

const productCacheKeyPrefix = "product:"

// CatalogService owns the authoritative product records: creation, listing,
// deletion and the two stock mutators used by order placement and
// cancellation.
type CatalogService struct {
	products   repository.ProductRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	dispatcher events.Dispatcher
}

// CatalogDependencies bundles collaborators for the catalog service.
type CatalogDependencies struct {
	ProductRepo repository.ProductRepository
	Cache       *redis.Client
	CacheTTL    time.Duration
	Dispatcher  events.Dispatcher
}

// ProductCreateInput describes product creation payload.
type ProductCreateInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// NewCatalogService constructs the service.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	return &CatalogService{
		products:   deps.ProductRepo,
		cache:      deps.Cache,
		cacheTTL:   deps.CacheTTL,
		dispatcher: deps.Dispatcher,
	}
}

// CreateProduct inserts a new listing owned by the calling farmer.
func (s *CatalogService) CreateProduct(ctx context.Context, actor domain.Actor, input ProductCreateInput) (*domain.Product, error) {
	if actor.Role != domain.RoleFarmer {
		return nil, apperrors.NewForbidden("only farmers may list products")
	}
	name := strings.TrimSpace(input.Name)
	description := strings.TrimSpace(input.Description)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if description == "" {
		return nil, apperrors.NewValidationError("description required", nil)
	}
	if !input.Price.IsPositive() {
		return nil, apperrors.NewValidationError("price must be greater than zero", map[string]any{"price": input.Price.String()})
	}
	if input.Stock < 0 {
		return nil, apperrors.NewValidationError("stock must not be negative", map[string]any{"stock": input.Stock})
	}

	product := &domain.Product{
		OwnerID:     actor.UserID,
		Name:        name,
		Description: description,
		Price:       input.Price,
		Stock:       input.Stock,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, actor, events.Event{
		Type: events.EventProductCreated,
		Payload: events.ProductCreatedPayload{
			ProductID: product.ID,
			OwnerID:   product.OwnerID,
			Name:      product.Name,
			Stock:     product.Stock,
		},
	})
	return product, nil
}

// ListAll returns every product in insertion order.
func (s *CatalogService) ListAll(ctx context.Context) ([]domain.Product, error) {
	return s.products.ListAll(ctx)
}

// ListByOwner returns the owner's products in insertion order.
func (s *CatalogService) ListByOwner(ctx context.Context, ownerID string) ([]domain.Product, error) {
	return s.products.ListByOwner(ctx, ownerID)
}

// GetProduct fetches a product by ID, consulting the read cache first.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, productCacheKeyPrefix+id).Result(); err == nil {
			var product domain.Product
			if json.Unmarshal([]byte(cached), &product) == nil {
				return &product, nil
			}
		}
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, mapProductErr(err, id)
	}

	if s.cache != nil {
		if data, err := json.Marshal(product); err == nil {
			s.cache.Set(ctx, productCacheKeyPrefix+id, data, s.cacheTTL)
		}
	}
	return product, nil
}

// DeleteProduct removes a listing. Only the owner may delete it. Outstanding
// orders referencing the product are left untouched.
func (s *CatalogService) DeleteProduct(ctx context.Context, actor domain.Actor, productID string) error {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return mapProductErr(err, productID)
	}
	if product.OwnerID != actor.UserID {
		return apperrors.NewForbidden("only the owner may delete this product")
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return mapProductErr(err, productID)
	}
	s.invalidateCache(ctx, productID)
	s.publishEvent(ctx, actor, events.Event{
		Type: events.EventProductDeleted,
		Payload: events.ProductDeletedPayload{
			ProductID: productID,
			OwnerID:   product.OwnerID,
		},
	})
	return nil
}

// ReserveStock atomically decrements stock by quantity and returns the
// updated product. The sole mutation path used by order placement.
func (s *CatalogService) ReserveStock(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	product, err := s.products.ReserveStock(ctx, productID, quantity)
	if err != nil {
		return nil, mapProductErr(err, productID)
	}
	s.invalidateCache(ctx, productID)
	return product, nil
}

// RestoreStock returns previously reserved units after a cancellation.
func (s *CatalogService) RestoreStock(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	product, err := s.products.RestoreStock(ctx, productID, quantity)
	if err != nil {
		return nil, mapProductErr(err, productID)
	}
	s.invalidateCache(ctx, productID)
	return product, nil
}

func (s *CatalogService) invalidateCache(ctx context.Context, productID string) {
	if s.cache != nil {
		s.cache.Del(ctx, productCacheKeyPrefix+productID)
	}
}

func (s *CatalogService) publishEvent(ctx context.Context, actor domain.Actor, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Actor = events.Actor{UserID: actor.UserID, Role: actor.Role}
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}

func mapProductErr(err error, productID string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("product", map[string]any{"product_id": productID})
	}
	return err
}
