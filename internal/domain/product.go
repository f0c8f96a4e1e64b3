package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable listing owned by a farmer. OwnerID never changes
// after creation and Stock never goes negative.
type Product struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
