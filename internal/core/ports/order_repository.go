package ports

import (
	"context"
	"time"

	"github.com/orderahead/sync-engine/internal/core/domain"
)

// UnitOfWork runs fn inside one database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise; repositories pick
// it up from the context passed to fn.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// StatusChange carries the fields a status transition writes. Nil fields
// are left untouched.
type StatusChange struct {
	Status        *domain.OrderStatus
	PaymentStatus *domain.PaymentStatus
	UpdatedAt     time.Time
}

// ListOrdersFilter carries the query parameters for listing orders.
type ListOrdersFilter struct {
	SubjectID int64  // 0 = all subjects (staff); otherwise scoped to one customer
	Status    string // optional
	Page      int    // 1-based
	Limit     int
}

// OrderRepository persists the order aggregate. Write methods must run
// inside UnitOfWork.WithinTx.
type OrderRepository interface {
	// Insert writes the header and all its line items, filling in generated
	// ids and timestamps. A clash on the order number yields
	// domain.ErrDuplicateOrderNumber.
	Insert(ctx context.Context, order *domain.Order) error
	// GetForUpdate loads the header and locks it for the rest of the
	// transaction.
	GetForUpdate(ctx context.Context, id int64) (*domain.Order, error)
	// UpdateStatus applies change and returns the refreshed header.
	UpdateStatus(ctx context.Context, id int64, change StatusChange) (*domain.Order, error)
	// Get returns the full aggregate including line items.
	Get(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, filter ListOrdersFilter) ([]*domain.Order, int64, error)
}
