package ports

import (
	"context"

	"github.com/orderahead/sync-engine/internal/core/domain"
)

// OrderLineInput is one (item id, quantity, unit price) tuple as submitted.
type OrderLineInput struct {
	ItemID    int64
	Quantity  int
	UnitPrice domain.Money
}

// CreateOrderInput carries everything needed to place an order.
type CreateOrderInput struct {
	SubjectID     int64
	Items         []OrderLineInput
	PaymentMethod string
	Note          string
	Fulfillment   domain.FulfillmentMode
	// ScheduledFor is the raw RFC 3339 timestamp, required when
	// Fulfillment is scheduled.
	ScheduledFor   string
	IdempotencyKey string
}

// UpdateOrderStatusInput carries a proposed transition. At least one of the
// two fields must be set.
type UpdateOrderStatusInput struct {
	OrderID       int64
	Status        *domain.OrderStatus
	PaymentStatus *domain.PaymentStatus
}

// GetOrderInput scopes a single-order read to the caller.
type GetOrderInput struct {
	OrderID  int64
	Identity domain.Identity
}

// ListOrdersInput carries the list parameters; customers only ever see
// their own orders.
type ListOrdersInput struct {
	Identity domain.Identity
	Status   string
	Page     int
	Limit    int
}

// ListOrdersResult is one page of orders.
type ListOrdersResult struct {
	Items      []*domain.Order
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// OrderService defines the order use cases.
type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, input UpdateOrderStatusInput) (*domain.Order, error)
	GetOrder(ctx context.Context, input GetOrderInput) (*domain.Order, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*ListOrdersResult, error)
}
