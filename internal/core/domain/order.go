package domain

import (
	"fmt"
	"time"
)

// OrderStatus represents the preparation lifecycle of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// validOrderTransitions defines the allowed preparation transitions.
// Terminal states have no entry.
var validOrderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderReady, OrderCancelled},
	OrderReady:     {OrderCompleted, OrderCancelled},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// CanTransitionTo reports whether a transition from s to next is valid.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range validOrderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus represents the settlement state of an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

var validPaymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentRefunded},
	PaymentPaid:    {PaymentRefunded},
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range validPaymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// FulfillmentMode says whether an order is prepared now or at a set time.
type FulfillmentMode string

const (
	FulfillmentImmediate FulfillmentMode = "immediate"
	FulfillmentScheduled FulfillmentMode = "scheduled"
)

func (m FulfillmentMode) Valid() bool {
	return m == FulfillmentImmediate || m == FulfillmentScheduled
}

// LineItem is one catalog item snapshot inside an order.
type LineItem struct {
	ID        int64 `json:"id,omitempty"`
	OrderID   int64 `json:"order_id,omitempty"`
	ItemID    int64 `json:"item_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice Money `json:"unit_price"`
	Subtotal  Money `json:"subtotal"`
}

// MaxLineQuantity caps the quantity of a single line item.
const MaxLineQuantity = 10_000

// NewLineItem builds a line item with its subtotal computed from quantity
// and unit price. It fails with ErrAmountOutOfRange when the subtotal
// exceeds MaxMoney.
func NewLineItem(itemID int64, quantity int, unitPrice Money) (LineItem, error) {
	subtotal, ok := unitPrice.Times(quantity)
	if !ok {
		return LineItem{}, fmt.Errorf("%w: %s x %d", ErrAmountOutOfRange, unitPrice, quantity)
	}
	return LineItem{
		ItemID:    itemID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Subtotal:  subtotal,
	}, nil
}

// Order is the aggregate root: a header plus its owned line items.
// TotalAmount is fixed at creation to the sum of the line subtotals.
type Order struct {
	ID            int64           `json:"id"`
	SubjectID     int64           `json:"subject_id"`
	Number        string          `json:"order_number"`
	TotalAmount   Money           `json:"total_amount"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaymentMethod string          `json:"payment_method"`
	Fulfillment   FulfillmentMode `json:"fulfillment"`
	ScheduledFor  *time.Time      `json:"scheduled_for,omitempty"`
	Note          string          `json:"note,omitempty"`
	Items         []LineItem      `json:"items,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// SumSubtotals returns the sum of the line item subtotals. It fails with
// ErrAmountOutOfRange when the sum exceeds MaxMoney.
func SumSubtotals(items []LineItem) (Money, error) {
	var total Money
	for _, it := range items {
		var ok bool
		if total, ok = total.Plus(it.Subtotal); !ok {
			return 0, fmt.Errorf("%w: order total", ErrAmountOutOfRange)
		}
	}
	return total, nil
}

// Header returns a copy of o without its line items.
func (o Order) Header() Order {
	o.Items = nil
	return o
}
