package handler

import (
	"github.com/orderahead/sync-engine/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Code   string `json:"code"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// --- Orders ---

type orderLineRequest struct {
	ItemID   int64        `json:"item_id"  validate:"gt=0"`
	Quantity int          `json:"quantity" validate:"gt=0,lte=10000"`
	Price    domain.Money `json:"price"    validate:"gte=0" swaggertype:"number"`
}

// createOrderRequest carries a submission. A client-supplied total is not
// part of the contract and is ignored if sent.
type createOrderRequest struct {
	Items         []orderLineRequest `json:"items"          validate:"required,min=1,dive"`
	PaymentMethod string             `json:"payment_method" validate:"required,max=32"`
	Note          string             `json:"note"           validate:"max=500"`
	Fulfillment   string             `json:"fulfillment"    validate:"omitempty,oneof=immediate scheduled"`
	ScheduledFor  string             `json:"scheduled_for"`
}

type updateOrderStatusRequest struct {
	Status        *domain.OrderStatus   `json:"status"         swaggertype:"string" enums:"pending,confirmed,preparing,ready,completed,cancelled"`
	PaymentStatus *domain.PaymentStatus `json:"payment_status" swaggertype:"string" enums:"pending,paid,refunded"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type listOrdersResponse struct {
	Data       []*domain.Order    `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}

// --- Catalog ---

type menuItemRequest struct {
	CategoryID  int64        `json:"category_id" validate:"gt=0"`
	Name        string       `json:"name"        validate:"required,max=120"`
	Description string       `json:"description" validate:"max=1000"`
	Price       domain.Money `json:"price"       validate:"gte=0" swaggertype:"number"`
	ImageURL    string       `json:"image_url"   validate:"omitempty,url"`
	Available   *bool        `json:"available"`
}

type categoryRequest struct {
	Name      string `json:"name"       validate:"required,max=80"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
	Active    *bool  `json:"active"`
}

type listItemsResponse struct {
	Data []domain.MenuItem `json:"data"`
}

type listCategoriesResponse struct {
	Data []domain.Category `json:"data"`
}

// boolOr returns *b, or def when the field was omitted.
func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
