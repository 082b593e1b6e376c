package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderahead/sync-engine/internal/core/domain"
	"github.com/orderahead/sync-engine/internal/core/ports"
	"github.com/orderahead/sync-engine/internal/pkg/metrics"
)

const (
	defaultTxTimeout      = 5 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultNumberAttempts = 3

	defaultListLimit = 20
	maxListLimit     = 100
)

// OrderServiceConfig bounds the transactional behaviour of OrderService.
type OrderServiceConfig struct {
	// TxTimeout is the wall-clock budget of one transaction; it is aborted
	// and rolled back once exceeded.
	TxTimeout time.Duration
	// IdempotencyTTL is how long an Idempotency-Key replays its order.
	IdempotencyTTL time.Duration
	// NumberAttempts is how many order numbers are tried before giving up
	// on uniqueness collisions.
	NumberAttempts int
}

func (c OrderServiceConfig) withDefaults() OrderServiceConfig {
	if c.TxTimeout <= 0 {
		c.TxTimeout = defaultTxTimeout
	}
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = defaultIdempotencyTTL
	}
	if c.NumberAttempts <= 0 {
		c.NumberAttempts = defaultNumberAttempts
	}
	return c
}

// OrderService creates orders atomically and applies status transitions.
// Notifications are published only after the transaction has committed.
type OrderService struct {
	uow       ports.UnitOfWork
	repo      ports.OrderRepository
	publisher ports.EventPublisher
	idem      ports.IdempotencyStore
	numbers   OrderNumberGenerator
	cfg       OrderServiceConfig
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

var _ ports.OrderService = (*OrderService)(nil)

// NewOrderService wires an OrderService. idem may be nil to disable
// Idempotency-Key replays.
func NewOrderService(
	uow ports.UnitOfWork,
	repo ports.OrderRepository,
	publisher ports.EventPublisher,
	idem ports.IdempotencyStore,
	numbers OrderNumberGenerator,
	cfg OrderServiceConfig,
	logger zerolog.Logger,
) *OrderService {
	return &OrderService{
		uow:       uow,
		repo:      repo,
		publisher: publisher,
		idem:      idem,
		numbers:   numbers,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		tracer:    otel.Tracer("github.com/orderahead/sync-engine/internal/core/service"),
		now:       time.Now,
	}
}

// CreateOrder validates the submission, computes the total from the
// submitted tuples, and inserts the header and its line items in one
// transaction. On commit it notifies staff of the new order.
func (s *OrderService) CreateOrder(ctx context.Context, in ports.CreateOrderInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.create", trace.WithAttributes(
		attribute.Int64("subject_id", in.SubjectID),
		attribute.Int("items", len(in.Items)),
	))
	defer span.End()

	draft, err := s.buildOrder(in, s.now().UTC())
	if err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	if existing := s.replay(ctx, in); existing != nil {
		span.SetAttributes(attribute.Bool("idempotent_replay", true))
		return existing, nil
	}

	var order *domain.Order
	for attempt := 1; attempt <= s.cfg.NumberAttempts; attempt++ {
		candidate := *draft
		candidate.Items = slices.Clone(draft.Items)
		candidate.Number = s.numbers.Next()

		err = s.runTx(ctx, "create", func(txCtx context.Context) error {
			return s.repo.Insert(txCtx, &candidate)
		})
		if err == nil {
			order = &candidate
			break
		}
		if !errors.Is(err, domain.ErrDuplicateOrderNumber) {
			break
		}
		s.logger.Warn().Str("order_number", candidate.Number).Int("attempt", attempt).Msg("order number collision, retrying")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		s.logger.Error().Err(err).Int64("subject_id", in.SubjectID).Msg("failed to create order")
		return nil, fmt.Errorf("create order: %w", asPersistence(err))
	}

	metrics.OrdersCreatedTotal.WithLabelValues(string(order.Fulfillment)).Inc()
	s.logger.Info().
		Int64("order_id", order.ID).
		Str("order_number", order.Number).
		Int64("subject_id", order.SubjectID).
		Str("total", order.TotalAmount.String()).
		Msg("order created")

	s.remember(ctx, in, order.ID)
	s.publisher.OrderCreated(ctx, order)

	return order, nil
}

// UpdateOrderStatus applies the supplied status and/or payment status after
// checking both state machines, then notifies staff and the owning customer.
// A field equal to the current value is accepted as a no-op.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, in ports.UpdateOrderStatusInput) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.update_status", trace.WithAttributes(
		attribute.Int64("order_id", in.OrderID),
	))
	defer span.End()

	if err := validateStatusInput(in); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	var updated *domain.Order
	var applied []string
	err := s.runTx(ctx, "update_status", func(txCtx context.Context) error {
		current, err := s.repo.GetForUpdate(txCtx, in.OrderID)
		if err != nil {
			return err
		}

		change := ports.StatusChange{UpdatedAt: s.now().UTC()}
		applied = applied[:0]
		if in.Status != nil && *in.Status != current.Status {
			if !current.Status.CanTransitionTo(*in.Status) {
				return fmt.Errorf("%w: status %s -> %s", domain.ErrInvalidTransition, current.Status, *in.Status)
			}
			change.Status = in.Status
			applied = append(applied, "status")
		}
		if in.PaymentStatus != nil && *in.PaymentStatus != current.PaymentStatus {
			if !current.PaymentStatus.CanTransitionTo(*in.PaymentStatus) {
				return fmt.Errorf("%w: payment_status %s -> %s", domain.ErrInvalidTransition, current.PaymentStatus, *in.PaymentStatus)
			}
			change.PaymentStatus = in.PaymentStatus
			applied = append(applied, "payment_status")
		}

		updated, err = s.repo.UpdateStatus(txCtx, in.OrderID, change)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition failed")
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("order_id", in.OrderID).Msg("failed to update order status")
		return nil, fmt.Errorf("update order status: %w", asPersistence(err))
	}

	for _, field := range applied {
		to := string(updated.Status)
		if field == "payment_status" {
			to = string(updated.PaymentStatus)
		}
		metrics.OrderTransitionsTotal.WithLabelValues(field, to).Inc()
	}
	s.logger.Info().
		Int64("order_id", updated.ID).
		Str("status", string(updated.Status)).
		Str("payment_status", string(updated.PaymentStatus)).
		Msg("order status updated")

	s.publisher.OrderUpdated(ctx, updated)
	return updated, nil
}

// GetOrder returns one order with its items. Customers only see their own
// orders; anything else is reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, in ports.GetOrderInput) (*domain.Order, error) {
	order, err := s.repo.Get(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !in.Identity.Role.IsStaff() && order.SubjectID != in.Identity.SubjectID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListOrders returns one page of orders; customers are always scoped to
// their own subject id.
func (s *OrderService) ListOrders(ctx context.Context, in ports.ListOrdersInput) (*ports.ListOrdersResult, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	page := in.Page
	if page <= 0 {
		page = 1
	}
	if in.Status != "" && !domain.OrderStatus(in.Status).Valid() {
		return nil, domain.Invalid("status", "unknown status %q", in.Status)
	}

	filter := ports.ListOrdersFilter{Status: in.Status, Page: page, Limit: limit}
	if !in.Identity.Role.IsStaff() {
		filter.SubjectID = in.Identity.SubjectID
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", asPersistence(err))
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ports.ListOrdersResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// buildOrder validates in and returns the unsaved aggregate with
// server-computed subtotals and total.
func (s *OrderService) buildOrder(in ports.CreateOrderInput, now time.Time) (*domain.Order, error) {
	if in.SubjectID <= 0 {
		return nil, domain.Invalid("subject_id", "must be a positive integer")
	}
	if len(in.Items) == 0 {
		return nil, domain.Invalid("items", "must contain at least one item")
	}

	items := make([]domain.LineItem, 0, len(in.Items))
	for i, it := range in.Items {
		if it.ItemID <= 0 {
			return nil, domain.Invalid(fmt.Sprintf("items[%d].item_id", i), "must be a positive integer")
		}
		if it.Quantity < 1 {
			return nil, domain.Invalid(fmt.Sprintf("items[%d].quantity", i), "must be a positive integer")
		}
		if it.Quantity > domain.MaxLineQuantity {
			return nil, domain.Invalid(fmt.Sprintf("items[%d].quantity", i), "must not exceed %d", domain.MaxLineQuantity)
		}
		if it.UnitPrice < 0 {
			return nil, domain.Invalid(fmt.Sprintf("items[%d].price", i), "must not be negative")
		}
		if it.UnitPrice > domain.MaxMoney {
			return nil, domain.Invalid(fmt.Sprintf("items[%d].price", i), "must not exceed %s", domain.MaxMoney)
		}
		li, err := domain.NewLineItem(it.ItemID, it.Quantity, it.UnitPrice)
		if err != nil {
			return nil, domain.Invalid(fmt.Sprintf("items[%d]", i), "subtotal exceeds %s", domain.MaxMoney)
		}
		items = append(items, li)
	}
	total, err := domain.SumSubtotals(items)
	if err != nil {
		return nil, domain.Invalid("items", "order total exceeds %s", domain.MaxMoney)
	}

	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		return nil, domain.Invalid("payment_method", "is required")
	}

	mode := in.Fulfillment
	if mode == "" {
		mode = domain.FulfillmentImmediate
	}
	var scheduledFor *time.Time
	switch mode {
	case domain.FulfillmentImmediate:
		if strings.TrimSpace(in.ScheduledFor) != "" {
			return nil, domain.Invalid("scheduled_for", "only allowed for scheduled fulfillment")
		}
	case domain.FulfillmentScheduled:
		at, err := time.Parse(time.RFC3339, strings.TrimSpace(in.ScheduledFor))
		if err != nil {
			return nil, domain.Invalid("scheduled_for", "must be an RFC 3339 timestamp")
		}
		if !at.After(now) {
			return nil, domain.Invalid("scheduled_for", "must be in the future")
		}
		at = at.UTC()
		scheduledFor = &at
	default:
		return nil, domain.Invalid("fulfillment", "must be one of: immediate scheduled")
	}

	return &domain.Order{
		SubjectID:     in.SubjectID,
		TotalAmount:   total,
		Status:        domain.OrderPending,
		PaymentStatus: domain.PaymentPending,
		PaymentMethod: method,
		Fulfillment:   mode,
		ScheduledFor:  scheduledFor,
		Note:          strings.TrimSpace(in.Note),
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func validateStatusInput(in ports.UpdateOrderStatusInput) error {
	if in.OrderID <= 0 {
		return domain.Invalid("order_id", "must be a positive integer")
	}
	if in.Status == nil && in.PaymentStatus == nil {
		return domain.Invalid("status", "status or payment_status is required")
	}
	if in.Status != nil && !in.Status.Valid() {
		return domain.Invalid("status", "unknown status %q", *in.Status)
	}
	if in.PaymentStatus != nil && !in.PaymentStatus.Valid() {
		return domain.Invalid("payment_status", "unknown payment status %q", *in.PaymentStatus)
	}
	return nil
}

// runTx executes fn in a transaction bounded by the configured budget.
func (s *OrderService) runTx(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()

	start := time.Now()
	err := s.uow.WithinTx(ctx, fn)
	result := "commit"
	if err != nil {
		result = "rollback"
	}
	metrics.TransactionDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
	return err
}

// replay returns the order a previous submission with the same key
// committed. Store failures fall through to normal processing.
func (s *OrderService) replay(ctx context.Context, in ports.CreateOrderInput) *domain.Order {
	if s.idem == nil || in.IdempotencyKey == "" {
		return nil
	}
	orderID, found, err := s.idem.Lookup(ctx, in.SubjectID, in.IdempotencyKey)
	if err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("idempotency lookup failed, processing anyway")
		return nil
	}
	if !found {
		return nil
	}
	existing, err := s.repo.Get(ctx, orderID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("order_id", orderID).Msg("idempotent order not readable, processing anyway")
		return nil
	}
	if existing.SubjectID != in.SubjectID {
		return nil
	}
	s.logger.Info().Str("idempotency_key", in.IdempotencyKey).Str("order_number", existing.Number).Msg("idempotent replay")
	return existing
}

func (s *OrderService) remember(ctx context.Context, in ports.CreateOrderInput, orderID int64) {
	if s.idem == nil || in.IdempotencyKey == "" {
		return
	}
	if err := s.idem.Remember(ctx, in.SubjectID, in.IdempotencyKey, orderID, s.cfg.IdempotencyTTL); err != nil {
		s.logger.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to store idempotency key")
	}
}

// asPersistence tags uncategorised storage failures as persistence errors.
func asPersistence(err error) error {
	if domain.CodeOf(err) != domain.CodeInternal {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
}
