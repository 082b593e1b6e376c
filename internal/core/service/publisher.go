package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/orderahead/sync-engine/internal/core/domain"
	"github.com/orderahead/sync-engine/internal/core/ports"
	"github.com/orderahead/sync-engine/internal/pkg/metrics"
)

// Publisher translates committed changes into notifications and hands them
// to the audience router. It must only be called after the originating
// transaction has committed; failures are logged and never returned.
type Publisher struct {
	router ports.AudienceRouter
	log    zerolog.Logger
	now    func() time.Time
}

var _ ports.EventPublisher = (*Publisher)(nil)

func NewPublisher(router ports.AudienceRouter, log zerolog.Logger) *Publisher {
	return &Publisher{router: router, log: log, now: time.Now}
}

func (p *Publisher) OrderCreated(ctx context.Context, order *domain.Order) {
	p.publish(ctx, domain.EventOrderNew, order, order.SubjectID)
}

func (p *Publisher) OrderUpdated(ctx context.Context, order *domain.Order) {
	p.publish(ctx, domain.EventOrderUpdate, order, order.SubjectID)
}

func (p *Publisher) CatalogItemAdded(ctx context.Context, item *domain.MenuItem) {
	p.publish(ctx, domain.EventCatalogAdd, item, 0)
}

func (p *Publisher) CatalogItemUpdated(ctx context.Context, item *domain.MenuItem) {
	p.publish(ctx, domain.EventCatalogUpdate, item, 0)
}

func (p *Publisher) CatalogItemDeleted(ctx context.Context, id int64) {
	p.publish(ctx, domain.EventCatalogDelete, domain.DeletedRef{ID: id}, 0)
}

func (p *Publisher) CategoryAdded(ctx context.Context, c *domain.Category) {
	p.publish(ctx, domain.EventCategoryAdd, c, 0)
}

func (p *Publisher) CategoryUpdated(ctx context.Context, c *domain.Category) {
	p.publish(ctx, domain.EventCategoryUpdate, c, 0)
}

// CartActivity relays a customer's advisory notice to staff verbatim.
func (p *Publisher) CartActivity(ctx context.Context, notice domain.CartActivity) {
	p.publish(ctx, domain.EventCartActivity, notice, notice.SubjectID)
}

func (p *Publisher) publish(ctx context.Context, kind domain.EventKind, payload any, owner int64) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Str("event", string(kind)).Msg("publish panicked")
		}
	}()

	n := domain.Notification{
		Kind:     kind,
		Payload:  payload,
		Channels: domain.TargetsFor(kind, owner),
		SentAt:   p.now().UTC(),
	}

	log := p.log.With().Str("request_id", requestID(ctx)).Logger()
	for _, ch := range n.Channels {
		metrics.MessagesPublishedTotal.WithLabelValues(string(kind), channelKind(ch)).Inc()
		if err := p.router.Publish(ch, n); err != nil {
			log.Warn().
				Err(err).
				Str("event", string(kind)).
				Str("channel", string(ch)).
				Msg("notification delivery failed")
		}
	}
}

// channelKind collapses per-customer channels into one metric label.
func channelKind(ch domain.Channel) string {
	if _, ok := ch.CustomerID(); ok {
		return "customer"
	}
	return string(ch)
}
