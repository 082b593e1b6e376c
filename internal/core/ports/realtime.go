package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/orderahead/sync-engine/internal/core/domain"
)

// Authenticator validates a bearer credential and returns the identity it
// proves.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

// RoleVerifier reads a subject's current role from the system of record.
type RoleVerifier interface {
	CurrentRole(ctx context.Context, subjectID int64) (domain.Role, error)
}

// AudienceRouter delivers an encoded notification to every connection
// subscribed to channel.
type AudienceRouter interface {
	Publish(channel domain.Channel, n domain.Notification) error
}

// EventPublisher turns committed changes into notifications. None of its
// methods report failure; publishing is best-effort.
type EventPublisher interface {
	OrderCreated(ctx context.Context, order *domain.Order)
	OrderUpdated(ctx context.Context, order *domain.Order)
	CatalogItemAdded(ctx context.Context, item *domain.MenuItem)
	CatalogItemUpdated(ctx context.Context, item *domain.MenuItem)
	CatalogItemDeleted(ctx context.Context, id int64)
	CategoryAdded(ctx context.Context, c *domain.Category)
	CategoryUpdated(ctx context.Context, c *domain.Category)
	CartActivity(ctx context.Context, notice domain.CartActivity)
}

// IdempotencyStore remembers which order an (owner, key) pair produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, subjectID int64, key string) (orderID int64, found bool, err error)
	Remember(ctx context.Context, subjectID int64, key string, orderID int64, ttl time.Duration) error
}

// InboundFrame is a frame a client sent over its live connection, tagged
// with the identity bound to that connection.
type InboundFrame struct {
	ConnID   string
	Identity domain.Identity
	Event    domain.EventKind
	Data     json.RawMessage
}

// InboundHandler processes client-emitted frames. Frames never touch
// persisted state.
type InboundHandler interface {
	HandleInbound(ctx context.Context, frame InboundFrame) error
}
