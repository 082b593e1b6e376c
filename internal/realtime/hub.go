// Package realtime holds the live connection registry and the websocket
// clients that subscribe to it.
package realtime

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/orderahead/sync-engine/internal/core/domain"
	"github.com/orderahead/sync-engine/internal/core/ports"
	"github.com/orderahead/sync-engine/internal/pkg/metrics"
)

// ErrHubClosed is returned by Register once Shutdown has been called.
var ErrHubClosed = errors.New("realtime hub is shut down")

// Subscriber is one live connection as seen by the hub.
type Subscriber interface {
	ID() string
	Identity() domain.Identity
	// Deliver enqueues an encoded frame without blocking.
	Deliver(frame []byte) error
	Close()
}

type membership struct {
	sub      Subscriber
	channels []domain.Channel
}

// Hub routes notifications to the connections subscribed to a channel.
// Membership is derived from the connection identity at registration and
// never changes afterwards.
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]membership
	channels map[domain.Channel]map[string]Subscriber
	closed   bool
	log      zerolog.Logger
}

var _ ports.AudienceRouter = (*Hub)(nil)

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		conns:    make(map[string]membership),
		channels: make(map[domain.Channel]map[string]Subscriber),
		log:      log,
	}
}

// Register subscribes sub to the channels its identity grants and returns
// them.
func (h *Hub) Register(sub Subscriber) ([]domain.Channel, error) {
	id := sub.Identity()
	channels := domain.ChannelsFor(id)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if _, exists := h.conns[sub.ID()]; exists {
		return nil, fmt.Errorf("connection %s already registered", sub.ID())
	}

	h.conns[sub.ID()] = membership{sub: sub, channels: channels}
	for _, ch := range channels {
		set, ok := h.channels[ch]
		if !ok {
			set = make(map[string]Subscriber)
			h.channels[ch] = set
		}
		set[sub.ID()] = sub
	}
	metrics.ConnectionsActive.WithLabelValues(string(id.Role)).Inc()

	h.log.Debug().
		Str("conn_id", sub.ID()).
		Int64("subject_id", id.SubjectID).
		Str("role", string(id.Role)).
		Msg("connection registered")
	return channels, nil
}

// Unregister removes the connection from every channel. It reports whether
// the connection was registered; repeated calls are no-ops.
func (h *Hub) Unregister(connID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[connID]
	if !ok {
		return false
	}
	delete(h.conns, connID)
	for _, ch := range m.channels {
		set := h.channels[ch]
		delete(set, connID)
		if len(set) == 0 {
			delete(h.channels, ch)
		}
	}
	metrics.ConnectionsActive.WithLabelValues(string(m.sub.Identity().Role)).Dec()

	h.log.Debug().Str("conn_id", connID).Msg("connection unregistered")
	return true
}

// Publish encodes n once and delivers it to every current subscriber of
// channel. A connection that also belongs to a channel listed before
// channel in n.Channels already received n and is skipped, so one
// notification reaches each connection once. A failing subscriber does not
// prevent delivery to the others; all failures are joined into the
// returned error.
func (h *Hub) Publish(channel domain.Channel, n domain.Notification) error {
	var earlier []domain.Channel
	if i := slices.Index(n.Channels, channel); i > 0 {
		earlier = n.Channels[:i]
	}

	h.mu.RLock()
	set := h.channels[channel]
	subs := make([]Subscriber, 0, len(set))
	for id, s := range set {
		if h.memberOfAny(id, earlier) {
			continue
		}
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	if len(subs) == 0 {
		return nil
	}

	frame, err := n.Encode()
	if err != nil {
		metrics.DeliveryErrorsTotal.WithLabelValues("encode").Inc()
		return fmt.Errorf("encode %s: %w", n.Kind, err)
	}

	var errs []error
	for _, s := range subs {
		if err := s.Deliver(frame); err != nil {
			metrics.DeliveryErrorsTotal.WithLabelValues(deliveryReason(err)).Inc()
			errs = append(errs, fmt.Errorf("deliver to %s: %w", s.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// memberOfAny must be called with h.mu held.
func (h *Hub) memberOfAny(connID string, channels []domain.Channel) bool {
	if len(channels) == 0 {
		return false
	}
	m, ok := h.conns[connID]
	if !ok {
		return false
	}
	for _, ch := range channels {
		if slices.Contains(m.channels, ch) {
			return true
		}
	}
	return false
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Connections int                    `json:"connections"`
	Channels    map[domain.Channel]int `json:"channels"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := Stats{Connections: len(h.conns), Channels: make(map[domain.Channel]int, len(h.channels))}
	for ch, set := range h.channels {
		s.Channels[ch] = len(set)
	}
	return s
}

// Shutdown refuses new registrations and closes every live connection.
// Connections unregister themselves as their read loops exit.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	subs := make([]Subscriber, 0, len(h.conns))
	for _, m := range h.conns {
		subs = append(subs, m.sub)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
	h.log.Info().Int("connections", len(subs)).Msg("realtime hub shut down")
}

func deliveryReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSlowConsumer):
		return "slow_consumer"
	case errors.Is(err, domain.ErrConnectionClosed):
		return "closed"
	default:
		return "other"
	}
}
