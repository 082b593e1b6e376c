package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Channel is a logical broadcast group.
type Channel string

const (
	ChannelStaff             Channel = "staff-channel"
	ChannelCustomerBroadcast Channel = "customer-broadcast"

	customerChannelPrefix = "customer:"
)

// CustomerChannel returns the private channel of one customer.
func CustomerChannel(subjectID int64) Channel {
	return Channel(customerChannelPrefix + strconv.FormatInt(subjectID, 10))
}

// CustomerID extracts the subject id from a customer:<id> channel.
func (c Channel) CustomerID() (int64, bool) {
	s, ok := strings.CutPrefix(string(c), customerChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ChannelsFor derives the memberships of a connection from its identity.
// Staff and admin join the staff channel, everyone else the customer
// broadcast; every connection also joins its own customer channel.
func ChannelsFor(id Identity) []Channel {
	first := ChannelCustomerBroadcast
	if id.Role.IsStaff() {
		first = ChannelStaff
	}
	return []Channel{first, CustomerChannel(id.SubjectID)}
}

// EventKind is the wire name of a notification.
type EventKind string

const (
	EventCatalogAdd     EventKind = "catalog:add"
	EventCatalogUpdate  EventKind = "catalog:update"
	EventCatalogDelete  EventKind = "catalog:delete"
	EventCategoryAdd    EventKind = "category:add"
	EventCategoryUpdate EventKind = "category:update"
	EventOrderNew       EventKind = "order:new"
	EventOrderUpdate    EventKind = "order:update"
	EventCartActivity   EventKind = "cart:activity"
)

// TargetsFor returns the deterministic audience of an event kind. owner is
// only consulted for order updates. Unknown kinds have no audience.
func TargetsFor(kind EventKind, owner int64) []Channel {
	switch kind {
	case EventCatalogAdd, EventCatalogUpdate, EventCatalogDelete:
		return []Channel{ChannelStaff, ChannelCustomerBroadcast}
	case EventCategoryAdd, EventCategoryUpdate, EventOrderNew, EventCartActivity:
		return []Channel{ChannelStaff}
	case EventOrderUpdate:
		return []Channel{ChannelStaff, CustomerChannel(owner)}
	}
	return nil
}

// Notification is an ephemeral message produced after a committed change.
type Notification struct {
	Kind     EventKind
	Payload  any
	Channels []Channel
	SentAt   time.Time
}

// Envelope is the JSON frame exchanged over the realtime transport in both
// directions.
type Envelope struct {
	Event  EventKind       `json:"event"`
	Data   json.RawMessage `json:"data"`
	SentAt time.Time       `json:"sent_at,omitzero"`
}

// Encode renders n as a wire frame.
func (n Notification) Encode() ([]byte, error) {
	data, err := json.Marshal(n.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: n.Kind, Data: data, SentAt: n.SentAt})
}

// CartActivity is the advisory notice a customer emits while building a
// cart. It never touches persisted state.
type CartActivity struct {
	SubjectID   int64  `json:"subject_id"`
	DisplayName string `json:"display_name"`
	ItemID      int64  `json:"item_id"`
	Quantity    int    `json:"quantity"`
}
