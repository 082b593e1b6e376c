package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/orderahead/sync-engine/internal/core/domain"
	"github.com/orderahead/sync-engine/internal/core/ports"
)

// InboundRelay handles frames sent by clients. The only accepted kind is
// the cart activity advisory, which is relayed to staff.
type InboundRelay struct {
	publisher ports.EventPublisher
	log       zerolog.Logger
}

var _ ports.InboundHandler = (*InboundRelay)(nil)

func NewInboundRelay(publisher ports.EventPublisher, log zerolog.Logger) *InboundRelay {
	return &InboundRelay{publisher: publisher, log: log}
}

func (r *InboundRelay) HandleInbound(ctx context.Context, f ports.InboundFrame) error {
	switch f.Event {
	case domain.EventCartActivity:
		return r.cartActivity(ctx, f)
	default:
		return domain.Invalid("event", "unsupported client event %q", f.Event)
	}
}

// cartActivity relays the item and quantity; the subject and display name
// always come from the authenticated connection.
func (r *InboundRelay) cartActivity(ctx context.Context, f ports.InboundFrame) error {
	var notice domain.CartActivity
	if err := json.Unmarshal(f.Data, &notice); err != nil {
		return fmt.Errorf("%w: cart activity payload: %v", domain.ErrValidation, err)
	}
	if notice.ItemID <= 0 {
		return domain.Invalid("item_id", "must be a positive integer")
	}
	if notice.Quantity < 0 {
		return domain.Invalid("quantity", "must not be negative")
	}

	if notice.SubjectID != 0 && notice.SubjectID != f.Identity.SubjectID {
		r.log.Warn().
			Str("conn_id", f.ConnID).
			Int64("subject_id", f.Identity.SubjectID).
			Int64("claimed_subject_id", notice.SubjectID).
			Msg("cart activity subject overridden by connection identity")
	}
	notice.SubjectID = f.Identity.SubjectID
	notice.DisplayName = f.Identity.DisplayName

	r.publisher.CartActivity(ctx, notice)
	return nil
}
