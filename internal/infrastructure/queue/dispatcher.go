package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/orderahead/sync-engine/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes inbound client frames to a fixed set of workers sharded
// by subject id, so frames from one subject are handled in arrival order.
type Dispatcher struct {
	workers []chan ports.InboundFrame
	handler ports.InboundHandler
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handler ports.InboundHandler, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.InboundFrame, numWorkers),
		handler: handler,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.InboundFrame, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands a frame to the worker responsible for its subject. It never
// blocks the connection's read loop: when the shard is full the frame is
// dropped and false is returned.
func (d *Dispatcher) Enqueue(frame ports.InboundFrame) bool {
	select {
	case d.workers[d.shardIndex(frame.Identity.SubjectID)] <- frame:
		return true
	default:
		d.log.Warn().
			Str("conn_id", frame.ConnID).
			Str("event", string(frame.Event)).
			Msg("inbound queue full, frame dropped")
		return false
	}
}

// shardIndex maps a subject id deterministically to a worker index.
func (d *Dispatcher) shardIndex(subjectID int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(subjectID, 10)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.InboundFrame) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-ch:
			if err := d.handler.HandleInbound(ctx, frame); err != nil {
				d.log.Warn().Err(err).
					Str("conn_id", frame.ConnID).
					Int64("subject_id", frame.Identity.SubjectID).
					Str("event", string(frame.Event)).
					Int("worker_id", id).
					Msg("inbound frame rejected")
			}
		}
	}
}
