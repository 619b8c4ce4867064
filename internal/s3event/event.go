// Package s3event turns S3 event notifications delivered through a message
// queue into sync events, and acknowledges them back to the queue.
package s3event

import (
	"context"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"cloudsync/internal/domain"
	"cloudsync/internal/objectkey"
	"cloudsync/internal/port"
)

// Kind is the object change an event reports.
type Kind string

const (
	KindCreated Kind = "created"
	KindRemoved Kind = "removed"
)

// Event is one object change decoded from a queue record.
type Event struct {
	Key       *objectkey.Key
	Kind      Kind
	SizeBytes int64
	// Sequencer orders events of the same object key.
	Sequencer string
	// Time is the ingestion time encoded in the key, or the record's event time.
	Time time.Time

	delivery *delivery
	acked    bool
}

// CanApplyTo reports whether the event is newer than the state recorded on
// res. A nil res has never been synced.
//
// Streaming objects are ordered by ingestion time against LastModified,
// uploaded objects by sequencer against the stored sequencer.
func (e *Event) CanApplyTo(res *domain.Resource) bool {
	if e.Key.Type == objectkey.TypeStreaming {
		last := time.Unix(0, 0).UTC()
		if res != nil && res.LastModified != nil {
			last = *res.LastModified
		}
		return e.Time.After(last)
	}

	seq, ok := parseSequencer(e.Sequencer)
	if !ok {
		return false
	}
	current := big.NewInt(0)
	if res != nil && res.Sequencer != nil {
		if v, ok := parseSequencer(*res.Sequencer); ok {
			current = v
		}
	}
	return seq.Cmp(current) > 0
}

func parseSequencer(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	return new(big.Int).SetString(s, 16)
}

// MarkReceived acknowledges a processed event.
func (e *Event) MarkReceived(ctx context.Context) error {
	return e.ack(ctx, false)
}

// MarkInvalid drops an event that can never be processed.
func (e *Event) MarkInvalid(ctx context.Context, detail string) error {
	if e.delivery != nil {
		e.delivery.logger.Warn("cannot process event, dropping it",
			zap.String("key", e.Key.Raw),
			zap.String("cause", detail),
		)
	}
	return e.ack(ctx, false)
}

// MarkError leaves the message on the queue so it is redelivered.
func (e *Event) MarkError(ctx context.Context, cause error) {
	if e.delivery != nil {
		e.delivery.logger.Error("event failed, leaving it for redelivery",
			zap.String("key", e.Key.Raw),
			zap.Error(cause),
		)
	}
	_ = e.ack(ctx, true)
}

func (e *Event) ack(ctx context.Context, failed bool) error {
	if e.delivery == nil {
		e.acked = true
		return nil
	}
	return e.delivery.ack(ctx, e, failed)
}

// delivery tracks the events decoded from one queue message. The message is
// deleted once all of them are acknowledged without error.
type delivery struct {
	mu      sync.Mutex
	queue   port.MessageQueue
	msg     port.QueueMessage
	logger  *zap.Logger
	pending int
	failed  bool
}

func (d *delivery) ack(ctx context.Context, e *Event, failed bool) error {
	d.mu.Lock()
	if e.acked {
		d.mu.Unlock()
		return nil
	}
	e.acked = true
	d.pending--
	d.failed = d.failed || failed
	done := d.pending == 0 && !d.failed
	d.mu.Unlock()

	if !done {
		return nil
	}
	return d.queue.Delete(ctx, d.msg)
}
