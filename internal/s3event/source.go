package s3event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cloudsync/internal/domain"
	"cloudsync/internal/objectkey"
	"cloudsync/internal/port"
)

// MaxMessages is the number of queue messages fetched per poll.
const MaxMessages = 10

// Source decodes S3 event notifications for one bucket.
type Source struct {
	queue  port.MessageQueue
	bucket string
	logger *zap.Logger
}

// NewSource creates a Source reading events for bucket from queue.
func NewSource(queue port.MessageQueue, bucket string, logger *zap.Logger) *Source {
	return &Source{queue: queue, bucket: bucket, logger: logger}
}

// Receive polls the queue until it yields at least one event or returns no
// messages. An empty result means the queue is drained.
func (s *Source) Receive(ctx context.Context) ([]*Event, error) {
	for {
		msgs, err := s.queue.Receive(ctx, MaxMessages)
		if err != nil {
			return nil, fmt.Errorf("s3event.Receive: %w", err)
		}
		if len(msgs) == 0 {
			return nil, nil
		}

		var events []*Event
		for _, msg := range msgs {
			decoded, err := s.decodeMessage(ctx, msg)
			if err != nil {
				return nil, err
			}
			events = append(events, decoded...)
		}
		if len(events) > 0 {
			return events, nil
		}
	}
}

// decodeMessage turns one queue message into events. Messages that carry no
// events are deleted right away when they only hold a test event or
// directory markers.
func (s *Source) decodeMessage(ctx context.Context, msg port.QueueMessage) ([]*Event, error) {
	s.logger.Debug("received message from queue", zap.String("message_id", msg.ID))

	var body Notification
	if err := json.Unmarshal(msg.Body, &body); err != nil {
		s.logger.Error("unexpected message schema", zap.String("message_id", msg.ID), zap.Error(err))
		return nil, nil
	}
	if body.Event == testEventName {
		s.logger.Debug("received an S3 test event message", zap.String("message_id", msg.ID))
		return nil, s.delete(ctx, msg)
	}

	d := &delivery{queue: s.queue, msg: msg, logger: s.logger}
	var events []*Event
	markers := 0
	for i, raw := range body.Records {
		event, err := s.decodeRecord(raw)
		switch {
		case errors.Is(err, errDirectoryMarker):
			markers++
		case err != nil:
			s.logger.Warn("skipping event record",
				zap.String("message_id", msg.ID),
				zap.Int("record", i),
				zap.Error(err),
			)
		default:
			event.delivery = d
			events = append(events, event)
		}
	}

	if len(events) == 0 {
		if markers > 0 {
			return nil, s.delete(ctx, msg)
		}
		return nil, nil
	}
	d.pending = len(events)
	return events, nil
}

var (
	errDirectoryMarker = errors.New("directory marker")
	errIgnoredRecord   = errors.New("record not relevant for this bucket")
)

func (s *Source) decodeRecord(raw json.RawMessage) (*Event, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEventSchema, err)
	}
	if err := rec.checkVersion(); err != nil {
		return nil, err
	}
	if rec.EventSource != eventSourceS3 || rec.S3.Bucket.Name != s.bucket {
		return nil, fmt.Errorf("%w: source %q bucket %q", errIgnoredRecord, rec.EventSource, rec.S3.Bucket.Name)
	}
	kind, ok := rec.kind()
	if !ok {
		return nil, fmt.Errorf("%w: event name %q", errIgnoredRecord, rec.EventName)
	}

	rawKey, err := rec.objectKey()
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(rawKey, "/") {
		return nil, errDirectoryMarker
	}
	if _, ok := parseSequencer(rec.S3.Object.Sequencer); !ok {
		return nil, fmt.Errorf("%w: sequencer %q", domain.ErrInvalidEventSchema, rec.S3.Object.Sequencer)
	}

	key, err := objectkey.Parse(rawKey)
	if err != nil {
		return nil, err
	}

	event := &Event{
		Key:       key,
		Kind:      kind,
		Sequencer: rec.S3.Object.Sequencer,
	}
	if kind == KindCreated {
		event.SizeBytes = rec.S3.Object.Size
	}
	if key.IngestionTime != nil {
		event.Time = *key.IngestionTime
	} else {
		t, err := rec.eventTime()
		if err != nil {
			return nil, err
		}
		event.Time = t
	}
	return event, nil
}

func (s *Source) delete(ctx context.Context, msg port.QueueMessage) error {
	if err := s.queue.Delete(ctx, msg); err != nil {
		return fmt.Errorf("s3event.delete: %w", err)
	}
	return nil
}
