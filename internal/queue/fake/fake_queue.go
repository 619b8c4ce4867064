// Package fake provides an in-memory MessageQueue replaying a fixed set of
// S3 notifications, for exercising sync without a real queue.
package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloudsync/internal/port"
)

const (
	// Bucket is the bucket named in every replayed record.
	Bucket = "fake_bucket"

	organization = "test-organization"
	packageName  = "sync-test-create-1"
	streamSuffix = "3d8d51f5-0fc4-3a21-8d2e-ff614b8e9a30"
)

// Queue hands out its messages once; deleted and received messages are
// tracked for inspection.
type Queue struct {
	mu      sync.Mutex
	pending []port.QueueMessage
	deleted []string
}

// NewQueue creates a queue holding msgs.
func NewQueue(msgs ...port.QueueMessage) *Queue {
	return &Queue{pending: msgs}
}

// NewDefaultQueue creates a queue holding one message with the standard
// replay records: an upload created, an upload removed and two stream chunks.
func NewDefaultQueue() (*Queue, error) {
	body, err := json.Marshal(map[string]any{
		"Records": []map[string]any{
			uploadCreated("study-data-from-event", 10),
			uploadRemoved("upload", 11),
			streamCreated("stream", "2023-07-24-09-07-42", 1),
			streamCreated("stream", "2023-09-29-09-07-42", 2),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fake.NewDefaultQueue: %w", err)
	}
	return NewQueue(port.QueueMessage{ID: "fake-1", ReceiptHandle: "fake-1", Body: body}), nil
}

func (q *Queue) Receive(_ context.Context, max int) ([]port.QueueMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := min(max, len(q.pending))
	batch := q.pending[:n]
	q.pending = q.pending[n:]
	return batch, nil
}

func (q *Queue) Delete(_ context.Context, msg port.QueueMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deleted = append(q.deleted, msg.ID)
	return nil
}

// Deleted returns the ids of deleted messages.
func (q *Queue) Deleted() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.deleted...)
}

func event(name string, object map[string]any) map[string]any {
	return map[string]any{
		"eventVersion": "2.1",
		"eventSource":  "aws:s3",
		"awsRegion":    "eu-west-1",
		"eventTime":    "2023-09-09T09:09:09.900Z",
		"eventName":    name,
		"s3": map[string]any{
			"s3SchemaVersion": "1.0",
			"configurationId": "SyncEvent",
			"bucket":          map[string]any{"name": Bucket},
			"object":          object,
		},
	}
}

func uploadKey(name string) string {
	return fmt.Sprintf("1/%s/%s/%s.txt", organization, packageName, name)
}

func streamKey(name, date string) string {
	return fmt.Sprintf("1/%s/%s/%s/PUT-S3-Qj0zi-3-%s-%s", organization, packageName, name, date, streamSuffix)
}

func uploadCreated(name string, sequence int) map[string]any {
	return event("ObjectCreated:Put", map[string]any{
		"key": uploadKey(name), "size": 50, "sequencer": fmt.Sprintf("%x", sequence),
	})
}

func uploadRemoved(name string, sequence int) map[string]any {
	return event("ObjectRemoved:Delete", map[string]any{
		"key": uploadKey(name), "sequencer": fmt.Sprintf("%x", sequence),
	})
}

func streamCreated(name, date string, sequence int) map[string]any {
	return event("ObjectCreated:Put", map[string]any{
		"key": streamKey(name, date), "size": 50, "sequencer": fmt.Sprintf("%x", sequence),
	})
}
