package port

import "context"

// QueueMessage is one message received from the event queue.
type QueueMessage struct {
	ID            string
	ReceiptHandle string
	Body          []byte
}

// MessageQueue is an at-least-once message queue. Messages not deleted are
// redelivered according to the queue's own policy.
type MessageQueue interface {
	Receive(ctx context.Context, max int) ([]QueueMessage, error)
	Delete(ctx context.Context, msg QueueMessage) error
}
