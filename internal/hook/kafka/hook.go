package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cloudsync/internal/domain"
)

// Publisher sends one message to the hook topic.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte, headers map[string]string) error
}

// Submission is the message announcing a finished upload.
type Submission struct {
	ResourceID  uuid.UUID `json:"resource_id"`
	PackageID   uuid.UUID `json:"package_id"`
	Name        string    `json:"name"`
	Format      string    `json:"format"`
	URL         string    `json:"url"`
	StorageKey  string    `json:"storage_key,omitempty"`
	Size        int64     `json:"size"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Hook submits finished uploads of selected formats to a Kafka topic.
type Hook struct {
	name      string
	formats   map[string]struct{}
	publisher Publisher
}

// NewHook creates a hook named name for the given resource formats.
func NewHook(name string, formats []string, publisher Publisher) *Hook {
	set := make(map[string]struct{}, len(formats))
	for _, f := range formats {
		set[strings.ToLower(strings.TrimSpace(f))] = struct{}{}
	}
	return &Hook{name: name, formats: set, publisher: publisher}
}

func (h *Hook) Name() string {
	return h.name
}

func (h *Hook) Accepts(format string) bool {
	if format == "" {
		return false
	}
	_, ok := h.formats[strings.ToLower(format)]
	return ok
}

func (h *Hook) Submit(ctx context.Context, res *domain.Resource) error {
	sub := Submission{
		ResourceID:  res.ID,
		PackageID:   res.PackageID,
		Name:        res.Name,
		Format:      strings.ToLower(res.Format),
		URL:         res.URL,
		Size:        res.Size,
		SubmittedAt: time.Now().UTC(),
	}
	if res.StorageKey != nil {
		sub.StorageKey = *res.StorageKey
	}

	value, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("kafka hook marshal: %w", err)
	}
	headers := map[string]string{"hook": h.name, "format": sub.Format}
	if err := h.publisher.Publish(ctx, []byte(res.ID.String()), value, headers); err != nil {
		return fmt.Errorf("kafka hook submit %s: %w", res.ID, err)
	}
	return nil
}
