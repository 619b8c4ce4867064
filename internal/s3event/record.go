package s3event

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cloudsync/internal/domain"
)

// Notification is the body of a queue message carrying S3 event records.
// https://docs.aws.amazon.com/AmazonS3/latest/userguide/notification-content-structure.html
type Notification struct {
	Event   string            `json:"Event,omitempty"`
	Records []json.RawMessage `json:"Records"`
}

// Record is one S3 event notification record.
type Record struct {
	EventVersion string   `json:"eventVersion"`
	EventSource  string   `json:"eventSource"`
	AWSRegion    string   `json:"awsRegion,omitempty"`
	EventTime    string   `json:"eventTime"`
	EventName    string   `json:"eventName"`
	S3           RecordS3 `json:"s3"`
}

type RecordS3 struct {
	Bucket RecordBucket `json:"bucket"`
	Object RecordObject `json:"object"`
}

type RecordBucket struct {
	Name string `json:"name"`
}

type RecordObject struct {
	Key       string `json:"key"`
	Size      int64  `json:"size,omitempty"`
	Sequencer string `json:"sequencer"`
	VersionID string `json:"versionId,omitempty"`
}

const (
	testEventName = "s3:TestEvent"
	eventSourceS3 = "aws:s3"

	supportedVersionMajor = 2
	supportedVersionMinor = 1

	createdEventPrefix = "ObjectCreated:"
	removedEventPrefix = "ObjectRemoved:"
)

// checkVersion accepts event versions up to the supported major with at
// least the supported minor.
func (r *Record) checkVersion() error {
	major, minor, ok := strings.Cut(r.EventVersion, ".")
	if !ok {
		return fmt.Errorf("%w: eventVersion %q", domain.ErrInvalidEventSchema, r.EventVersion)
	}
	majorN, err := strconv.Atoi(major)
	if err != nil {
		return fmt.Errorf("%w: eventVersion %q", domain.ErrInvalidEventSchema, r.EventVersion)
	}
	minorN, err := strconv.Atoi(minor)
	if err != nil {
		return fmt.Errorf("%w: eventVersion %q", domain.ErrInvalidEventSchema, r.EventVersion)
	}
	if majorN > supportedVersionMajor || minorN < supportedVersionMinor {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedEventVersion, r.EventVersion)
	}
	return nil
}

func (r *Record) kind() (Kind, bool) {
	switch {
	case strings.HasPrefix(r.EventName, createdEventPrefix):
		return KindCreated, true
	case strings.HasPrefix(r.EventName, removedEventPrefix):
		return KindRemoved, true
	}
	return "", false
}

// objectKey returns the URL-unescaped object key.
func (r *Record) objectKey() (string, error) {
	key, err := url.QueryUnescape(r.S3.Object.Key)
	if err != nil {
		return "", fmt.Errorf("%w: object key %q: %v", domain.ErrInvalidEventSchema, r.S3.Object.Key, err)
	}
	if key == "" {
		return "", fmt.Errorf("%w: empty object key", domain.ErrInvalidEventSchema)
	}
	return key, nil
}

// eventTime parses the ISO-8601 eventTime field.
func (r *Record) eventTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, r.EventTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: eventTime %q", domain.ErrInvalidEventSchema, r.EventTime)
	}
	return t.UTC(), nil
}
