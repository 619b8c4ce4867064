package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudsync/internal/domain"
	"cloudsync/internal/hook/kafka"
)

type recordingPublisher struct {
	key     []byte
	value   []byte
	headers map[string]string
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, key, value []byte, headers map[string]string) error {
	p.key, p.value, p.headers = key, value, headers
	return p.err
}

func TestHook_Accepts(t *testing.T) {
	hook := kafka.NewHook("datapusher", []string{"csv", " XLSX "}, &recordingPublisher{})

	assert.Equal(t, "datapusher", hook.Name())
	assert.True(t, hook.Accepts("CSV"))
	assert.True(t, hook.Accepts("xlsx"))
	assert.False(t, hook.Accepts("pdf"))
	assert.False(t, hook.Accepts(""))
}

func TestHook_Submit(t *testing.T) {
	pub := &recordingPublisher{}
	hook := kafka.NewHook("datapusher", []string{"csv"}, pub)

	key := "1/acme/weather/data.csv"
	res := &domain.Resource{
		ID: uuid.New(), PackageID: uuid.New(), Name: "data.csv", Format: "CSV",
		URL: "data.csv", Size: 1024, StorageKey: &key,
	}
	require.NoError(t, hook.Submit(context.Background(), res))

	assert.Equal(t, res.ID.String(), string(pub.key))
	assert.Equal(t, "csv", pub.headers["format"])

	var sub kafka.Submission
	require.NoError(t, json.Unmarshal(pub.value, &sub))
	assert.Equal(t, res.ID, sub.ResourceID)
	assert.Equal(t, key, sub.StorageKey)
	assert.Equal(t, int64(1024), sub.Size)
}

func TestHook_SubmitError(t *testing.T) {
	hook := kafka.NewHook("datapusher", []string{"csv"}, &recordingPublisher{err: errors.New("broker down")})
	err := hook.Submit(context.Background(), &domain.Resource{ID: uuid.New()})
	assert.Error(t, err)
}
