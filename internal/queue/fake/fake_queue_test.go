package fake_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cloudsync/internal/objectkey"
	"cloudsync/internal/queue/fake"
	"cloudsync/internal/s3event"
)

func TestDefaultQueue_DecodesIntoEvents(t *testing.T) {
	queue, err := fake.NewDefaultQueue()
	require.NoError(t, err)

	source := s3event.NewSource(queue, fake.Bucket, zap.NewNop())
	events, err := source.Receive(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, s3event.KindCreated, events[0].Kind)
	assert.Equal(t, "test-organization--sync-test-create-1", events[0].Key.PackageName)
	assert.Equal(t, s3event.KindRemoved, events[1].Kind)
	assert.Equal(t, objectkey.TypeStreaming, events[2].Key.Type)
	assert.True(t, events[3].Time.After(events[2].Time))

	ctx := context.Background()
	for _, e := range events {
		require.NoError(t, e.MarkReceived(ctx))
	}
	assert.Equal(t, []string{"fake-1"}, queue.Deleted())

	events, err = source.Receive(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}
