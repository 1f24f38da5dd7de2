package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	changes []Change
	err     error
}

func (r *recorder) Publish(_ context.Context, change Change) error {
	r.changes = append(r.changes, change)
	return r.err
}

func TestHubFansOut(t *testing.T) {
	rec := &recorder{}
	hub := NewHub(rec)

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	require.NoError(t, hub.Publish(context.Background(), Change{Kind: KindInsert, Instances: []string{"3f"}}))

	got := <-ch
	assert.Equal(t, KindInsert, got.Kind)
	assert.False(t, got.Time.IsZero())
	require.Len(t, rec.changes, 1)
	assert.Equal(t, []string{"3f"}, rec.changes[0].Instances)
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(1)

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, Change{Kind: KindInsert}))
	require.NoError(t, hub.Publish(ctx, Change{Kind: KindClear}))

	assert.Equal(t, KindInsert, (<-ch).Kind)
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
}

func TestHubReportsPublisherErrors(t *testing.T) {
	boom := errors.New("boom")
	hub := NewHub(&recorder{err: boom}, &recorder{})

	err := hub.Publish(context.Background(), Change{Kind: KindRefresh})
	assert.ErrorIs(t, err, boom)
}

func TestNilHubIgnoresPublish(t *testing.T) {
	var hub *Hub
	assert.NoError(t, hub.Publish(context.Background(), Change{}))
}
