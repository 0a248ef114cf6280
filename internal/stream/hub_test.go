package stream

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/secpulse/secpulse/internal/filing"
	"github.com/secpulse/secpulse/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

func TestHubPublishDeliversToAllSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub(4, zap.NewNop())
	_, first := hub.Subscribe()
	_, second := hub.Subscribe()
	require.Equal(t, 2, hub.SubscriberCount())

	rec := filing.Record{Filing: filing.Filing{AccessionID: "0000320193-26-000001", Segment: filing.SegmentCatalyst}}
	hub.Publish(filing.NewFilingEvent(rec))

	for _, ch := range []<-chan filing.Event{first, second} {
		select {
		case evt := <-ch:
			require.Equal(t, filing.EventNewFiling, evt.Type)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	hub := NewHub(1, zap.NewNop())
	id, ch := hub.Subscribe()
	hub.Unsubscribe(id)

	_, open := <-ch
	require.False(t, open)
	require.Equal(t, 0, hub.SubscriberCount())

	// Unknown keys are a no-op.
	hub.Unsubscribe(id)
}

func TestHubPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	t.Parallel()

	hub := NewHub(1, zap.NewNop())
	_, ch := hub.Subscribe()

	evt := filing.NewFilingEvent(filing.Record{Filing: filing.Filing{AccessionID: "0000320193-26-000002"}})
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Second publish overflows the single-slot buffer and must drop.
		hub.Publish(evt)
		hub.Publish(evt)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber channel")
	}

	require.Len(t, ch, 1)
}

func TestRateLimiterAllow(t *testing.T) {
	t.Parallel()

	rl := rateLimiter{interval: time.Minute}
	now := time.Now()
	require.True(t, rl.Allow(now))
	require.False(t, rl.Allow(now.Add(time.Second)))
	require.True(t, rl.Allow(now.Add(2*time.Minute)))

	unlimited := rateLimiter{}
	require.True(t, unlimited.Allow(now))
	require.True(t, unlimited.Allow(now))
}
