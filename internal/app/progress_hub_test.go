package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/yt-grab-go/internal/domain"
)

func TestProgressHub_FanOut(t *testing.T) {
	hub := NewProgressHub()
	a, unsubscribeA := hub.Subscribe()
	b, unsubscribeB := hub.Subscribe()
	defer unsubscribeA()
	defer unsubscribeB()

	hub.Publish(NewJobProgress("j", "u", domain.ProgressEvent{Phase: domain.PhaseDownloading, DownloadedBytes: 1}))

	assert.Equal(t, "j", (<-a).JobID)
	assert.Equal(t, "j", (<-b).JobID)
}

func TestProgressHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewProgressHub()
	ch, unsubscribe := hub.Subscribe()
	require.Equal(t, 1, hub.SubscriberCount())

	unsubscribe()
	unsubscribe()

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, hub.SubscriberCount())
	hub.Publish(JobProgress{JobID: "after"})
}

func TestProgressHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewProgressHub()
	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer*2; i++ {
		hub.Publish(JobProgress{JobID: "j"})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestNewJobProgress_Percent(t *testing.T) {
	known := NewJobProgress("j", "u", domain.ProgressEvent{Phase: domain.PhaseDownloading, DownloadedBytes: 25, TotalBytes: 100})
	require.NotNil(t, known.Percent)
	assert.Equal(t, 25, *known.Percent)

	unknown := NewJobProgress("j", "u", domain.ProgressEvent{Phase: domain.PhaseDownloading, DownloadedBytes: 25})
	assert.Nil(t, unknown.Percent)
}
