package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/link-shortener/internal/eviction"
	"github.com/darkodi/link-shortener/internal/model"
)

func TestRedisPublisher_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received, err := Subscribe(ctx, client, "")
	require.NoError(t, err)

	pub := NewRedisPublisher(client, "", nil)
	sent := eviction.Notification{
		Token:       "abc123",
		Destination: "https://example.com",
		OwnerID:     "owner-1",
		Reason:      model.ReasonQuotaExhausted,
		EvictedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	pub.Notify(ctx, sent)

	select {
	case got := <-received:
		assert.Equal(t, sent.Token, got.Token)
		assert.Equal(t, sent.Reason, got.Reason)
		assert.Equal(t, sent.OwnerID, got.OwnerID)
		assert.True(t, sent.EvictedAt.Equal(got.EvictedAt))
	case <-ctx.Done():
		t.Fatal("no notification received")
	}
}

func TestRedisPublisher_ServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	pub := NewRedisPublisher(client, "evictions", nil)
	assert.NotPanics(t, func() {
		pub.Notify(context.Background(), eviction.Notification{Token: "abc123"})
	})
}
