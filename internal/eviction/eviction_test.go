package eviction

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkodi/link-shortener/internal/clock"
	"github.com/darkodi/link-shortener/internal/logger"
	"github.com/darkodi/link-shortener/internal/model"
	"github.com/darkodi/link-shortener/internal/store"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Notify(ctx context.Context, n Notification) {
	r.mu.Lock()
	r.notes = append(r.notes, n)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notes)
}

func setup(t *testing.T) (*store.Store, *clock.Mock, string) {
	t.Helper()
	clk := clock.NewMock(testNow)
	s := store.New(nil, clk, nil)
	u, err := s.CreateUser(context.Background(), "alice")
	require.NoError(t, err)
	return s, clk, u.ID
}

func insert(t *testing.T, s *store.Store, owner, token string, ttl time.Duration, visits *int) {
	t.Helper()
	require.NoError(t, s.InsertLink(context.Background(), owner, model.Link{
		Token:           token,
		Destination:     "https://" + token + ".example",
		CreatedAt:       testNow,
		ExpiresAt:       testNow.Add(ttl),
		RemainingVisits: visits,
	}))
}

func TestSweep(t *testing.T) {
	s, clk, owner := setup(t)
	rec := &recorder{}
	engine := NewEngine(s, clk, rec, nil)

	insert(t, s, owner, "live01", time.Hour, nil)
	insert(t, s, owner, "quota1", time.Hour, model.IntPtr(0))
	insert(t, s, owner, "short1", time.Minute, model.IntPtr(3))

	clk.Advance(2 * time.Minute)
	notes := engine.Sweep(context.Background())
	require.Len(t, notes, 2)

	byToken := map[string]Notification{}
	for _, n := range notes {
		byToken[n.Token] = n
	}
	assert.Equal(t, model.ReasonQuotaExhausted, byToken["quota1"].Reason)
	assert.Equal(t, model.ReasonExpired, byToken["short1"].Reason)
	assert.Equal(t, owner, byToken["short1"].OwnerID)
	assert.Equal(t, "https://short1.example", byToken["short1"].Destination)
	assert.Equal(t, 2, rec.count())

	links := s.LinksOf(owner)
	require.Len(t, links, 1)
	assert.Equal(t, "live01", links[0].Token)
}

func TestSweep_Idempotent(t *testing.T) {
	s, clk, owner := setup(t)
	rec := &recorder{}
	engine := NewEngine(s, clk, rec, nil)

	insert(t, s, owner, "gone01", time.Minute, nil)
	clk.Advance(time.Hour)

	assert.Len(t, engine.Sweep(context.Background()), 1)
	assert.Empty(t, engine.Sweep(context.Background()))
	assert.Equal(t, 1, rec.count())
}

func TestSweep_CancelledCallerStillNotifies(t *testing.T) {
	s, clk, owner := setup(t)
	var notifyErr error
	calls := 0
	engine := NewEngine(s, clk, NotifierFunc(func(ctx context.Context, n Notification) {
		calls++
		notifyErr = ctx.Err()
	}), nil)

	insert(t, s, owner, "gone01", time.Minute, nil)
	clk.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Len(t, engine.Sweep(ctx), 1)
	assert.Equal(t, 1, calls)
	assert.NoError(t, notifyErr)
}

func TestRun(t *testing.T) {
	s, clk, owner := setup(t)
	rec := &recorder{}
	engine := NewEngine(s, clk, rec, nil)

	insert(t, s, owner, "gone01", time.Minute, nil)
	clk.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRun_DisabledInterval(t *testing.T) {
	s, clk, _ := setup(t)
	engine := NewEngine(s, clk, nil, nil)

	done := make(chan struct{})
	go func() {
		engine.Run(context.Background(), 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run with zero interval should return immediately")
	}
}

func TestNotifiers_FanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	var buf bytes.Buffer
	ns := Notifiers{a, b, NewLogNotifier(logger.New(logger.Config{Output: &buf}))}

	ns.Notify(context.Background(), Notification{Token: "abc123", Reason: model.ReasonExpired})

	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
	assert.Contains(t, buf.String(), "reason=expired")
}
