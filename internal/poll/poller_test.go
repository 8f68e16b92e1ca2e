package poll

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"notifybell/internal/config"
	"notifybell/internal/domain"
	"notifybell/internal/metrics"
	"notifybell/internal/model"
)

type fakeCounter struct {
	calls    atomic.Int32
	inflight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	count    int
}

func (f *fakeCounter) UnreadCount(ctx context.Context, _ domain.Identity) int {
	f.calls.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
	}
	return f.count
}

type fakeHub struct {
	mu      sync.Mutex
	updates []model.UnreadUpdate
}

func (h *fakeHub) Broadcast(update model.UnreadUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, update)
}

func (h *fakeHub) forSubject(subject string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, u := range h.updates {
		if u.Subject == subject {
			n++
		}
	}
	return n
}

func (h *fakeHub) total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.updates)
}

func newTestPoller(counter Counter, hub Broadcaster, interval time.Duration) *Poller {
	cfg := &config.Config{PollInterval: interval, StoreTimeout: time.Second}
	return New(counter, hub, cfg, zap.NewNop(), metrics.New())
}

func TestRefreshSharesInFlightFetch(t *testing.T) {
	counter := &fakeCounter{delay: 50 * time.Millisecond, count: 4}
	hub := &fakeHub{}
	p := newTestPoller(counter, hub, time.Hour)
	id := domain.Identity{UserID: "u1", Role: domain.RoleStudent}

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Refresh(context.Background(), id)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.Equal(t, 4, r)
	}
	require.Equal(t, int32(1), counter.maxSeen.Load())
	require.Equal(t, int(counter.calls.Load()), hub.total())
}

func TestRefreshBroadcastsCount(t *testing.T) {
	counter := &fakeCounter{count: 2}
	hub := &fakeHub{}
	p := newTestPoller(counter, hub, time.Hour)

	require.Equal(t, 2, p.Refresh(context.Background(), domain.Identity{UserID: "u1"}))
	require.Len(t, hub.updates, 1)
	require.Equal(t, model.UnreadUpdate{Subject: "u1", Count: 2, At: hub.updates[0].At}, hub.updates[0])
}

func TestWatchRefreshesImmediatelyAndOnNudge(t *testing.T) {
	counter := &fakeCounter{count: 1}
	hub := &fakeHub{}
	p := newTestPoller(counter, hub, time.Hour)

	h := p.Watch(context.Background(), domain.Identity{UserID: "u1"})
	require.Eventually(t, func() bool { return hub.forSubject("u1") == 1 }, time.Second, 5*time.Millisecond)

	p.NudgeSubject("u1")
	require.Eventually(t, func() bool { return hub.forSubject("u1") == 2 }, time.Second, 5*time.Millisecond)

	p.NudgeSubject("someone-else")
	require.Never(t, func() bool { return hub.forSubject("u1") > 2 }, 100*time.Millisecond, 10*time.Millisecond)

	h.Stop()
	require.Equal(t, 0, p.Watching())
}

func TestWatchTicks(t *testing.T) {
	counter := &fakeCounter{count: 1}
	hub := &fakeHub{}
	p := newTestPoller(counter, hub, 20*time.Millisecond)

	h := p.Watch(context.Background(), domain.Identity{UserID: "u1"})
	defer h.Stop()
	require.Eventually(t, func() bool { return hub.forSubject("u1") >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestNudgeAdminsOnlyTouchesAdminWatches(t *testing.T) {
	counter := &fakeCounter{count: 0}
	hub := &fakeHub{}
	p := newTestPoller(counter, hub, time.Hour)

	admin := p.Watch(context.Background(), domain.Identity{UserID: "a1", Role: domain.RoleAdmin})
	defer admin.Stop()
	student := p.Watch(context.Background(), domain.Identity{UserID: "s1", Role: domain.RoleStudent})
	defer student.Stop()
	require.Eventually(t, func() bool {
		return hub.forSubject("a1") == 1 && hub.forSubject("s1") == 1
	}, time.Second, 5*time.Millisecond)

	p.NudgeAdmins()
	require.Eventually(t, func() bool { return hub.forSubject("a1") == 2 }, time.Second, 5*time.Millisecond)
	require.Never(t, func() bool { return hub.forSubject("s1") > 1 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestWatchEndsWithContext(t *testing.T) {
	p := newTestPoller(&fakeCounter{}, &fakeHub{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	h := p.Watch(ctx, domain.Identity{UserID: "u1"})
	require.Equal(t, 1, p.Watching())
	cancel()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("watch did not exit after cancel")
	}
	require.Equal(t, 0, p.Watching())
}

type gatedCounter struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
	count   int
}

func (g *gatedCounter) UnreadCount(ctx context.Context, _ domain.Identity) int {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return g.count
	case <-ctx.Done():
		return 0
	}
}

func TestRefreshSurvivesCallerLeaving(t *testing.T) {
	counter := &gatedCounter{entered: make(chan struct{}), release: make(chan struct{}), count: 5}
	hub := &fakeHub{}
	p := newTestPoller(counter, hub, time.Hour)
	id := domain.Identity{UserID: "u1"}

	first, cancelFirst := context.WithCancel(context.Background())
	firstResult := make(chan int, 1)
	go func() { firstResult <- p.Refresh(first, id) }()
	<-counter.entered

	secondResult := make(chan int, 1)
	go func() { secondResult <- p.Refresh(context.Background(), id) }()

	cancelFirst()
	require.Equal(t, 0, <-firstResult)
	close(counter.release)

	require.Equal(t, 5, <-secondResult)
	require.Eventually(t, func() bool { return hub.forSubject("u1") == 1 }, time.Second, 5*time.Millisecond)
	hub.mu.Lock()
	defer hub.mu.Unlock()
	require.Equal(t, 5, hub.updates[0].Count)
}
