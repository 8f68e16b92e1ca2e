package poll

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"notifybell/internal/config"
	"notifybell/internal/domain"
	"notifybell/internal/metrics"
	"notifybell/internal/model"
)

type Counter interface {
	UnreadCount(ctx context.Context, id domain.Identity) int
}

type Broadcaster interface {
	Broadcast(update model.UnreadUpdate)
}

// Poller keeps the unread badge of every open view fresh: once when the
// view opens, on every interval tick and whenever a write nudges it.
type Poller struct {
	counter  Counter
	hub      Broadcaster
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
	metrics  *metrics.Metrics

	group singleflight.Group

	mu      sync.Mutex
	watches map[*watch]struct{}
}

type watch struct {
	identity domain.Identity
	trigger  chan struct{}
}

// Handle controls one watch. Stop cancels it and waits for it to exit.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

// Done is closed when the watch has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

func New(counter Counter, hub Broadcaster, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *Poller {
	interval, timeout := cfg.PollInterval, cfg.StoreTimeout
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		counter:  counter,
		hub:      hub,
		interval: interval,
		timeout:  timeout,
		log:      logger,
		metrics:  m,
		watches:  make(map[*watch]struct{}),
	}
}

// Watch starts refreshing id's unread count until ctx is done or the handle
// is stopped.
func (p *Poller) Watch(ctx context.Context, id domain.Identity) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	w := &watch{identity: id, trigger: make(chan struct{}, 1)}
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	p.mu.Lock()
	p.watches[w] = struct{}{}
	p.mu.Unlock()

	go func() {
		defer close(h.done)
		defer func() {
			p.mu.Lock()
			delete(p.watches, w)
			p.mu.Unlock()
		}()
		p.loop(ctx, w)
	}()
	return h
}

func (p *Poller) loop(ctx context.Context, w *watch) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Refresh(ctx, w.identity)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.trigger:
		}
		p.Refresh(ctx, w.identity)

		// A tick that fired while the refresh ran is stale.
		select {
		case <-ticker.C:
		default:
		}
	}
}

// Refresh recomputes id's unread count. Concurrent calls for one subject
// share a single fetch, which runs detached from any caller and broadcasts
// to every open view of the subject. A caller whose ctx ends first gets 0
// and leaves the fetch running.
func (p *Poller) Refresh(ctx context.Context, id domain.Identity) int {
	var ran bool
	ch := p.group.DoChan(id.UserID, func() (any, error) {
		ran = true
		fetchCtx := context.WithoutCancel(ctx)
		if p.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, p.timeout)
			defer cancel()
		}
		count := p.counter.UnreadCount(fetchCtx, id)
		p.hub.Broadcast(model.UnreadUpdate{Subject: id.UserID, Count: count, At: time.Now().UTC()})
		return count, nil
	})

	select {
	case <-ctx.Done():
		return 0
	case res := <-ch:
		if ran {
			p.metrics.PollRefreshes.WithLabelValues("run").Inc()
		} else {
			p.metrics.PollRefreshes.WithLabelValues("shared").Inc()
		}
		return res.Val.(int)
	}
}

// NudgeSubject asks every watch of userID to refresh soon.
func (p *Poller) NudgeSubject(userID string) {
	p.nudge(func(id domain.Identity) bool { return id.UserID == userID })
}

// NudgeAdmins asks every admin-class watch to refresh soon.
func (p *Poller) NudgeAdmins() {
	p.nudge(domain.Identity.IsAdminClass)
}

func (p *Poller) nudge(match func(domain.Identity) bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	nudged := 0
	for w := range p.watches {
		if !match(w.identity) {
			continue
		}
		select {
		case w.trigger <- struct{}{}:
			nudged++
		default:
			// A refresh is already pending.
		}
	}
	if nudged > 0 {
		p.log.Debug("poll watches nudged", zap.Int("watches", nudged))
	}
}

// Watching reports how many watches are open.
func (p *Poller) Watching() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watches)
}
