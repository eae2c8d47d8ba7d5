package fetcher

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// blockGuard is the folder-wide brake. Individual block responses are a
// per-item concern, but a run of them across workers means the remote is
// throttling the whole scan; the guard then pauses every worker for a
// cooldown window instead of letting them busy-retry into the block.
type blockGuard struct {
	threshold int
	cooldown  time.Duration

	mu          sync.Mutex
	consecutive int
	until       time.Time
	episodes    int
}

func newBlockGuard(threshold int, cooldown time.Duration) *blockGuard {
	return &blockGuard{threshold: threshold, cooldown: cooldown}
}

// Wait blocks the caller until any active cooldown window has passed.
func (g *blockGuard) Wait(ctx context.Context) error {
	g.mu.Lock()
	remaining := time.Until(g.until)
	g.mu.Unlock()

	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Blocked records one block-classified response. Crossing the threshold
// opens a cooldown window and counts an episode; the return value reports
// whether this call opened one.
func (g *blockGuard) Blocked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.consecutive++
	if g.consecutive < g.threshold {
		return false
	}

	now := time.Now()
	if now.Before(g.until) {
		// Window already open; blocked responses that raced into it do
		// not extend or re-count the episode.
		return false
	}

	g.until = now.Add(g.cooldown)
	g.episodes++
	g.consecutive = 0
	slog.Warn("throttle episode detected, pausing all fetches",
		slog.Duration("cooldown", g.cooldown),
		slog.Int("episode", g.episodes),
	)
	return true
}

// Success resets the consecutive-block counter.
func (g *blockGuard) Success() {
	g.mu.Lock()
	g.consecutive = 0
	g.mu.Unlock()
}

// Episodes returns how many cooldown windows were opened.
func (g *blockGuard) Episodes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.episodes
}
