package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nirv-ico/onboarding/internal/flow"
)

type journeyEntry struct {
	journey  *flow.Journey
	lastSeen time.Time
}

// uploadHold is how long an idle journey on the KYC step is kept once a
// document has been uploaded. The uploaded URLs live only in the journey.
const uploadHold = 24 * time.Hour

// journeys keeps one flow.Journey per browser session. Entries idle for
// longer than idleTTL are dropped by sweep, or uploadHold when they carry
// uploaded KYC documents; the next request from that browser starts over on
// signup while its stored credential survives.
type journeys struct {
	build   func(sessionID string) *flow.Journey
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*journeyEntry
}

func newJourneys(idleTTL time.Duration, build func(sessionID string) *flow.Journey) *journeys {
	return &journeys{
		build:   build,
		idleTTL: idleTTL,
		now:     time.Now,
		entries: make(map[string]*journeyEntry),
	}
}

func (r *journeys) get(sessionID string) *flow.Journey {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok {
		e = &journeyEntry{journey: r.build(sessionID)}
		r.entries[sessionID] = e
	}
	e.lastSeen = r.now()
	return e.journey
}

func (r *journeys) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *journeys) sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.entries {
		ttl := r.idleTTL
		if ttl < uploadHold && hasUploads(e.journey) {
			ttl = uploadHold
		}
		if e.lastSeen.Before(now.Add(-ttl)) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

func hasUploads(j *flow.Journey) bool {
	k, ok := j.KYC()
	if !ok {
		return false
	}
	for _, slot := range k.Slots() {
		if slot.Complete() {
			return true
		}
	}
	return false
}

func (r *journeys) run(ctx context.Context, logger *slog.Logger) {
	if r.idleTTL <= 0 {
		return
	}
	interval := r.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.sweep(); n > 0 {
				logger.Debug("expired idle journeys", slog.Int("count", n))
			}
		}
	}
}
