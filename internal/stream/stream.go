// Package stream fans out newly observed IDS alerts to live subscribers.
package stream

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"watchtower.dev/internal/alerts"
	"watchtower.dev/internal/obs"
)

// Stream fan-outs alerts to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan alerts.SuricataAlert
	next int
}

func New() *Stream {
	return &Stream{subs: make(map[int]chan alerts.SuricataAlert)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// alerts. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan alerts.SuricataAlert {
	ch := make(chan alerts.SuricataAlert, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Subscribers reports the number of active subscribers.
func (s *Stream) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Publish fan-outs the alert to all subscribers. Slow subscribers miss it.
func (s *Stream) Publish(a alerts.SuricataAlert) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- a:
		default:
		}
	}
}

// Poller asks a source for the latest alerts and publishes the ones not present in
// the previous window, oldest first. The first poll only records the window.
type Poller struct {
	stream   *Stream
	source   alerts.Source
	interval time.Duration
	seen     map[string]struct{}
	primed   bool
}

func NewPoller(s *Stream, src alerts.Source, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{stream: s, source: src, interval: interval}
}

// Tick performs one poll and returns how many alerts were published.
func (p *Poller) Tick(ctx context.Context) (int, error) {
	items, err := p.source.SuricataAlerts(ctx, alerts.DefaultLimit)
	if err != nil {
		return 0, err
	}
	window := make(map[string]struct{}, len(items))
	published := 0
	for i := len(items) - 1; i >= 0; i-- {
		a := items[i]
		window[a.ID] = struct{}{}
		if !p.primed {
			continue
		}
		if _, ok := p.seen[a.ID]; ok {
			continue
		}
		p.stream.Publish(a)
		published++
	}
	p.seen = window
	p.primed = true
	return published, nil
}

// Run polls until ctx ends.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if _, err := p.Tick(ctx); err != nil && ctx.Err() == nil {
			obs.Logger().Warn("alert poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
