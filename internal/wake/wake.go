// Package wake turns "the machine resumed" into an edge-triggered signal.
package wake

import (
	"context"
	"sync"
	"time"

	"pulse/internal/clock"
)

type Signal struct {
	At     time.Time `json:"at"`
	Reason string    `json:"reason"`
}

type Source interface {
	Signals() <-chan Signal
}

// Manual is fed by an external hook, e.g. a sleepwatcher or systemd-sleep
// script calling the control API. Pending signals coalesce into one.
type Manual struct {
	clock clock.Clock
	ch    chan Signal
}

func NewManual(clk clock.Clock) *Manual {
	return &Manual{clock: clk, ch: make(chan Signal, 1)}
}

func (m *Manual) Signals() <-chan Signal {
	return m.ch
}

// Trigger reports a resume. It returns false when a signal was already pending.
func (m *Manual) Trigger(reason string) bool {
	select {
	case m.ch <- Signal{At: m.clock.Now(), Reason: reason}:
		return true
	default:
		return false
	}
}

// GapDetector polls the wall clock and reports a resume whenever consecutive
// polls are much further apart than the poll interval, which happens after
// system sleep.
type GapDetector struct {
	interval time.Duration
	slack    time.Duration
	now      func() time.Time
	ch       chan Signal
	last     time.Time
}

// NewGapDetector polls clk every interval. The poll cadence itself runs on a
// runtime ticker; only the observed instants come from clk.
func NewGapDetector(clk clock.Clock, interval time.Duration) *GapDetector {
	return &GapDetector{
		interval: interval,
		slack:    interval,
		now:      clk.Now,
		ch:       make(chan Signal, 1),
	}
}

func (g *GapDetector) Signals() <-chan Signal {
	return g.ch
}

func (g *GapDetector) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	g.last = g.now().Round(0)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.observe(g.now())
		}
	}
}

func (g *GapDetector) observe(now time.Time) bool {
	// Round(0) drops the monotonic reading, which does not advance during sleep.
	now = now.Round(0)
	gap := now.Sub(g.last)
	g.last = now
	if gap <= g.interval+g.slack {
		return false
	}
	select {
	case g.ch <- Signal{At: now, Reason: "clock_gap"}:
	default:
	}
	return true
}

type merged struct {
	ch chan Signal
}

func (m *merged) Signals() <-chan Signal {
	return m.ch
}

// Merge fans several sources into one until ctx is done.
func Merge(ctx context.Context, sources ...Source) Source {
	out := &merged{ch: make(chan Signal, len(sources))}

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(in <-chan Signal) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case sig, ok := <-in:
					if !ok {
						return
					}
					select {
					case out.ch <- sig:
					case <-ctx.Done():
						return
					}
				}
			}
		}(src.Signals())
	}
	go func() {
		wg.Wait()
		close(out.ch)
	}()
	return out
}
