// Package stream keeps a live, append-only wallpaper sequence topped up
// ahead of the consumer's read position.
package stream

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/wallfeed/internal/aggregate"
	"github.com/abelbrown/wallfeed/internal/logging"
	"github.com/abelbrown/wallfeed/internal/store"
)

// DefaultPrefetchThreshold triggers a background load when this few
// unviewed items remain ahead of the consumer.
const DefaultPrefetchThreshold = 5

// maxZeroRounds is how many consecutive empty rounds it takes before the
// consumer is told to check its network.
const maxZeroRounds = 3

// SourceComplete is sent as each source's aggregation finishes, before
// the rest of the round settles. Appended counts only items added to the
// live sequence.
type SourceComplete struct {
	Source   store.Source
	Appended int
	Err      error
}

// RoundComplete is sent once a whole load round has settled.
type RoundComplete struct {
	Appended int
}

// StalledNotice is sent after maxZeroRounds consecutive rounds appended
// nothing. It fires at most once per streak.
type StalledNotice struct {
	Rounds int
}

// OfflineNotice is sent when the preflight connectivity check fails and
// the round is skipped outright.
type OfflineNotice struct{}

// runner is the aggregation surface the scheduler needs; satisfied by
// *aggregate.Aggregator and by test fakes.
type runner interface {
	Sources() []store.Source
	Run(ctx context.Context, src store.Source, force bool) (aggregate.Outcome, error)
}

// Scheduler owns the live sequence. At most one load round runs at a
// time; both the proximity trigger and explicit refresh funnel through
// the same single-flight gate.
type Scheduler struct {
	agg       runner
	threshold int

	// notify delivers events to the consumer, typically a
	// tea.Program.Send. Never called while mu is held. Nil disables
	// event delivery.
	notify func(msg any)

	// online reports whether the network looks reachable. Nil skips the
	// preflight check.
	online func() bool

	mu        sync.Mutex
	items     []store.Item
	loading   bool
	paused    bool
	position  int
	zeroRuns  int
	roundDone sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithNotify sets the consumer event sink.
func WithNotify(fn func(msg any)) Option {
	return func(s *Scheduler) { s.notify = fn }
}

// WithPreflight sets the connectivity check run before each round.
func WithPreflight(fn func() bool) Option {
	return func(s *Scheduler) { s.online = fn }
}

// WithPrefetchThreshold overrides the proximity trigger distance.
func WithPrefetchThreshold(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// New creates a Scheduler over the given aggregator.
func New(agg runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		agg:       agg,
		threshold: DefaultPrefetchThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed preloads the sequence from already-persisted items, newest first.
// Call once before the consumer starts reading.
func (s *Scheduler) Seed(items []store.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
}

// Items returns a snapshot of the live sequence. Elements are copies;
// the underlying sequence only ever grows.
func (s *Scheduler) Items() []store.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the current sequence length.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// At returns the item at index i, if present.
func (s *Scheduler) At(i int) (store.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.items) {
		return store.Item{}, false
	}
	return s.items[i], true
}

// Loading reports whether a round is in flight.
func (s *Scheduler) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Pause stops scheduling new rounds. An in-flight round keeps running
// and its results are still appended when they arrive.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume re-enables scheduling.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// ReportPosition records the consumer's read position and triggers a
// background load when too few items remain ahead of it.
func (s *Scheduler) ReportPosition(ctx context.Context, p int) {
	s.mu.Lock()
	s.position = p
	trigger := !s.paused && !s.loading && len(s.items)-p-1 <= s.threshold
	if trigger {
		s.loading = true
	}
	s.mu.Unlock()

	if trigger {
		s.startRound(ctx, false)
	}
}

// Refresh forces a load round regardless of buffer depth and refresh
// intervals. Returns false when a round is already in flight or the
// scheduler is paused.
func (s *Scheduler) Refresh(ctx context.Context) bool {
	s.mu.Lock()
	if s.paused || s.loading {
		s.mu.Unlock()
		return false
	}
	s.loading = true
	s.mu.Unlock()

	s.startRound(ctx, true)
	return true
}

// Wait blocks until any in-flight round settles. Intended for shutdown
// and tests.
func (s *Scheduler) Wait() {
	s.roundDone.Wait()
}

// startRound launches one load round. The caller must already hold the
// loading flag.
func (s *Scheduler) startRound(ctx context.Context, force bool) {
	s.roundDone.Add(1)
	go func() {
		defer s.roundDone.Done()
		s.runRound(ctx, force)
	}()
}

// runRound fans out over all enabled sources, appending each source's
// items to the sequence as that source completes. The round settles when
// every source has, success or not.
func (s *Scheduler) runRound(ctx context.Context, force bool) {
	if s.online != nil && !s.online() {
		logging.Warn("load round skipped: network unreachable")
		s.settleRound(ctx, 0, true)
		return
	}

	var (
		appendMu sync.Mutex
		appended int
	)

	var g errgroup.Group
	for _, src := range s.agg.Sources() {
		g.Go(func() error {
			outcome, err := s.agg.Run(ctx, src, force)
			if err != nil {
				logging.Warn("aggregation failed", "source", src, "error", err)
				s.send(SourceComplete{Source: src, Err: err})
				return nil // never fail the group, errors reported per source
			}

			n := s.append(outcome.Items)
			appendMu.Lock()
			appended += n
			appendMu.Unlock()

			s.send(SourceComplete{Source: src, Appended: n})
			return nil
		})
	}
	_ = g.Wait()

	s.settleRound(ctx, appended, false)
}

// settleRound clears the loading flag, runs the failure-streak
// accounting, and re-evaluates the proximity trigger in case the
// consumer caught up during the load.
func (s *Scheduler) settleRound(ctx context.Context, appended int, offline bool) {
	s.mu.Lock()
	s.loading = false

	var stalled bool
	if offline || appended == 0 {
		s.zeroRuns++
		if s.zeroRuns >= maxZeroRounds {
			stalled = true
			s.zeroRuns = 0
		}
	} else {
		s.zeroRuns = 0
	}

	// Only re-trigger when the round actually produced something,
	// otherwise an empty catalog would loop forever.
	retrigger := appended > 0 && !s.paused &&
		len(s.items)-s.position-1 <= s.threshold
	if retrigger {
		s.loading = true
	}
	s.mu.Unlock()

	if offline {
		s.send(OfflineNotice{})
	}
	if stalled {
		s.send(StalledNotice{Rounds: maxZeroRounds})
	}
	s.send(RoundComplete{Appended: appended})

	if retrigger {
		s.startRound(ctx, false)
	}
}

// append adds items to the live sequence and returns how many were added.
func (s *Scheduler) append(items []store.Item) int {
	if len(items) == 0 {
		return 0
	}
	s.mu.Lock()
	s.items = append(s.items, items...)
	s.mu.Unlock()
	return len(items)
}

// MarkLocalPath records the downloaded path on the in-memory copy so the
// consumer sees cached state without re-querying.
func (s *Scheduler) MarkLocalPath(id, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].LocalPath = path
			return
		}
	}
}

// MarkPinned flips the pinned flag on the in-memory copy.
func (s *Scheduler) MarkPinned(id string, pinned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Pinned = pinned
			return
		}
	}
}

func (s *Scheduler) send(msg any) {
	if s.notify != nil {
		s.notify(msg)
	}
}
