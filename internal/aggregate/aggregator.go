// Package aggregate runs the fetch-dedup-persist-evict cycle for one source.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/abelbrown/wallfeed/internal/logging"
	"github.com/abelbrown/wallfeed/internal/source"
	"github.com/abelbrown/wallfeed/internal/store"
)

// SourceConfig is the per-source entry in the aggregator's table: every
// source-specific knob lives here instead of in conditionals at call sites.
type SourceConfig struct {
	Client          source.Client
	Enabled         bool
	BatchSize       int           // items requested per fetch
	RefreshInterval time.Duration // minimum time between fetches without force
}

// Outcome describes one aggregation run.
// Items holds the newly persisted items in provider order so callers can
// append them to a live stream without re-querying the catalog.
type Outcome struct {
	Source    store.Source
	Refreshed bool // false when the refresh policy skipped fetching

	Fetched     int // items the provider returned
	New         int // items surviving dedup
	Duplicate   int // items rejected as already known
	Saved       int // items actually persisted
	SourceTotal int // catalog size for this source after the run
	Total       int // catalog size across all sources after the run

	Items []store.Item
}

// Aggregator orchestrates fetch, dedup, persist, and evict for configured
// sources. Safe for concurrent Run calls on different sources: the store
// serializes writes internally and eviction is a single atomic statement.
type Aggregator struct {
	store        *store.Store
	evictor      *Evictor
	sources      map[store.Source]SourceConfig
	fetchTimeout time.Duration
}

// New creates an Aggregator over the given source table.
func New(st *store.Store, evictor *Evictor, sources map[store.Source]SourceConfig, fetchTimeout time.Duration) *Aggregator {
	if fetchTimeout <= 0 {
		fetchTimeout = source.DefaultTimeout
	}
	// Copy the table so later mutation by the caller can't race Run.
	table := make(map[store.Source]SourceConfig, len(sources))
	for k, v := range sources {
		table[k] = v
	}
	return &Aggregator{
		store:        st,
		evictor:      evictor,
		sources:      table,
		fetchTimeout: fetchTimeout,
	}
}

// Sources returns the configured, enabled source tags.
func (a *Aggregator) Sources() []store.Source {
	var out []store.Source
	for tag, cfg := range a.sources {
		if cfg.Enabled {
			out = append(out, tag)
		}
	}
	return out
}

// Run executes one aggregation cycle for a source.
//
// Unless force is set, a source fetched more recently than its refresh
// interval is skipped and the outcome reports Refreshed=false. A provider
// failure is absorbed as zero items; only storage failures surface as the
// run's error, and partial writes before such a failure remain committed.
func (a *Aggregator) Run(ctx context.Context, src store.Source, force bool) (Outcome, error) {
	outcome := Outcome{Source: src}

	cfg, ok := a.sources[src]
	if !ok {
		return outcome, fmt.Errorf("source %q not configured", src)
	}

	refresh := force && cfg.Client != nil
	if !force && cfg.Enabled && cfg.Client != nil {
		due, err := a.refreshDue(src, cfg)
		if err != nil {
			return outcome, err
		}
		refresh = due
	}

	if refresh {
		if err := a.fetchAndPersist(ctx, src, cfg, &outcome); err != nil {
			return outcome, err
		}
	}

	return outcome, a.fillTotals(&outcome, src)
}

// refreshDue reports whether the source's refresh interval has elapsed.
func (a *Aggregator) refreshDue(src store.Source, cfg SourceConfig) (bool, error) {
	last, err := a.store.LastAddedAt(src)
	if err != nil {
		return false, err
	}
	if last.IsZero() {
		return true, nil
	}
	if cfg.RefreshInterval <= 0 {
		return true, nil
	}
	return time.Since(last) >= cfg.RefreshInterval, nil
}

func (a *Aggregator) fetchAndPersist(ctx context.Context, src store.Source, cfg SourceConfig, outcome *Outcome) error {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 1
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	candidates, err := cfg.Client.Fetch(fetchCtx, batch)
	if err != nil {
		// Provider trouble is this round's problem only: zero items,
		// logged, never an aggregation error.
		logging.Warn("provider fetch failed", "source", src, "error", err)
		candidates = nil
	}
	outcome.Fetched = len(candidates)

	known, err := a.store.KnownURLs("")
	if err != nil {
		return err
	}

	unique := Dedup(candidates, known)
	outcome.New = len(unique)
	outcome.Duplicate = outcome.Fetched - outcome.New

	saved, err := a.store.InsertBatch(unique)
	outcome.Saved = saved
	if err != nil {
		return err
	}
	outcome.Items = unique
	outcome.Refreshed = true

	if saved > 0 {
		if _, err := a.evictor.Trim(a.store, src); err != nil {
			return err
		}
	}

	logging.Info("aggregation run complete",
		"source", src,
		"fetched", outcome.Fetched,
		"new", outcome.New,
		"duplicate", outcome.Duplicate,
		"saved", outcome.Saved)
	return nil
}

func (a *Aggregator) fillTotals(outcome *Outcome, src store.Source) error {
	sourceTotal, err := a.store.Count(src)
	if err != nil {
		return err
	}
	total, err := a.store.Count("")
	if err != nil {
		return err
	}
	outcome.SourceTotal = sourceTotal
	outcome.Total = total
	return nil
}
