package aggregate

import (
	"github.com/abelbrown/wallfeed/internal/logging"
	"github.com/abelbrown/wallfeed/internal/store"
)

// Default retention caps. Both are soft limits: pinned items never count
// toward a cap and are never deleted, so a catalog full of favorites may
// legitimately exceed either.
const (
	DefaultPerSourceCap = 100
	DefaultGlobalCap    = 200
)

// Evictor enforces the two retention caps after writes enlarge the catalog.
// The per-source cap keeps one chatty provider from crowding out the rest;
// the global cap bounds total storage regardless of source mix.
type Evictor struct {
	PerSourceCap int
	GlobalCap    int
}

// NewEvictor creates an Evictor, substituting defaults for non-positive caps.
func NewEvictor(perSource, global int) *Evictor {
	if perSource <= 0 {
		perSource = DefaultPerSourceCap
	}
	if global <= 0 {
		global = DefaultGlobalCap
	}
	return &Evictor{PerSourceCap: perSource, GlobalCap: global}
}

// Trim applies the per-source cap for the given source, then the global cap
// across all sources. Idempotent: running it again deletes nothing.
// Returns the number of items evicted.
func (e *Evictor) Trim(st *store.Store, source store.Source) (int, error) {
	evicted := 0

	if source != "" {
		n, err := st.DeleteOldest(source, e.PerSourceCap)
		if err != nil {
			return evicted, err
		}
		evicted += n
	}

	total, err := st.CountUnpinned("")
	if err != nil {
		return evicted, err
	}
	if total > e.GlobalCap {
		n, err := st.DeleteOldest("", e.GlobalCap)
		if err != nil {
			return evicted, err
		}
		evicted += n
	}

	if evicted > 0 {
		logging.Debug("evicted old wallpapers", "source", source, "count", evicted)
	}
	return evicted, nil
}
