// Package dashboard owns the currently displayed risk layer and the scorer
// fitted to it, and answers the dashboard's queries against them.
package dashboard

import (
	"sync/atomic"
	"time"

	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/couchcryptid/geo-risk-service/internal/geodata"
)

// Snapshot is one immutable pairing of a layer with its scorer. Layer is
// nil until a layer has been loaded.
type Snapshot struct {
	Layer    *geodata.Layer
	Scorer   domain.Scorer
	LoadedAt time.Time
}

// State holds the current snapshot. Readers never block; a reload swaps
// the whole snapshot at once.
type State struct {
	current atomic.Pointer[Snapshot]
}

// NewState creates a State with no layer and the given scorer.
func NewState(scorer domain.Scorer) *State {
	s := &State{}
	s.current.Store(&Snapshot{Scorer: scorer})
	return s
}

// Load returns the current snapshot.
func (s *State) Load() *Snapshot {
	return s.current.Load()
}

// Store replaces the current snapshot.
func (s *State) Store(snap *Snapshot) {
	s.current.Store(snap)
}
