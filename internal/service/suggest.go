package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dfgutierrez/sigr-sales/internal/domain"
	"github.com/dfgutierrez/sigr-sales/internal/session"
)

// PlateSearcher is the slice of the vehicle client the suggester needs.
type PlateSearcher interface {
	SearchByPlate(ctx context.Context, locationID, fragment string) ([]domain.Vehicle, error)
}

// suggestState holds the per-workflow debounce timer and the sequencing state
// that guards against out-of-order search responses.
type suggestState struct {
	timer *time.Timer

	// issued counts dispatched searches, applied records the highest
	// sequence whose result has been stored. A result is discarded when a
	// later search already delivered.
	issued  uint64
	applied uint64

	suggestions []domain.Vehicle
}

// VehicleSuggester debounces plate fragments and keeps the latest suggestion
// list per workflow. Keystrokes arriving inside the quiet period restart the
// timer, so only the final fragment of a typing burst reaches the vehicle
// service. Responses that complete after a newer search are dropped.
type VehicleSuggester struct {
	searcher PlateSearcher
	debounce time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	states map[string]*suggestState
	closed bool

	wg sync.WaitGroup
}

// NewVehicleSuggester creates a suggester with the given quiet period.
func NewVehicleSuggester(searcher PlateSearcher, debounce time.Duration, logger *slog.Logger) *VehicleSuggester {
	return &VehicleSuggester{
		searcher: searcher,
		debounce: debounce,
		logger:   logger,
		states:   make(map[string]*suggestState),
	}
}

// Observe registers a plate fragment keystroke for a workflow. The search is
// dispatched only after the quiet period passes with no further keystrokes.
// An empty fragment clears the suggestion list immediately.
func (s *VehicleSuggester) Observe(ctx context.Context, workflowID, locationID, fragment string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	st := s.states[workflowID]
	if st == nil {
		st = &suggestState{}
		s.states[workflowID] = st
	}

	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}

	if fragment == "" {
		st.issued++
		st.applied = st.issued
		st.suggestions = nil
		return
	}

	// The request context dies with the HTTP request, but the search fires
	// later. Carry only the operator session forward.
	searchCtx := context.Background()
	if sess := session.FromContext(ctx); sess != nil {
		searchCtx = session.NewContext(searchCtx, sess)
	}

	st.issued++
	seq := st.issued

	st.timer = time.AfterFunc(s.debounce, func() {
		s.search(searchCtx, workflowID, locationID, fragment, seq)
	})
}

func (s *VehicleSuggester) search(ctx context.Context, workflowID, locationID, fragment string, seq uint64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	vehicles, err := s.searcher.SearchByPlate(ctx, locationID, fragment)
	if err != nil {
		s.logger.WarnContext(ctx, "plate suggestion search failed",
			slog.String("workflow_id", workflowID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.states[workflowID]
	if st == nil || seq <= st.applied {
		// A newer search already delivered, or the workflow was dropped.
		return
	}
	st.applied = seq
	st.suggestions = vehicles
}

// Latest returns the most recent suggestion list for a workflow. It never
// blocks on an in-flight search.
func (s *VehicleSuggester) Latest(workflowID string) []domain.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.states[workflowID]
	if st == nil {
		return nil
	}
	return st.suggestions
}

// Drop discards all suggestion state for a workflow, cancelling any pending
// debounce timer.
func (s *VehicleSuggester) Drop(workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.states[workflowID]
	if st == nil {
		return
	}
	if st.timer != nil {
		st.timer.Stop()
	}
	delete(s.states, workflowID)
}

// Close stops all pending timers and waits for in-flight searches to finish.
func (s *VehicleSuggester) Close() {
	s.mu.Lock()
	s.closed = true
	for _, st := range s.states {
		if st.timer != nil {
			st.timer.Stop()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}
