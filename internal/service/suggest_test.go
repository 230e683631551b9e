package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfgutierrez/sigr-sales/internal/domain"
)

type searchFunc func(ctx context.Context, locationID, fragment string) ([]domain.Vehicle, error)

func (f searchFunc) SearchByPlate(ctx context.Context, locationID, fragment string) ([]domain.Vehicle, error) {
	return f(ctx, locationID, fragment)
}

func TestSuggesterDebounceCoalescesKeystrokes(t *testing.T) {
	var calls int64
	var lastFragment atomic.Value

	searcher := searchFunc(func(ctx context.Context, locationID, fragment string) ([]domain.Vehicle, error) {
		atomic.AddInt64(&calls, 1)
		lastFragment.Store(fragment)
		return []domain.Vehicle{{ID: "veh-1", Plate: "ABC123"}}, nil
	})

	s := NewVehicleSuggester(searcher, 20*time.Millisecond, newTestLogger())
	defer s.Close()

	ctx := context.Background()
	s.Observe(ctx, "wf-1", "loc-1", "A")
	s.Observe(ctx, "wf-1", "loc-1", "AB")
	s.Observe(ctx, "wf-1", "loc-1", "ABC")

	require.Eventually(t, func() bool {
		return len(s.Latest("wf-1")) == 1
	}, time.Second, 5*time.Millisecond)

	// Only the final fragment of the burst reaches the vehicle service.
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
	assert.Equal(t, "ABC", lastFragment.Load())
	assert.Equal(t, "ABC123", s.Latest("wf-1")[0].Plate)
}

func TestSuggesterDiscardsStaleResponse(t *testing.T) {
	firstStarted := make(chan struct{})
	release := make(chan struct{})

	searcher := searchFunc(func(ctx context.Context, locationID, fragment string) ([]domain.Vehicle, error) {
		if fragment == "AB" {
			close(firstStarted)
			<-release
			return []domain.Vehicle{{Plate: "STALE"}}, nil
		}
		return []domain.Vehicle{{Plate: "FRESH"}}, nil
	})

	s := NewVehicleSuggester(searcher, time.Millisecond, newTestLogger())
	defer s.Close()

	ctx := context.Background()
	s.Observe(ctx, "wf-1", "loc-1", "AB")

	select {
	case <-firstStarted:
	case <-time.After(time.Second):
		t.Fatal("first search never started")
	}

	// A newer query is scheduled while the first is still in flight.
	s.Observe(ctx, "wf-1", "loc-1", "ABC")

	require.Eventually(t, func() bool {
		latest := s.Latest("wf-1")
		return len(latest) == 1 && latest[0].Plate == "FRESH"
	}, time.Second, 5*time.Millisecond)

	close(release)

	// The superseded response must not overwrite the newer one.
	assert.Never(t, func() bool {
		latest := s.Latest("wf-1")
		return len(latest) != 1 || latest[0].Plate != "FRESH"
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestSuggesterEmptyFragmentClears(t *testing.T) {
	searcher := searchFunc(func(ctx context.Context, locationID, fragment string) ([]domain.Vehicle, error) {
		return []domain.Vehicle{{Plate: "ABC123"}}, nil
	})

	s := NewVehicleSuggester(searcher, time.Millisecond, newTestLogger())
	defer s.Close()

	ctx := context.Background()
	s.Observe(ctx, "wf-1", "loc-1", "ABC")
	require.Eventually(t, func() bool {
		return len(s.Latest("wf-1")) == 1
	}, time.Second, 5*time.Millisecond)

	s.Observe(ctx, "wf-1", "loc-1", "")
	assert.Empty(t, s.Latest("wf-1"))
}

func TestSuggesterSearchErrorKeepsPreviousResults(t *testing.T) {
	var fail atomic.Bool

	searcher := searchFunc(func(ctx context.Context, locationID, fragment string) ([]domain.Vehicle, error) {
		if fail.Load() {
			return nil, context.DeadlineExceeded
		}
		return []domain.Vehicle{{Plate: "ABC123"}}, nil
	})

	s := NewVehicleSuggester(searcher, time.Millisecond, newTestLogger())
	defer s.Close()

	ctx := context.Background()
	s.Observe(ctx, "wf-1", "loc-1", "ABC")
	require.Eventually(t, func() bool {
		return len(s.Latest("wf-1")) == 1
	}, time.Second, 5*time.Millisecond)

	fail.Store(true)
	s.Observe(ctx, "wf-1", "loc-1", "ABCD")

	assert.Never(t, func() bool {
		return len(s.Latest("wf-1")) != 1
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestSuggesterDrop(t *testing.T) {
	searcher := searchFunc(func(ctx context.Context, locationID, fragment string) ([]domain.Vehicle, error) {
		return []domain.Vehicle{{Plate: "ABC123"}}, nil
	})

	s := NewVehicleSuggester(searcher, time.Millisecond, newTestLogger())
	defer s.Close()

	ctx := context.Background()
	s.Observe(ctx, "wf-1", "loc-1", "ABC")
	require.Eventually(t, func() bool {
		return len(s.Latest("wf-1")) == 1
	}, time.Second, 5*time.Millisecond)

	s.Drop("wf-1")
	assert.Empty(t, s.Latest("wf-1"))
}
