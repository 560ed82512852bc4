package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/i474232898/fishing-forecast/internal/fishing"
)

type fakeMaintainer struct {
	mu       sync.Mutex
	pruned   int
	prewarms []fishing.Coordinate
	failFor  map[fishing.Coordinate]bool
}

func (m *fakeMaintainer) PruneCache(context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned++
	return 3
}

func (m *fakeMaintainer) Prewarm(_ context.Context, c fishing.Coordinate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prewarms = append(m.prewarms, c)
	if m.failFor[c] {
		return errors.New("upstream unavailable")
	}
	return nil
}

func TestRunOncePrunesAndPrewarms(t *testing.T) {
	spots := []fishing.Coordinate{
		{Latitude: 30.69, Longitude: -88.04},
		{Latitude: 39.74, Longitude: -104.99},
	}
	m := &fakeMaintainer{failFor: map[fishing.Coordinate]bool{spots[1]: true}}

	New(spots, time.Minute, m, nil).RunOnce()

	assert.Equal(t, 1, m.pruned)
	assert.ElementsMatch(t, spots, m.prewarms, "a failing spot does not stop the others")
}

func TestRunOnceWithoutSpots(t *testing.T) {
	m := &fakeMaintainer{}
	New(nil, time.Minute, m, nil).RunOnce()

	assert.Equal(t, 1, m.pruned)
	assert.Empty(t, m.prewarms)
}

func TestStartAndStop(t *testing.T) {
	m := &fakeMaintainer{}
	s := New(nil, 0, m, nil)

	assert.NoError(t, s.Start())
	s.Stop()
}
