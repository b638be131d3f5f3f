package notify

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rpattn/cagetrack/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func event(i int) domain.StageChangeEvent {
	return domain.StageChangeEvent{
		CageCode:  fmt.Sprintf("GAIOL-%03d", i),
		From:      domain.StageCreated,
		To:        domain.StageOutboundTransit,
		Timestamp: time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
	}
}

func TestRecentIsNewestFirst(t *testing.T) {
	log := NewLog(10)
	for i := 1; i <= 3; i++ {
		log.Append(event(i))
	}

	recent := log.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, "GAIOL-003", recent[0].CageCode)
	assert.Equal(t, "GAIOL-002", recent[1].CageCode)
	assert.Equal(t, "GAIOL-001", recent[2].CageCode)

	limited := log.Recent(2)
	require.Len(t, limited, 2)
	assert.Equal(t, "GAIOL-003", limited[0].CageCode)
	assert.Equal(t, 3, log.Len(), "reading must not consume events")
}

func TestCapacityEvictsOldest(t *testing.T) {
	const capacity = 5
	log := NewLog(capacity)
	for i := 1; i <= 12; i++ {
		log.Append(event(i))
		assert.LessOrEqual(t, log.Len(), capacity)
	}

	recent := log.Recent(capacity)
	require.Len(t, recent, capacity)
	for i, e := range recent {
		assert.Equal(t, fmt.Sprintf("GAIOL-%03d", 12-i), e.CageCode)
	}
	assert.Len(t, log.Recent(100), capacity)
}

func TestRecentEdgeCases(t *testing.T) {
	log := NewLog(3)
	assert.Empty(t, log.Recent(5))
	log.Append(event(1))
	assert.Empty(t, log.Recent(0))
	assert.Empty(t, log.Recent(-1))
}

func TestDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewLog(0).Capacity())
	assert.Equal(t, 500, NewLog(-3).Capacity())
}

func TestClear(t *testing.T) {
	log := NewLog(4)
	for i := 1; i <= 6; i++ {
		log.Append(event(i))
	}
	log.Clear()
	assert.Equal(t, 0, log.Len())
	assert.Empty(t, log.Recent(4))

	log.Append(event(7))
	recent := log.Recent(4)
	require.Len(t, recent, 1)
	assert.Equal(t, "GAIOL-007", recent[0].CageCode)
}

func TestConcurrentAppendAndRead(t *testing.T) {
	const (
		capacity = 50
		writers  = 8
		perWrite = 200
	)
	log := NewLog(capacity)

	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := range perWrite {
				log.Append(event(w*perWrite + i))
			}
		}(w)
	}
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWrite {
				assert.LessOrEqual(t, len(log.Recent(capacity)), capacity)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, log.Len())
}
