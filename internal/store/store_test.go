package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattiq/mailrelay/internal/core"
)

func TestStatuses_RecordIsWriteOnce(t *testing.T) {
	s := NewStatuses()

	_, ok := s.Get("a")
	assert.False(t, ok)

	require.True(t, s.Record("a", core.StatusFailed))
	assert.False(t, s.Record("a", core.StatusSuccess), "terminal status must not be overwritten")

	status, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, core.StatusFailed, status)
	assert.Equal(t, 1, s.Len())
}

func TestStatuses_RejectsNonTerminal(t *testing.T) {
	s := NewStatuses()

	for _, status := range []core.DeliveryStatus{core.StatusQueued, core.StatusDuplicate, core.StatusNotFound} {
		assert.False(t, s.Record("a", status), status.String())
	}
	assert.Equal(t, 0, s.Len())
}

func TestDedupIndex_AddContains(t *testing.T) {
	d := NewDedupIndex()

	assert.False(t, d.Contains("a"))
	assert.True(t, d.Add("a"))
	assert.False(t, d.Add("a"))
	assert.True(t, d.Contains("a"))
	assert.Equal(t, 1, d.Len())
}

func TestDedupIndex_ConcurrentAdd(t *testing.T) {
	d := NewDedupIndex()

	var wg sync.WaitGroup
	var mu sync.Mutex
	added := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if d.Add(fmt.Sprintf("id-%d", i%10)) {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, added)
	assert.Equal(t, 10, d.Len())
}
