package systems

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/phusis/engine/core"
)

func TestNewWorkerPool(t *testing.T) {
	_, err := NewWorkerPool(-1)
	assert.ErrorIs(t, err, ErrNoWorkers)

	p, err := NewWorkerPool(0)
	require.NoError(t, err)
	defer p.Shutdown()
	assert.Equal(t, DefaultWorkerCount(), p.Workers())
	assert.GreaterOrEqual(t, p.Workers(), 1)
}

func TestPartitionScenarios(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		offsets []int
		sizes   []int
	}{
		{"even", 1000, []int{0, 250, 500, 750}, []int{250, 250, 250, 250}},
		{"remainder", 1003, []int{0, 251, 502, 753}, []int{251, 251, 251, 250}},
		{"fewer than parts", 2, []int{0, 1, 2, 2}, []int{1, 1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 4; i++ {
				offset, size := Partition(tt.total, 4, i)
				assert.Equal(t, tt.offsets[i], offset, "offset of slice %d", i)
				assert.Equal(t, tt.sizes[i], size, "size of slice %d", i)
			}
		})
	}
}

func TestPartitionIsExact(t *testing.T) {
	for w := 1; w <= 16; w++ {
		for n := 0; n <= 257; n++ {
			covered := 0
			for i := 0; i < w; i++ {
				offset, size := Partition(n, w, i)
				require.Equal(t, covered, offset, "n=%d w=%d i=%d", n, w, i)
				covered += size
			}
			require.Equal(t, n, covered, "n=%d w=%d", n, w)
		}
	}
}

func TestSubmitRunsEveryTask(t *testing.T) {
	p, err := NewWorkerPool(3)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var ran atomic.Int64
	for i := 0; i < 100; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func(worker int) {
			defer wg.Done()
			assert.GreaterOrEqual(t, worker, 0)
			assert.Less(t, worker, 3)
			ran.Add(1)
		}))
	}
	wg.Wait()
	require.NoError(t, p.Shutdown())
	assert.Equal(t, int64(100), ran.Load())
}

func TestSubmitIsFIFOPerWorker(t *testing.T) {
	p, err := NewWorkerPool(1)
	require.NoError(t, err)

	var order []int
	var mu sync.Mutex
	for i := 0; i < 50; i++ {
		i := i
		require.NoError(t, p.Submit(func(int) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	require.NoError(t, p.Shutdown())

	require.Len(t, order, 50)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestSubmitBatchItemPerWorker(t *testing.T) {
	p, err := NewWorkerPool(4)
	require.NoError(t, err)

	var mu sync.Mutex
	seen := map[int]int{}
	require.NoError(t, p.SubmitBatch(func(worker, item int) {
		mu.Lock()
		defer mu.Unlock()
		seen[item] = worker
	}, 3))
	require.NoError(t, p.Shutdown())

	assert.Equal(t, map[int]int{0: 0, 1: 1, 2: 2}, seen)
}

func TestSubmitBatchSlices(t *testing.T) {
	p, err := NewWorkerPool(4)
	require.NoError(t, err)

	hits := make([]atomic.Int32, 1003)
	owner := make([]atomic.Int32, 1003)
	require.NoError(t, p.SubmitBatch(func(worker, item int) {
		hits[item].Add(1)
		owner[item].Store(int32(worker))
	}, len(hits)))
	require.NoError(t, p.Shutdown())

	for i := range hits {
		require.Equal(t, int32(1), hits[i].Load(), "item %d", i)
	}
	for w := 0; w < 4; w++ {
		offset, size := Partition(len(hits), 4, w)
		for i := offset; i < offset+size; i++ {
			assert.Equal(t, int32(w), owner[i].Load(), "item %d", i)
		}
	}
}

func TestWorkerSurvivesPanic(t *testing.T) {
	p, err := NewWorkerPool(1)
	require.NoError(t, err)

	done := make(chan struct{})
	require.NoError(t, p.Submit(func(int) { panic("boom") }))
	require.NoError(t, p.Submit(func(int) { close(done) }))
	<-done
	require.NoError(t, p.Shutdown())
}

func TestSubmitAfterShutdown(t *testing.T) {
	p, err := NewWorkerPool(2)
	require.NoError(t, err)
	require.NoError(t, p.Shutdown())
	require.NoError(t, p.Shutdown())

	assert.ErrorIs(t, p.Submit(func(int) {}), core.ErrPoolClosed)
	assert.ErrorIs(t, p.SubmitBatch(func(int, int) {}, 4), core.ErrPoolClosed)
}
