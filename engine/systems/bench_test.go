package systems

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func BenchmarkSubmit(b *testing.B) {
	p, err := NewWorkerPool(0)
	require.NoError(b, err)
	defer p.Shutdown()

	var done atomic.Int64
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.Submit(func(int) { done.Add(1) })
	}
	for done.Load() != int64(b.N) {
		runtime.Gosched()
	}
}

func BenchmarkRenderJob(b *testing.B) {
	p, err := NewWorkerPool(0)
	require.NoError(b, err)
	defer p.Shutdown()

	var sink atomic.Int64
	job := NewRenderJob(p, func(worker, item int) { sink.Add(int64(item)) })
	for _, size := range []int{1, p.Workers(), 1024} {
		b.Run(fmt.Sprintf("items=%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				require.True(b, job.Dispatch(size))
				job.Wait()
			}
		})
	}
}
