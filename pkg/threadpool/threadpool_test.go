package threadpool_test

import (
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/gpustack/npu-compiler-core/pkg/threadpool"
)

func TestNewRespectsEnvOverride(t *testing.T) {
	require.NoError(t, os.Setenv("ETHOSN_SUPPORT_LIBRARY_NUM_THREADS", "3"))
	defer os.Unsetenv("ETHOSN_SUPPORT_LIBRARY_NUM_THREADS")

	p := New()
	defer p.Shutdown()
	assert.Equal(t, 3, p.NumWorkers())
}

func TestZeroWorkersRunsInline(t *testing.T) {
	require.NoError(t, os.Setenv("ETHOSN_SUPPORT_LIBRARY_NUM_THREADS", "0"))
	defer os.Unsetenv("ETHOSN_SUPPORT_LIBRARY_NUM_THREADS")

	p := New()
	defer p.Shutdown()

	var ran bool
	h := p.Submit(func(workerID int) {
		ran = true
		assert.Equal(t, -1, workerID)
	})
	h.Wait()
	assert.True(t, ran)
}

func TestSubmitFromRunsInlineWhenOnWorker(t *testing.T) {
	require.NoError(t, os.Setenv("ETHOSN_SUPPORT_LIBRARY_NUM_THREADS", "2"))
	defer os.Unsetenv("ETHOSN_SUPPORT_LIBRARY_NUM_THREADS")

	p := New()
	defer p.Shutdown()

	var count int64
	h := p.Submit(func(workerID int) {
		inner := p.SubmitFrom(workerID, func(int) {
			atomic.AddInt64(&count, 1)
		})
		inner.Wait()
		atomic.AddInt64(&count, 1)
	})
	h.Wait()
	assert.Equal(t, int64(2), atomic.LoadInt64(&count))
}
