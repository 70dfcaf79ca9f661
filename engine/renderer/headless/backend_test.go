package headless

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
)

func TestFenceLatency(t *testing.T) {
	b := New(WithLatency(30 * time.Millisecond))
	pool, err := b.CreateCommandPool(0)
	require.NoError(t, err)
	buffers, err := pool.Allocate(metadata.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	require.NoError(t, err)
	primary := buffers[0]
	require.NoError(t, primary.Begin(nil))
	require.NoError(t, primary.End())

	fence := NewFence(true)
	require.NoError(t, b.WaitForFence(fence, time.Millisecond))
	require.NoError(t, b.ResetFence(fence))
	require.NoError(t, b.Submit(primary, fence))

	err = b.WaitForFence(fence, time.Millisecond)
	assert.ErrorIs(t, err, core.ErrFenceTimeout)
	assert.Equal(t, 1, b.Timeouts())

	require.NoError(t, b.WaitForFence(fence, time.Second))
	assert.True(t, fence.Signaled())
}

func TestUnsubmittedFenceTimesOut(t *testing.T) {
	b := New()
	err := b.WaitForFence(NewFence(false), time.Millisecond)
	assert.ErrorIs(t, err, core.ErrFenceTimeout)

	err = b.WaitForFence("not a fence", time.Millisecond)
	require.Error(t, err)
	assert.False(t, errors.Is(err, core.ErrFenceTimeout))
}

func TestSubmitSnapshotsSecondaries(t *testing.T) {
	b := New()
	pool, err := b.CreateCommandPool(0)
	require.NoError(t, err)

	primaries, err := pool.Allocate(metadata.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	require.NoError(t, err)
	secondaries, err := pool.Allocate(metadata.COMMAND_BUFFER_LEVEL_SECONDARY, 2)
	require.NoError(t, err)

	assert.Error(t, secondaries[0].Begin(nil))
	for i, s := range secondaries {
		require.NoError(t, s.Begin(&metadata.Inheritance{}))
		s.DrawIndexed(uint32(i + 1))
		require.NoError(t, s.End())
	}

	primary := primaries[0]
	assert.Error(t, b.Submit(primary, NewFence(true)))

	require.NoError(t, primary.Begin(nil))
	primary.BeginRenderPass(&metadata.RenderPassBegin{Contents: metadata.SUBPASS_CONTENTS_SECONDARY_COMMAND_BUFFERS})
	primary.ExecuteCommands(secondaries)
	primary.EndRenderPass()
	require.NoError(t, primary.End())
	require.NoError(t, b.Submit(primary, NewFence(true)))

	s := b.LastSubmission()
	require.NotNil(t, s)
	require.Len(t, s.Secondaries, 2)
	assert.Equal(t, uint32(1), s.Secondaries[0][0].Count)
	assert.Equal(t, uint32(2), s.Secondaries[1][0].Count)
	assert.Equal(t, 2, s.Draws())
	assert.Equal(t, []Op{OpBeginRenderPass, OpExecuteCommands, OpEndRenderPass},
		[]Op{s.Primary[0].Op, s.Primary[1].Op, s.Primary[2].Op})

	// re-recording does not change what was submitted
	require.NoError(t, secondaries[0].Begin(&metadata.Inheritance{}))
	require.NoError(t, secondaries[0].End())
	assert.Equal(t, 2, b.LastSubmission().Draws())
}

func TestPoolLifecycle(t *testing.T) {
	b := New()
	b.FailPoolCreation(1, errors.New("out of device memory"))

	p, err := b.CreateCommandPool(0)
	require.NoError(t, err)
	_, err = b.CreateCommandPool(0)
	require.Error(t, err)

	pool := b.Pool(0)
	require.NotNil(t, pool)
	_, err = p.Allocate(metadata.COMMAND_BUFFER_LEVEL_SECONDARY, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, pool.Live())

	pool.FailAllocations(errors.New("out of host memory"))
	_, err = p.Allocate(metadata.COMMAND_BUFFER_LEVEL_SECONDARY, 1)
	require.Error(t, err)

	require.NoError(t, p.Reset())
	assert.Equal(t, 0, pool.Live())
	assert.Equal(t, 1, pool.Resets())
	assert.Equal(t, 1, pool.Allocations())

	p.Destroy()
	p.Destroy()
	assert.True(t, pool.Destroyed())
	assert.Equal(t, 1, b.PoolsDestroyed())
	assert.Error(t, p.Reset())
}

func TestBeginWhileRecording(t *testing.T) {
	b := New()
	pool, err := b.CreateCommandPool(0)
	require.NoError(t, err)
	buffers, err := pool.Allocate(metadata.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	require.NoError(t, err)

	require.NoError(t, buffers[0].Begin(nil))
	assert.Error(t, buffers[0].Begin(nil))
	require.NoError(t, buffers[0].End())
	require.NoError(t, buffers[0].Begin(nil))
}

func TestHistoryBound(t *testing.T) {
	b := New(WithHistory(2))
	pool, err := b.CreateCommandPool(0)
	require.NoError(t, err)
	buffers, err := pool.Allocate(metadata.COMMAND_BUFFER_LEVEL_PRIMARY, 1)
	require.NoError(t, err)

	fence := NewFence(true)
	for i := 0; i < 5; i++ {
		require.NoError(t, buffers[0].Begin(nil))
		require.NoError(t, buffers[0].End())
		require.NoError(t, b.Submit(buffers[0], fence))
	}
	assert.Equal(t, 5, b.Submitted())
	assert.Len(t, b.Submissions(), 2)
}
