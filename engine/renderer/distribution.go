package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/phusis/engine/core"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
	"github.com/spaghettifunk/phusis/engine/systems"
)

/**
 * @brief Applies a change of delta secondary command buffers to the thread
 * slots using the given strategy. A failed call restores the previous
 * capacities and leaves KnownTarget unchanged. When a slot cannot be restored
 * either, KnownTarget is set to what the slots really hold and the error
 * wraps core.ErrIncompleteRollback.
 */
func (m *FrameStateMachine) DistributeBuffers(delta int, strategy metadata.DistributionStrategy) error {
	if m.state == StateIdle {
		return core.ErrNotStarted
	}

	var targets []int
	var err error
	switch strategy {
	case metadata.DistributionOptimal:
		targets, err = m.optimalTargets(delta)
	case metadata.DistributionUniform:
		targets, err = m.uniformTargets(delta)
	default:
		return fmt.Errorf("%w: %d", core.ErrUnknownStrategy, int(strategy))
	}
	if err != nil {
		return err
	}
	if delta == 0 && strategy == metadata.DistributionOptimal {
		return nil
	}

	// buffers of the last submission must not be released under it
	if err := m.awaitInFlight(); err != nil {
		return err
	}
	if err := m.apply(targets); err != nil {
		return err
	}

	core.LogDebug("distributed %+d command buffers (%s): %v", delta, strategy, m.Capacities())
	return nil
}

// optimalTargets puts the whole delta on the smallest slot when growing and
// takes it from the largest when shrinking. Ties go to the lowest index.
func (m *FrameStateMachine) optimalTargets(delta int) ([]int, error) {
	targets := m.Capacities()
	if delta == 0 {
		return targets, nil
	}

	idx := 0
	for i, c := range targets {
		if (delta > 0 && c < targets[idx]) || (delta < 0 && c > targets[idx]) {
			idx = i
		}
	}
	if targets[idx]+delta < 0 {
		return nil, fmt.Errorf("%w: cannot remove %d buffers from slot %d holding %d", core.ErrInvalidDelta, -delta, idx, targets[idx])
	}
	targets[idx] += delta
	return targets, nil
}

// uniformTargets spreads knownTarget+delta evenly, larger slots first.
func (m *FrameStateMachine) uniformTargets(delta int) ([]int, error) {
	total := m.knownTarget + delta
	if total < 0 {
		return nil, fmt.Errorf("%w: %d buffers held, delta %d", core.ErrInvalidDelta, m.knownTarget, delta)
	}
	targets := make([]int, len(m.slots))
	for i := range targets {
		_, targets[i] = systems.Partition(total, len(targets), i)
	}
	return targets, nil
}

// ResizeSlots gives slot i exactly capacities[i] buffers. Every slot is
// resized at most once, with the rollback of DistributeBuffers.
func (m *FrameStateMachine) ResizeSlots(capacities []int) error {
	if m.state == StateIdle {
		return core.ErrNotStarted
	}
	if len(capacities) != len(m.slots) {
		return fmt.Errorf("%w: %d capacities for %d slots", core.ErrSlotOutOfRange, len(capacities), len(m.slots))
	}
	for i, n := range capacities {
		if n < 0 {
			return fmt.Errorf("%w: %d buffers for slot %d", core.ErrInvalidDelta, n, i)
		}
	}
	if err := m.awaitInFlight(); err != nil {
		return err
	}
	if err := m.apply(capacities); err != nil {
		return err
	}
	core.LogDebug("resized command buffers: %v", m.Capacities())
	return nil
}

// apply resizes every slot whose capacity differs from its target. If any
// resize fails the slots already touched are resized back.
func (m *FrameStateMachine) apply(targets []int) error {
	previous := m.Capacities()
	for i, n := range targets {
		err := m.prepare(i, n)
		if err == nil {
			continue
		}
		core.LogError("failed to distribute command buffers to thread slot %d: %s", i, err)
		err = fmt.Errorf("distribute command buffers to thread slot %d: %w", i, err)

		var lost []error
		for j := 0; j <= i; j++ {
			if rerr := m.restore(j, previous[j]); rerr != nil {
				lost = append(lost, rerr)
			}
		}
		return m.rollbackError(err, lost)
	}

	for i := range targets {
		m.knownTarget += targets[i] - previous[i]
	}
	return nil
}

func (m *FrameStateMachine) restore(idx, n int) error {
	if err := m.prepare(idx, n); err != nil {
		core.LogError("failed to restore thread slot %d to %d buffers: %s", idx, n, err)
		return fmt.Errorf("restore thread slot %d to %d buffers: %w", idx, n, err)
	}
	return nil
}

// rollbackError resyncs KnownTarget with the slots when some of them could
// not be restored, so the next distribution sees the buffers that are missing.
func (m *FrameStateMachine) rollbackError(err error, lost []error) error {
	if len(lost) == 0 {
		return err
	}
	m.knownTarget = 0
	for _, c := range m.Capacities() {
		m.knownTarget += c
	}
	core.LogWarn("command buffer rollback incomplete, %d buffers held: %v", m.knownTarget, m.Capacities())
	return fmt.Errorf("%w: %w", core.ErrIncompleteRollback, errors.Join(append([]error{err}, lost...)...))
}

/**
 * @brief Resizes thread slot idx to hold exactly n secondary command buffers.
 * A slot that already holds n buffers is left alone. KnownTarget follows the
 * change, and a failure is rolled back the way DistributeBuffers does it.
 */
func (m *FrameStateMachine) PrepareCommandBuffers(idx, n int) error {
	if m.state == StateIdle {
		return core.ErrNotStarted
	}
	if idx < 0 || idx >= len(m.slots) {
		return fmt.Errorf("%w: %d of %d", core.ErrSlotOutOfRange, idx, len(m.slots))
	}
	if n < 0 {
		return fmt.Errorf("%w: %d buffers", core.ErrInvalidDelta, n)
	}
	old := len(m.slots[idx].buffers)
	if old == n {
		return nil
	}
	if err := m.awaitInFlight(); err != nil {
		return err
	}
	if err := m.prepare(idx, n); err != nil {
		// the slot was reset, put back what it held
		if rerr := m.restore(idx, old); rerr != nil {
			return m.rollbackError(err, []error{rerr})
		}
		return err
	}
	m.knownTarget += n - old
	return nil
}

func (m *FrameStateMachine) prepare(idx, n int) error {
	s := m.slots[idx]
	if len(s.buffers) == n {
		return nil
	}
	if err := s.pool.Reset(); err != nil {
		return fmt.Errorf("reset command pool: %w", err)
	}
	s.buffers = nil
	if n == 0 {
		return nil
	}
	buffers, err := s.pool.Allocate(metadata.COMMAND_BUFFER_LEVEL_SECONDARY, n)
	if err != nil {
		return fmt.Errorf("allocate %d secondary command buffers: %w", n, err)
	}
	s.buffers = buffers
	return nil
}
