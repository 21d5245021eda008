package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCycleTransitions(t *testing.T) {
	assert.True(t, CanTransitionCycle(CycleStatusRunning, CycleStatusReview))
	assert.True(t, CanTransitionCycle(CycleStatusReview, CycleStatusMerged))
	assert.True(t, CanTransitionCycle(CycleStatusReview, CycleStatusArchived))
	assert.True(t, CanTransitionCycle(CycleStatusRunning, CycleStatusFailed))

	for _, final := range []string{CycleStatusMerged, CycleStatusArchived} {
		for _, next := range []string{CycleStatusPending, CycleStatusRunning, CycleStatusReview, CycleStatusMerged, CycleStatusFailed, CycleStatusArchived} {
			assert.False(t, CanTransitionCycle(final, next), "%s -> %s", final, next)
		}
	}
	assert.False(t, CanTransitionCycle(CycleStatusFailed, CycleStatusReview))
}

func TestTerminalTasks(t *testing.T) {
	assert.True(t, IsTerminalTask(TaskStatusDone))
	assert.True(t, IsTerminalTask(TaskStatusFailed))
	assert.False(t, IsTerminalTask(TaskStatusRunning))
}
