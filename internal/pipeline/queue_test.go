package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/ferag-backend/internal/platform/logger"
)

type recordingRunner struct {
	mu      sync.Mutex
	ran     []uint
	release chan struct{}
	panicOn uint
}

func (r *recordingRunner) RunChain(ctx context.Context, ref CycleRef) error {
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if ref.TaskID == r.panicOn {
		panic("boom")
	}
	r.mu.Lock()
	r.ran = append(r.ran, ref.TaskID)
	r.mu.Unlock()
	return nil
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ran)
}

func TestLocalQueueRunsSubmittedChains(t *testing.T) {
	runner := &recordingRunner{panicOn: 2}
	q := NewLocalQueue(runner, 2, 8, logger.Nop())

	_, err := q.Submit(context.Background(), CycleRef{TaskID: 1})
	assert.ErrorIs(t, err, ErrQueueStopped)

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	for id := uint(1); id <= 4; id++ {
		wf, err := q.Submit(ctx, CycleRef{CycleID: id, TaskID: id})
		require.NoError(t, err)
		assert.Equal(t, LocalWorkflowID(CycleRef{CycleID: id, TaskID: id}), wf)
	}
	require.Eventually(t, func() bool { return runner.count() == 3 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	q.Wait()
}

func TestLocalQueueRejectsWhenFull(t *testing.T) {
	runner := &recordingRunner{release: make(chan struct{})}
	q := NewLocalQueue(runner, 1, 1, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		q.Wait()
	}()
	q.Start(ctx)

	_, err := q.Submit(ctx, CycleRef{TaskID: 1})
	require.NoError(t, err)
	// Wait for the worker to pick it up and block.
	require.Eventually(t, func() bool { return len(q.jobs) == 0 }, time.Second, 5*time.Millisecond)
	_, err = q.Submit(ctx, CycleRef{TaskID: 2})
	require.NoError(t, err)
	_, err = q.Submit(ctx, CycleRef{TaskID: 3})
	assert.ErrorIs(t, err, ErrQueueFull)
	close(runner.release)
}

func TestStageErrorUnwraps(t *testing.T) {
	err := error(&StageError{Step: StageMerge, Err: ErrMergeInputMissing})
	assert.ErrorIs(t, err, ErrMergeInputMissing)
	assert.Equal(t, "merge: merge input missing", err.Error())
	assert.Equal(t, "", FailedStep(ErrMergeInputMissing))
}
