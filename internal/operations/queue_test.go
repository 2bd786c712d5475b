// file: internal/operations/queue_test.go
// version: 2.1.0
// guid: 4d5e6f7a-8b9c-0d1e-2f3a-4b5c6d7e8f9a

package operations

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testifyMock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DS09AT/Shelvance-sub001/internal/database"
	"github.com/DS09AT/Shelvance-sub001/internal/operations/mocks"
)

func newMockStore(t *testing.T) *mocks.MockStore {
	t.Helper()
	return mocks.NewMockStore(t)
}

func waitForStatus(t *testing.T, store *database.MockStore, id, status string) *database.Operation {
	t.Helper()
	var op *database.Operation
	require.Eventually(t, func() bool {
		var err error
		op, err = store.GetOperationByID(id)
		return err == nil && op != nil && op.Status == status
	}, 2*time.Second, 5*time.Millisecond, "operation %s never reached %s", id, status)
	return op
}

func TestNewOperationQueue(t *testing.T) {
	store := database.NewMockStore()

	t.Run("creates queue with specified workers", func(t *testing.T) {
		q := NewOperationQueue(store, 4)
		defer q.Shutdown(time.Second)
		assert.Equal(t, 4, q.workers)
	})

	t.Run("defaults when zero or negative", func(t *testing.T) {
		for _, n := range []int{0, -1} {
			q := NewOperationQueue(store, n)
			assert.Equal(t, DefaultWorkers, q.workers)
			require.NoError(t, q.Shutdown(time.Second))
		}
	})
}

func TestOperationQueue_SubmitCompletes(t *testing.T) {
	store := database.NewMockStore()
	q := NewOperationQueue(store, 1)
	defer q.Shutdown(time.Second)

	id, err := q.Submit("test", nil, PriorityNormal, func(ctx context.Context, progress ProgressReporter) error {
		return progress.UpdateProgress(3, 3, "3 done")
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	op := waitForStatus(t, store, id, database.OperationCompleted)
	assert.Equal(t, 3, op.Progress)
	assert.Equal(t, 3, op.Total)
	assert.Equal(t, "3 done", op.Message)
	assert.NotNil(t, op.CompletedAt)

	require.Eventually(t, func() bool { return len(q.ActiveOperations()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestOperationQueue_Failure(t *testing.T) {
	store := database.NewMockStore()
	q := NewOperationQueue(store, 1)
	defer q.Shutdown(time.Second)

	id, err := q.Submit("test", nil, PriorityNormal, func(context.Context, ProgressReporter) error {
		return errors.New("store unavailable")
	})
	require.NoError(t, err)

	op := waitForStatus(t, store, id, database.OperationFailed)
	require.NotNil(t, op.ErrorMessage)
	assert.Equal(t, "store unavailable", *op.ErrorMessage)
}

func TestOperationQueue_PanicBecomesFailure(t *testing.T) {
	store := database.NewMockStore()
	q := NewOperationQueue(store, 1)
	defer q.Shutdown(time.Second)

	id, err := q.Submit("test", nil, PriorityNormal, func(context.Context, ProgressReporter) error {
		panic("boom")
	})
	require.NoError(t, err)
	op := waitForStatus(t, store, id, database.OperationFailed)
	assert.Contains(t, *op.ErrorMessage, "operation panic")

	// The worker survives.
	id, err = q.Submit("test", nil, PriorityNormal, func(context.Context, ProgressReporter) error { return nil })
	require.NoError(t, err)
	waitForStatus(t, store, id, database.OperationCompleted)
}

func TestOperationQueue_RejectsDuplicateID(t *testing.T) {
	q := NewOperationQueue(database.NewMockStore(), 1)
	defer q.Shutdown(time.Second)

	blocker := make(chan struct{})
	fn := func(ctx context.Context, progress ProgressReporter) error {
		<-blocker
		return nil
	}
	require.NoError(t, q.Enqueue("dup-op", "test", PriorityNormal, fn))
	assert.Error(t, q.Enqueue("dup-op", "test", PriorityNormal, fn))
	close(blocker)
}

func TestOperationQueue_CancelRunning(t *testing.T) {
	store := database.NewMockStore()
	q := NewOperationQueue(store, 1)
	defer q.Shutdown(time.Second)

	started := make(chan struct{})
	id, err := q.Submit("test", nil, PriorityNormal, func(ctx context.Context, progress ProgressReporter) error {
		close(started)
		<-ctx.Done()
		assert.True(t, progress.IsCanceled())
		return ctx.Err()
	})
	require.NoError(t, err)
	<-started

	require.NoError(t, q.Cancel(id))
	waitForStatus(t, store, id, database.OperationCanceled)
	require.Eventually(t, func() bool { return len(q.ActiveOperations()) == 0 }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, q.Cancel(id), ErrOperationNotFound)
}

func TestOperationQueue_CancelOnlyAffectsOneOperation(t *testing.T) {
	store := database.NewMockStore()
	q := NewOperationQueue(store, 2)
	defer q.Shutdown(time.Second)

	release := make(chan struct{})
	startedA := make(chan struct{})
	startedB := make(chan struct{})
	idA, err := q.Submit("test", nil, PriorityNormal, func(ctx context.Context, _ ProgressReporter) error {
		close(startedA)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	idB, err := q.Submit("test", nil, PriorityNormal, func(ctx context.Context, _ ProgressReporter) error {
		close(startedB)
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	require.NoError(t, err)
	<-startedA
	<-startedB

	require.NoError(t, q.Cancel(idA))
	waitForStatus(t, store, idA, database.OperationCanceled)

	close(release)
	waitForStatus(t, store, idB, database.OperationCompleted)
}

func TestOperationQueue_CanceledBeforeStart(t *testing.T) {
	store := database.NewMockStore()
	q := NewOperationQueue(store, 1)
	defer q.Shutdown(time.Second)

	blocker := make(chan struct{})
	_, err := q.Submit("test", nil, PriorityNormal, func(context.Context, ProgressReporter) error {
		<-blocker
		return nil
	})
	require.NoError(t, err)

	var ran atomic.Bool
	id, err := q.Submit("test", nil, PriorityNormal, func(context.Context, ProgressReporter) error {
		ran.Store(true)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, q.Cancel(id))
	close(blocker)

	require.Eventually(t, func() bool { return len(q.ActiveOperations()) == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, ran.Load())
	op, err := q.GetStatus(id)
	require.NoError(t, err)
	assert.Equal(t, database.OperationCanceled, op.Status)
}

func TestOperationQueue_Listeners(t *testing.T) {
	q := &OperationQueue{listeners: make(map[string][]ProgressListener)}

	progressCh := make(chan OperationProgress, 1)
	q.AddListener("op-1", func(operationID string, progress OperationProgress) {
		assert.Equal(t, "op-1", operationID)
		progressCh <- progress
	})

	reporter := &operationProgressReporter{operationID: "op-1", queue: q}
	require.NoError(t, reporter.UpdateProgress(2, 5, "processing"))

	select {
	case got := <-progressCh:
		assert.Equal(t, OperationProgress{Current: 2, Total: 5, Message: "processing"}, got)
	case <-time.After(time.Second):
		t.Fatal("did not receive progress notification")
	}
	current, total := reporter.snapshot()
	assert.Equal(t, 2, current)
	assert.Equal(t, 5, total)
}

func TestOperationQueue_GetStatusUnknown(t *testing.T) {
	q := NewOperationQueue(database.NewMockStore(), 1)
	defer q.Shutdown(time.Second)

	_, err := q.GetStatus("missing")
	assert.ErrorIs(t, err, ErrOperationNotFound)
}

func TestOperationQueue_ShutdownRejectsNewWork(t *testing.T) {
	q := NewOperationQueue(database.NewMockStore(), 1)
	require.NoError(t, q.Shutdown(time.Second))

	err := q.Enqueue("late", "test", PriorityNormal, func(context.Context, ProgressReporter) error { return nil })
	assert.Error(t, err)
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []string
	progress []OperationProgress
}

func (o *recordingObserver) OperationProgress(id string, current, total int, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, OperationProgress{Current: current, Total: total, Message: message})
}

func (o *recordingObserver) OperationStatus(id, status, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func (o *recordingObserver) snapshot() ([]string, []OperationProgress) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.statuses...), append([]OperationProgress(nil), o.progress...)
}

func TestOperationQueue_ObserverSeesLifecycle(t *testing.T) {
	store := database.NewMockStore()
	q := NewOperationQueue(store, 1)
	defer q.Shutdown(time.Second)
	obs := &recordingObserver{}
	q.SetObserver(obs)

	_, err := q.Submit("test", nil, PriorityNormal, func(ctx context.Context, progress ProgressReporter) error {
		return progress.UpdateProgress(1, 2, "half")
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		statuses, _ := obs.snapshot()
		return len(statuses) == 2
	}, 2*time.Second, 5*time.Millisecond)

	statuses, progress := obs.snapshot()
	assert.Equal(t, []string{database.OperationRunning, database.OperationCompleted}, statuses)
	assert.Equal(t, []OperationProgress{{Current: 1, Total: 2, Message: "half"}}, progress)
}

func TestOperationQueue_SubmitStoreFailure(t *testing.T) {
	store := newMockStore(t)
	store.EXPECT().CreateOperation(testifyMock.Anything, "refresh", (*string)(nil)).
		Return(nil, errors.New("disk full")).Once()

	q := NewOperationQueue(store, 1)
	defer q.Shutdown(time.Second)

	var ran atomic.Bool
	id, err := q.Submit("refresh", nil, PriorityNormal, func(context.Context, ProgressReporter) error {
		ran.Store(true)
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create operation")
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, id)
	assert.Empty(t, q.ActiveOperations())
	assert.False(t, ran.Load())
}

func TestOperationQueue_PersistsLifecycle(t *testing.T) {
	store := newMockStore(t)
	target := "provider-1"
	var created string
	store.EXPECT().CreateOperation(testifyMock.Anything, "refresh", &target).
		Run(func(id, _ string, _ *string) { created = id }).
		Return(&database.Operation{}, nil).Once()
	store.EXPECT().UpdateOperationStatus(testifyMock.Anything, database.OperationQueued, 0, 0, "operation queued").
		Return(nil).Once()
	store.EXPECT().UpdateOperationStatus(testifyMock.Anything, database.OperationRunning, 0, 0, "operation started").
		Return(nil).Once()
	store.EXPECT().UpdateOperationStatus(testifyMock.Anything, database.OperationRunning, 2, 4, "halfway").
		Return(nil).Once()

	done := make(chan string, 1)
	store.EXPECT().UpdateOperationStatus(testifyMock.Anything, database.OperationCompleted, 2, 4, "halfway").
		Run(func(id, _ string, _, _ int, _ string) { done <- id }).
		Return(nil).Once()

	q := NewOperationQueue(store, 1)
	defer q.Shutdown(time.Second)

	id, err := q.Submit("refresh", &target, PriorityNormal, func(ctx context.Context, progress ProgressReporter) error {
		return progress.UpdateProgress(2, 4, "halfway")
	})
	require.NoError(t, err)
	assert.Equal(t, created, id)

	select {
	case got := <-done:
		assert.Equal(t, id, got)
	case <-time.After(2 * time.Second):
		t.Fatal("operation never completed")
	}
}

func TestOperationQueue_FailurePersistsError(t *testing.T) {
	store := newMockStore(t)
	store.EXPECT().CreateOperation(testifyMock.Anything, testifyMock.Anything, testifyMock.Anything).
		Return(&database.Operation{}, nil).Once()
	store.EXPECT().UpdateOperationStatus(testifyMock.Anything, testifyMock.Anything, 0, 0, testifyMock.Anything).
		Return(nil).Maybe()

	done := make(chan struct{})
	store.EXPECT().UpdateOperationError(testifyMock.Anything, "provider exploded").
		Run(func(string, string) { close(done) }).
		Return(nil).Once()

	q := NewOperationQueue(store, 1)
	defer q.Shutdown(time.Second)

	_, err := q.Submit("refresh", nil, PriorityNormal, func(context.Context, ProgressReporter) error {
		return errors.New("provider exploded")
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("failure was never persisted")
	}
}
