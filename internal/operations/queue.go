// file: internal/operations/queue.go
// version: 2.1.0
// guid: 7d6e5f4a-3c2b-1a09-8f7e-6d5c4b3a2190

package operations

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"github.com/DS09AT/Shelvance-sub001/internal/database"
	"github.com/DS09AT/Shelvance-sub001/internal/metrics"
)

// Priority levels for operations
const (
	PriorityLow    = 0
	PriorityNormal = 1
	PriorityHigh   = 2
)

// DefaultWorkers is used when the queue is created with no worker count.
const DefaultWorkers = 2

// ErrOperationNotFound is returned for ids that are not queued or running.
var ErrOperationNotFound = errors.New("operation not found")

// OperationFunc represents an operation that can be executed. ctx is
// canceled when the operation is canceled or the queue shuts down.
type OperationFunc func(ctx context.Context, progress ProgressReporter) error

// ProgressReporter allows operations to report their progress
type ProgressReporter interface {
	UpdateProgress(current, total int, message string) error
	IsCanceled() bool
}

// Store is the operation persistence the queue needs.
//
//go:generate mockery --name=Store --with-expecter --output=mocks --outpkg=mocks --filename=mock_store.go
type Store interface {
	CreateOperation(id, opType string, target *string) (*database.Operation, error)
	GetOperationByID(id string) (*database.Operation, error)
	GetRecentOperations(limit int) ([]database.Operation, error)
	UpdateOperationStatus(id, status string, progress, total int, message string) error
	UpdateOperationError(id, errorMessage string) error
}

// QueuedOperation represents an operation in the queue
type QueuedOperation struct {
	ID       string
	Type     string
	Priority int
	Func     OperationFunc
	Context  context.Context
	Cancel   context.CancelFunc
}

// OperationQueue runs operations on a fixed pool of workers. Each operation
// gets its own context so canceling one aborts only its provider calls.
type OperationQueue struct {
	mu         sync.RWMutex
	operations map[string]*QueuedOperation
	pending    chan *QueuedOperation
	workers    int
	store      Store
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	listeners  map[string][]ProgressListener
	observer   Observer
}

// ProgressListener receives progress updates
type ProgressListener func(operationID string, progress OperationProgress)

// Observer sees every operation's progress and status changes. The
// realtime event hub implements it.
type Observer interface {
	OperationProgress(operationID string, current, total int, message string)
	OperationStatus(operationID, status, message string)
}

// OperationProgress represents the current state of an operation
type OperationProgress struct {
	Current int
	Total   int
	Message string
}

// NewOperationQueue creates a new operation queue
func NewOperationQueue(store Store, workers int) *OperationQueue {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &OperationQueue{
		operations: make(map[string]*QueuedOperation),
		pending:    make(chan *QueuedOperation, 100),
		workers:    workers,
		store:      store,
		ctx:        ctx,
		cancel:     cancel,
		listeners:  make(map[string][]ProgressListener),
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	log.Printf("[INFO] operations: queue started with %d workers", workers)
	return q
}

// Submit records a new operation in the store and enqueues it. It returns
// the generated operation id.
func (q *OperationQueue) Submit(opType string, target *string, priority int, fn OperationFunc) (string, error) {
	id := ulid.Make().String()
	if q.store != nil {
		if _, err := q.store.CreateOperation(id, opType, target); err != nil {
			return "", fmt.Errorf("failed to create operation: %w", err)
		}
	}
	if err := q.Enqueue(id, opType, priority, fn); err != nil {
		return "", err
	}
	return id, nil
}

// Enqueue adds a new operation to the queue
func (q *OperationQueue) Enqueue(id, opType string, priority int, fn OperationFunc) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ctx.Err() != nil {
		return fmt.Errorf("operation queue is shut down")
	}
	if _, exists := q.operations[id]; exists {
		return fmt.Errorf("operation %s already exists", id)
	}

	ctx, cancel := context.WithCancel(q.ctx)
	op := &QueuedOperation{
		ID:       id,
		Type:     opType,
		Priority: priority,
		Func:     fn,
		Context:  ctx,
		Cancel:   cancel,
	}

	if q.store != nil {
		_ = q.store.UpdateOperationStatus(id, database.OperationQueued, 0, 0, "operation queued")
	}
	select {
	case q.pending <- op:
	default:
		cancel()
		if q.store != nil {
			_ = q.store.UpdateOperationError(id, "operation queue is full")
		}
		return fmt.Errorf("operation queue is full")
	}
	q.operations[id] = op
	log.Printf("[INFO] operations: %s %s enqueued with priority %d", opType, id, priority)
	return nil
}

// Cancel cancels a queued or running operation.
func (q *OperationQueue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, exists := q.operations[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrOperationNotFound, id)
	}
	op.Cancel()

	if q.store != nil {
		_ = q.store.UpdateOperationStatus(id, database.OperationCanceled, 0, 0, "operation canceled by user")
	}
	log.Printf("[INFO] operations: %s canceled", id)
	return nil
}

// GetStatus returns the persisted status of an operation.
func (q *OperationQueue) GetStatus(id string) (*database.Operation, error) {
	if q.store == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	op, err := q.store.GetOperationByID(id)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
	}
	return op, nil
}

// Recent returns the most recent operations, newest first.
func (q *OperationQueue) Recent(limit int) ([]database.Operation, error) {
	if q.store == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	return q.store.GetRecentOperations(limit)
}

// SetObserver installs o; call it before submitting operations.
func (q *OperationQueue) SetObserver(o Observer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.observer = o
}

func (q *OperationQueue) publishStatus(operationID, status, message string) {
	q.mu.RLock()
	o := q.observer
	q.mu.RUnlock()
	if o != nil {
		o.OperationStatus(operationID, status, message)
	}
}

// AddListener adds a progress listener for an operation
func (q *OperationQueue) AddListener(operationID string, listener ProgressListener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners[operationID] = append(q.listeners[operationID], listener)
}

// RemoveListeners removes all listeners for an operation
func (q *OperationQueue) RemoveListeners(operationID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.listeners, operationID)
}

func (q *OperationQueue) notifyListeners(operationID string, progress OperationProgress) {
	q.mu.RLock()
	listeners := q.listeners[operationID]
	o := q.observer
	q.mu.RUnlock()

	for _, listener := range listeners {
		go listener(operationID, progress)
	}
	if o != nil {
		o.OperationProgress(operationID, progress.Current, progress.Total, progress.Message)
	}
}

func (q *OperationQueue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			log.Printf("[DEBUG] operations: worker %d stopped", id)
			return
		case op := <-q.pending:
			if op == nil {
				continue
			}
			q.run(id, op)
		}
	}
}

func (q *OperationQueue) run(worker int, op *QueuedOperation) {
	defer func() {
		op.Cancel()
		q.mu.Lock()
		delete(q.operations, op.ID)
		q.mu.Unlock()
		q.RemoveListeners(op.ID)
	}()

	if op.Context.Err() != nil {
		metrics.IncOperationCanceled(op.Type)
		log.Printf("[INFO] operations: %s canceled before it started", op.ID)
		q.publishStatus(op.ID, database.OperationCanceled, "operation canceled")
		return
	}

	log.Printf("[INFO] operations: worker %d processing %s %s", worker, op.Type, op.ID)
	start := time.Now()
	metrics.IncOperationStarted(op.Type)
	if q.store != nil {
		_ = q.store.UpdateOperationStatus(op.ID, database.OperationRunning, 0, 0, "operation started")
	}
	q.publishStatus(op.ID, database.OperationRunning, "operation started")

	reporter := &operationProgressReporter{
		operationID: op.ID,
		ctx:         op.Context,
		store:       q.store,
		queue:       q,
	}
	err := q.call(op, reporter)
	current, total := reporter.snapshot()

	switch {
	case op.Context.Err() != nil || errors.Is(err, context.Canceled):
		if q.store != nil {
			_ = q.store.UpdateOperationStatus(op.ID, database.OperationCanceled, current, total, "operation canceled")
		}
		metrics.IncOperationCanceled(op.Type)
		log.Printf("[INFO] operations: %s was canceled", op.ID)
		q.publishStatus(op.ID, database.OperationCanceled, "operation canceled")
	case err != nil:
		if q.store != nil {
			_ = q.store.UpdateOperationError(op.ID, err.Error())
		}
		metrics.IncOperationFailed(op.Type)
		log.Printf("[ERROR] operations: %s failed: %v", op.ID, err)
		q.publishStatus(op.ID, database.OperationFailed, err.Error())
	default:
		message := reporter.lastMessage()
		if message == "" {
			message = "operation completed"
		}
		if q.store != nil {
			_ = q.store.UpdateOperationStatus(op.ID, database.OperationCompleted, current, total, message)
		}
		metrics.IncOperationCompleted(op.Type)
		log.Printf("[INFO] operations: %s completed: %s", op.ID, message)
		q.publishStatus(op.ID, database.OperationCompleted, message)
	}
	metrics.ObserveOperationDuration(op.Type, time.Since(start))
}

// call runs the operation, turning a panic into an error so one bad job
// cannot take down its worker.
func (q *OperationQueue) call(op *QueuedOperation, reporter ProgressReporter) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("operation panic: %v", p)
		}
	}()
	return op.Func(op.Context, reporter)
}

// Shutdown cancels every operation and waits for the workers to stop.
func (q *OperationQueue) Shutdown(timeout time.Duration) error {
	log.Println("[INFO] operations: shutting down queue")

	q.mu.Lock()
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[INFO] operations: queue shut down gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

// ActiveOperation represents lightweight info about an in-flight operation.
type ActiveOperation struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// ActiveOperations returns a snapshot of currently queued/running operations.
func (q *OperationQueue) ActiveOperations() []ActiveOperation {
	if q == nil {
		return []ActiveOperation{}
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	results := make([]ActiveOperation, 0, len(q.operations))
	for id, op := range q.operations {
		results = append(results, ActiveOperation{ID: id, Type: op.Type})
	}
	return results
}

// operationProgressReporter implements ProgressReporter
type operationProgressReporter struct {
	operationID string
	ctx         context.Context
	store       Store
	queue       *OperationQueue

	mu      sync.Mutex
	current int
	total   int
	message string
}

func (r *operationProgressReporter) UpdateProgress(current, total int, message string) error {
	r.mu.Lock()
	r.current = current
	r.total = total
	r.message = message
	r.mu.Unlock()

	if r.store != nil && !r.IsCanceled() {
		if err := r.store.UpdateOperationStatus(r.operationID, database.OperationRunning, current, total, message); err != nil {
			return err
		}
	}

	r.queue.notifyListeners(r.operationID, OperationProgress{
		Current: current,
		Total:   total,
		Message: message,
	})
	return nil
}

func (r *operationProgressReporter) IsCanceled() bool {
	return r.ctx != nil && r.ctx.Err() != nil
}

func (r *operationProgressReporter) snapshot() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.total
}

func (r *operationProgressReporter) lastMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.message
}
