// file: internal/operations/refresh.go
// version: 1.0.0
// guid: 25dc7091-7b2b-48ec-b48b-dc3d7a536fb7

package operations

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/DS09AT/Shelvance-sub001/internal/engine"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
	"github.com/DS09AT/Shelvance-sub001/internal/provider"
)

// OpTypeRefresh is the operation type of batch metadata refreshes.
const OpTypeRefresh = "metadata_refresh"

// Item statuses of a refresh job.
const (
	ItemPending     = "pending"
	ItemUpdated     = "updated"
	ItemNotFound    = "not_found"
	ItemUnavailable = "unavailable"
	ItemInvalid     = "invalid"
	ItemFailed      = "failed"
)

// Executor runs one federated lookup. *engine.Engine implements it.
type Executor interface {
	Execute(ctx context.Context, req engine.LookupRequest) (*engine.Result, error)
}

// RefreshItem is the outcome of one lookup in a refresh job.
type RefreshItem struct {
	Request engine.LookupRequest `json:"request"`
	Status  string               `json:"status"`
	Record  *engine.MergedRecord `json:"record,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// RefreshJob re-queries providers for a batch of entities using the
// refresh purpose, so only providers with automatic refresh enabled are
// asked.
type RefreshJob struct {
	mu    sync.Mutex
	items []RefreshItem
}

// NewRefreshJob prepares a job over reqs. Requests without a purpose are
// sent as refreshes; requests without a mode are merged.
func NewRefreshJob(reqs []engine.LookupRequest) *RefreshJob {
	items := make([]RefreshItem, len(reqs))
	for i, req := range reqs {
		if req.Purpose == "" {
			req.Purpose = provider.PurposeRefresh
		}
		if req.Mode == "" {
			req.Mode = engine.ModeMerge
		}
		items[i] = RefreshItem{Request: req, Status: ItemPending}
	}
	return &RefreshJob{items: items}
}

// Items returns a snapshot of the job's items.
func (j *RefreshJob) Items() []RefreshItem {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]RefreshItem, len(j.items))
	copy(out, j.items)
	return out
}

// Counts tallies items by status.
func (j *RefreshJob) Counts() map[string]int {
	j.mu.Lock()
	defer j.mu.Unlock()
	counts := make(map[string]int)
	for _, it := range j.items {
		counts[it.Status]++
	}
	return counts
}

// Func returns the queue function running the job against exec. Items run
// one after another; a canceled context stops the job between items and
// aborts the lookup in flight.
func (j *RefreshJob) Func(exec Executor) OperationFunc {
	return func(ctx context.Context, progress ProgressReporter) error {
		total := len(j.items)
		_ = progress.UpdateProgress(0, total, fmt.Sprintf("refreshing %d items", total))

		for i := 0; i < total; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			j.mu.Lock()
			req := j.items[i].Request
			j.mu.Unlock()

			res, err := exec.Execute(ctx, req)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			j.record(i, res, err)
			_ = progress.UpdateProgress(i+1, total, j.summary())
		}
		return nil
	}
}

func (j *RefreshJob) record(i int, res *engine.Result, err error) {
	item := RefreshItem{Request: j.items[i].Request}
	var verr *models.ValidationError
	switch {
	case err == nil:
		item.Status = ItemUpdated
		item.Record = res.Record
	case errors.Is(err, engine.ErrNotFound):
		item.Status = ItemNotFound
	case errors.Is(err, engine.ErrAllProvidersUnavailable):
		item.Status = ItemUnavailable
		item.Error = err.Error()
	case errors.As(err, &verr):
		item.Status = ItemInvalid
		item.Error = err.Error()
	default:
		item.Status = ItemFailed
		item.Error = err.Error()
		log.Printf("[WARN] operations: refresh of %s %q failed: %v",
			item.Request.Capability, item.Request.Query+item.Request.Identifier, err)
	}

	j.mu.Lock()
	j.items[i] = item
	j.mu.Unlock()
}

func (j *RefreshJob) summary() string {
	c := j.Counts()
	return fmt.Sprintf("%d updated, %d not found, %d unavailable, %d failed",
		c[ItemUpdated], c[ItemNotFound], c[ItemUnavailable], c[ItemFailed]+c[ItemInvalid])
}
