// file: internal/server/lookup_handlers.go
// version: 1.0.0
// guid: 3e9a1b7c-2d4f-4e6a-8b0c-5f7d9e1a3b5c

package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DS09AT/Shelvance-sub001/internal/engine"
	"github.com/DS09AT/Shelvance-sub001/internal/models"
	"github.com/DS09AT/Shelvance-sub001/internal/operations"
)

func (s *Server) lookup(c *gin.Context) {
	var req engine.LookupRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	res, err := s.engine.Execute(c.Request.Context(), req)
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	skipped := res.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	RespondWithOK(c, LookupResponse{
		Record:   res.Record,
		Failures: failureViews(res.Failures),
		Skipped:  skipped,
	})
}

// refreshRequests expands a refresh body into one lookup per entity.
func refreshRequests(body RefreshRequest) ([]engine.LookupRequest, error) {
	reqs := body.Requests
	if len(reqs) == 0 && body.Capability != "" {
		for _, id := range body.Identifiers {
			reqs = append(reqs, engine.LookupRequest{Capability: body.Capability, Identifier: id, Mode: body.Mode})
		}
	}
	if len(reqs) == 0 {
		return nil, &models.ValidationError{Field: "requests", Reason: "at least one request or identifier is required"}
	}
	return reqs, nil
}

func (s *Server) startRefresh(c *gin.Context) {
	var body RefreshRequest
	if HandleBindError(c, c.ShouldBindJSON(&body)) {
		return
	}
	reqs, err := refreshRequests(body)
	if err != nil {
		RespondWithErr(c, err)
		return
	}

	job := operations.NewRefreshJob(reqs)
	for i, item := range job.Items() {
		req := item.Request
		if err := req.Normalize(); err != nil {
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				RespondWithValidationError(c, fmt.Sprintf("requests[%d].%s", i, verr.Field), verr.Reason)
				return
			}
			RespondWithErr(c, err)
			return
		}
	}

	id, err := s.queue.Submit(operations.OpTypeRefresh, nil, operations.PriorityNormal, job.Func(s.engine))
	if err != nil {
		RespondWithError(c, http.StatusServiceUnavailable, err.Error(), "QUEUE_UNAVAILABLE")
		return
	}
	s.rememberJob(id, job)
	RespondWithSuccess(c, http.StatusAccepted, RefreshAccepted{OperationID: id, Total: len(reqs)})
}

// rememberJob keeps the job's items queryable, dropping the oldest job once
// maxRefreshResults are held.
func (s *Server) rememberJob(id string, job *operations.RefreshJob) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	s.jobs[id] = job
	s.jobOrder = append(s.jobOrder, id)
	for len(s.jobOrder) > maxRefreshResults {
		delete(s.jobs, s.jobOrder[0])
		s.jobOrder = s.jobOrder[1:]
	}
}

func (s *Server) getRefreshResults(c *gin.Context) {
	id := c.Param("id")
	s.jobsMu.Lock()
	job, ok := s.jobs[id]
	s.jobsMu.Unlock()
	if !ok {
		RespondWithNotFound(c, "refresh results", id)
		return
	}
	RespondWithOK(c, RefreshResults{OperationID: id, Counts: job.Counts(), Items: job.Items()})
}

func (s *Server) listOperations(c *gin.Context) {
	limit := ParseQueryInt(c, "limit", 20)
	if limit < 1 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	ops, err := s.queue.Recent(limit)
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	RespondWithOK(c, ListResponse{Items: ops, Count: len(ops)})
}

func (s *Server) listActiveOperations(c *gin.Context) {
	active := s.queue.ActiveOperations()
	RespondWithOK(c, ListResponse{Items: active, Count: len(active)})
}

func (s *Server) getOperationStatus(c *gin.Context) {
	op, err := s.queue.GetStatus(c.Param("id"))
	if err != nil {
		RespondWithErr(c, err)
		return
	}
	RespondWithOK(c, op)
}

func (s *Server) cancelOperation(c *gin.Context) {
	id := c.Param("id")
	if err := s.queue.Cancel(id); err != nil {
		RespondWithErr(c, err)
		return
	}
	RespondWithOK(c, gin.H{"id": id, "canceled": true})
}
