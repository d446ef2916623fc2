// Package deletion implements the confirm-then-delete flow for one record.
package deletion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/metrics"
)

var (
	// ErrDeletionInProgress rejects a request for a target already being deleted.
	ErrDeletionInProgress = errors.New("deletion already in progress for record")

	// ErrAlreadyRun is returned when Run is called twice on the same flow.
	ErrAlreadyRun = errors.New("deletion flow already run")

	// ErrMissingTarget indicates an empty record id.
	ErrMissingTarget = errors.New("deletion target id is required")
)

// Status is the state of a deletion request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusExecuting Status = "executing"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusDone || s == StatusFailed
}

// Deleter is the delete side of the record repository.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// DoneHook runs after a record was deleted, typically a list re-query.
type DoneHook func(ctx context.Context, targetID string) error

// Coordinator creates flows and guarantees at most one executing deletion
// per target id.
type Coordinator struct {
	repo    Deleter
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	executing map[string]struct{}
}

// NewCoordinator wires a coordinator. m may be nil.
func NewCoordinator(repo Deleter, m *metrics.Metrics, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		repo:      repo,
		logger:    logger,
		metrics:   m,
		executing: make(map[string]struct{}),
	}
}

// Begin creates a pending flow for targetID. A target already executing is
// rejected, not queued.
func (c *Coordinator) Begin(targetID string, hooks ...DoneHook) (*Flow, error) {
	if targetID == "" {
		return nil, ErrMissingTarget
	}
	if c.Executing(targetID) {
		return nil, fmt.Errorf("%w: %s", ErrDeletionInProgress, targetID)
	}
	return &Flow{
		coordinator: c,
		targetID:    targetID,
		status:      StatusPending,
		hooks:       hooks,
	}, nil
}

// Executing reports whether a delete for targetID is in flight.
func (c *Coordinator) Executing(targetID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.executing[targetID]
	return ok
}

func (c *Coordinator) claim(targetID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.executing[targetID]; ok {
		return false
	}
	c.executing[targetID] = struct{}{}
	return true
}

func (c *Coordinator) release(targetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.executing, targetID)
}

// Flow is one deletion request.
type Flow struct {
	coordinator *Coordinator
	targetID    string
	hooks       []DoneHook

	mu     sync.Mutex
	status Status
	err    error
	ran    bool
}

// TargetID returns the record id being deleted.
func (f *Flow) TargetID() string {
	return f.targetID
}

// Status returns the current status and the failure, if any.
func (f *Flow) Status() (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.err
}

func (f *Flow) set(status Status, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
	f.err = err
}

// Run asks confirmer, then deletes the target with exactly one store call.
// A cancelled confirmation ends in StatusCancelled with a nil error. Done
// hooks run after a successful delete; their failures are logged only.
func (f *Flow) Run(ctx context.Context, confirmer Confirmer) (Status, error) {
	f.mu.Lock()
	if f.ran {
		f.mu.Unlock()
		return "", ErrAlreadyRun
	}
	f.ran = true
	f.mu.Unlock()

	c := f.coordinator
	logger := c.logger.With(zap.String("record_id", f.targetID))

	ok, err := confirmer.Confirm(ctx, Prompt)
	if err != nil {
		logger.Debug("confirmation aborted", zap.Error(err))
		return f.finish(StatusCancelled, nil)
	}
	if !ok {
		logger.Debug("deletion cancelled")
		return f.finish(StatusCancelled, nil)
	}
	f.set(StatusConfirmed, nil)

	if !c.claim(f.targetID) {
		logger.Warn("deletion rejected, another deletion is executing")
		return f.finish(StatusFailed, fmt.Errorf("%w: %s", ErrDeletionInProgress, f.targetID))
	}
	f.set(StatusExecuting, nil)

	err = c.repo.Delete(ctx, f.targetID)
	c.release(f.targetID)

	if err != nil {
		err = models.NewStoreError("delete", err)
		logger.Error("failed to delete record", zap.Error(err))
		return f.finish(StatusFailed, err)
	}

	logger.Info("record deleted")
	for _, hook := range f.hooks {
		if hookErr := hook(ctx, f.targetID); hookErr != nil {
			logger.Warn("post-delete refresh failed", zap.Error(hookErr))
		}
	}

	return f.finish(StatusDone, nil)
}

func (f *Flow) finish(status Status, err error) (Status, error) {
	f.set(status, err)
	if f.coordinator.metrics != nil {
		f.coordinator.metrics.Deletions.WithLabelValues(string(status)).Inc()
	}
	return status, err
}
