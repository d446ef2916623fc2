package listing

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
)

// ViewStatus is the list view loading state.
type ViewStatus string

const (
	ViewIdle    ViewStatus = "idle"
	ViewLoading ViewStatus = "loading"
	ViewReady   ViewStatus = "ready"
	ViewError   ViewStatus = "error"
)

// ViewSnapshot is a consistent copy of the list view state.
type ViewSnapshot struct {
	Status  ViewStatus        `json:"status"`
	Filter  models.FilterSpec `json:"filter"`
	Records []models.Record   `json:"records"`
	Error   string            `json:"error,omitempty"`
}

// View owns the FilterSpec of one record list. Each execution captures a
// complete copy of the spec and a generation; only the latest generation's
// result is applied.
type View struct {
	svc    *Service
	logger *zap.Logger

	mu         sync.Mutex
	generation uint64
	spec       models.FilterSpec
	status     ViewStatus
	records    []models.Record
	err        error
}

// NewView returns a view with an empty filter. Nothing is queried until the
// view becomes visible or a search runs.
func NewView(svc *Service, logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{svc: svc, logger: logger, status: ViewIdle}
}

// Search replaces the whole filter with spec and re-queries.
func (v *View) Search(ctx context.Context, spec models.FilterSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	return v.run(ctx, &spec)
}

// Clear resets the filter and re-queries the full set.
func (v *View) Clear(ctx context.Context) error {
	return v.run(ctx, &models.FilterSpec{})
}

// Refresh re-runs the current filter (pull-to-refresh).
func (v *View) Refresh(ctx context.Context) error {
	return v.run(ctx, nil)
}

// Visible is the focus trigger: every time the view regains visibility the
// current filter is re-queried so edits made elsewhere show up.
func (v *View) Visible(ctx context.Context) error {
	return v.Refresh(ctx)
}

// Filter returns the current filter.
func (v *View) Filter() models.FilterSpec {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.spec
}

// Snapshot returns a copy of the current state.
func (v *View) Snapshot() ViewSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := ViewSnapshot{
		Status:  v.status,
		Filter:  v.spec,
		Records: append([]models.Record(nil), v.records...),
	}
	if v.err != nil {
		snap.Error = v.err.Error()
	}
	return snap
}

func (v *View) run(ctx context.Context, next *models.FilterSpec) error {
	v.mu.Lock()
	if next != nil {
		v.spec = *next
	}
	spec := v.spec
	v.generation++
	gen := v.generation
	v.status = ViewLoading
	v.mu.Unlock()

	records, err := v.svc.Execute(ctx, spec)

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.generation {
		v.logger.Debug("dropping superseded list result", zap.Uint64("generation", gen), zap.Uint64("current", v.generation))
		return nil
	}

	if err != nil {
		v.status = ViewError
		v.err = err
		return err
	}

	v.status = ViewReady
	v.records = records
	v.err = nil
	return nil
}
