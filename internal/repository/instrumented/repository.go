// Package instrumented decorates a RecordRepository with metrics, logging and
// StoreError conversion.
package instrumented

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/metrics"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository"
)

var _ repository.RecordRepository = (*Repository)(nil)

// Repository wraps another RecordRepository. Failures other than
// models.ErrNotFound are returned as *models.StoreError.
type Repository struct {
	next    repository.RecordRepository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Wrap decorates next.
func Wrap(next repository.RecordRepository, m *metrics.Metrics, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{next: next, metrics: m, logger: logger}
}

func (r *Repository) observe(op string, start time.Time, err error) error {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
		r.logger.Warn("store operation failed", zap.String("op", op), zap.Error(err))
		err = models.NewStoreError(op, err)
	}

	if r.metrics != nil {
		r.metrics.StoreOperations.WithLabelValues(op, outcome).Inc()
		r.metrics.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
	return err
}

func (r *Repository) Get(ctx context.Context, id string) (models.Record, error) {
	start := time.Now()
	rec, err := r.next.Get(ctx, id)
	return rec, r.observe("get", start, err)
}

func (r *Repository) Add(ctx context.Context, fields models.Fields) (string, error) {
	start := time.Now()
	id, err := r.next.Add(ctx, fields)
	return id, r.observe("add", start, err)
}

func (r *Repository) Update(ctx context.Context, id string, fields models.Fields) error {
	start := time.Now()
	return r.observe("update", start, r.next.Update(ctx, id, fields))
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	return r.observe("delete", start, r.next.Delete(ctx, id))
}

func (r *Repository) Query(ctx context.Context, q models.Query) ([]models.Record, error) {
	start := time.Now()
	records, err := r.next.Query(ctx, q)
	return records, r.observe("query", start, err)
}
