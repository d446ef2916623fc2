// Package memory provides an in-memory RecordRepository used for tests and
// ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository"
)

var _ repository.RecordRepository = (*Repository)(nil)

// Repository keeps records in a map guarded by a RWMutex.
type Repository struct {
	mu      sync.RWMutex
	records map[string]models.Record
	now     func() time.Time
}

// Option customizes a Repository.
type Option func(*Repository)

// WithClock overrides the clock used to stamp created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// New returns an empty repository.
func New(opts ...Option) *Repository {
	r := &Repository{
		records: make(map[string]models.Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Seed stores rec as-is, keeping its id and timestamps.
func (r *Repository) Seed(rec models.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	r.records[rec.ID] = rec
}

// Get returns a copy of the stored record.
func (r *Repository) Get(_ context.Context, id string) (models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return models.Record{}, fmt.Errorf("get %s: %w", id, models.ErrNotFound)
	}
	return cloneRecord(rec), nil
}

// Add stores a new record and returns its generated id.
func (r *Repository) Add(_ context.Context, fields models.Fields) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	r.records[id] = models.Record{
		ID:        id,
		Fields:    fields,
		CreatedAt: r.now(),
	}
	return id, nil
}

// Update replaces the editable fields of an existing record.
func (r *Repository) Update(_ context.Context, id string, fields models.Fields) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("update %s: %w", id, models.ErrNotFound)
	}

	now := r.now()
	rec.Fields = fields
	rec.UpdatedAt = &now
	r.records[id] = rec
	return nil
}

// Delete removes the record; deleting an unknown id is a no-op.
func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, id)
	return nil
}

// Query evaluates q against every stored record.
func (r *Repository) Query(_ context.Context, q models.Query) ([]models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Record, 0, len(r.records))
	for _, rec := range r.records {
		if q.Matches(rec) {
			out = append(out, cloneRecord(rec))
		}
	}

	sortRecords(out, q.OrderBy)
	return out, nil
}

// Len returns the number of stored records.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func sortRecords(records []models.Record, order models.Ordering) {
	if order.Field == "" {
		return
	}

	less := func(a, b models.Record) bool {
		switch order.Field {
		case models.FieldCreatedAt:
			return a.CreatedAt.Before(b.CreatedAt)
		case models.FieldUpdatedAt:
			return timeOrZero(a.UpdatedAt).Before(timeOrZero(b.UpdatedAt))
		default:
			av, _ := a.Fields.Get(order.Field)
			bv, _ := b.Fields.Get(order.Field)
			return av < bv
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if order.Direction == models.Descending {
			return less(records[j], records[i])
		}
		return less(records[i], records[j])
	})
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func cloneRecord(rec models.Record) models.Record {
	if rec.UpdatedAt != nil {
		updated := *rec.UpdatedAt
		rec.UpdatedAt = &updated
	}
	return rec
}
