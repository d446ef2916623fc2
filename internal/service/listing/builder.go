// Package listing builds and runs the record list query and owns the list
// view's filter state.
package listing

import (
	"strings"
	"time"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
)

// Builder composes a FilterSpec into a single ordered store query.
// Calendar days are interpreted in loc.
type Builder struct {
	loc *time.Location
}

// NewBuilder returns a builder for the given time zone; nil means time.Local.
func NewBuilder(loc *time.Location) *Builder {
	if loc == nil {
		loc = time.Local
	}
	return &Builder{loc: loc}
}

// Location returns the builder's time zone.
func (b *Builder) Location() *time.Location {
	return b.loc
}

// Build always orders by created_at descending. The end date covers its
// whole calendar day through an exclusive bound on the next day's start.
func (b *Builder) Build(spec models.FilterSpec) models.Query {
	q := models.Query{
		OrderBy: models.Ordering{Field: models.FieldCreatedAt, Direction: models.Descending},
	}

	if vn := strings.TrimSpace(spec.VehicleNumber); vn != "" {
		q.Predicates = append(q.Predicates, models.Predicate{
			Field: models.FieldVehicleNumber,
			Op:    models.OpEqual,
			Value: vn,
		})
	}

	if spec.StartDate != nil {
		q.Predicates = append(q.Predicates, models.Predicate{
			Field: models.FieldCreatedAt,
			Op:    models.OpGreaterThanOrEqual,
			Value: b.StartOfDay(*spec.StartDate),
		})
	}

	if spec.EndDate != nil {
		q.Predicates = append(q.Predicates, models.Predicate{
			Field: models.FieldCreatedAt,
			Op:    models.OpLessThan,
			Value: b.StartOfDay(*spec.EndDate).AddDate(0, 0, 1),
		})
	}

	return q
}

// StartOfDay returns midnight of t's calendar day in the builder's zone.
func (b *Builder) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(b.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, b.loc)
}
