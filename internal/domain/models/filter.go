package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used by filters and exports.
const DateLayout = "2006-01-02"

// FilterSpec represents the list view search criteria.
// Zero values / nil pointers mean the criterion is not applied.
type FilterSpec struct {
	VehicleNumber string     `json:"vehicle_number,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
}

// IsEmpty reports whether no criterion is set.
func (f FilterSpec) IsEmpty() bool {
	return strings.TrimSpace(f.VehicleNumber) == "" && f.StartDate == nil && f.EndDate == nil
}

// Validate rejects a range whose start day falls after its end day.
func (f FilterSpec) Validate() error {
	if f.StartDate == nil || f.EndDate == nil {
		return nil
	}
	start := f.StartDate.Format(DateLayout)
	end := f.EndDate.In(f.StartDate.Location()).Format(DateLayout)
	if start > end {
		return fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, start, end)
	}
	return nil
}

// ParseFilterSpec builds a FilterSpec from raw values, parsing dates in loc.
// Empty strings leave the matching criterion unset.
func ParseFilterSpec(vehicleNumber, startDate, endDate string, loc *time.Location) (FilterSpec, error) {
	if loc == nil {
		loc = time.Local
	}

	spec := FilterSpec{VehicleNumber: strings.TrimSpace(vehicleNumber)}

	if s := strings.TrimSpace(startDate); s != "" {
		t, err := time.ParseInLocation(DateLayout, s, loc)
		if err != nil {
			return FilterSpec{}, fmt.Errorf("parse start_date %q: %w", s, err)
		}
		spec.StartDate = &t
	}

	if s := strings.TrimSpace(endDate); s != "" {
		t, err := time.ParseInLocation(DateLayout, s, loc)
		if err != nil {
			return FilterSpec{}, fmt.Errorf("parse end_date %q: %w", s, err)
		}
		spec.EndDate = &t
	}

	if err := spec.Validate(); err != nil {
		return FilterSpec{}, err
	}

	return spec, nil
}
