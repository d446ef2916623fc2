// Package export copies a day's maintenance records into a spreadsheet.
package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository/sheets"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/service/listing"
)

const timestampLayout = "2006-01-02 15:04:05"

// Service exports records through the listing query path.
type Service struct {
	listing    *listing.Service
	sheets     sheets.Repository
	sheetRange string
	logger     *zap.Logger
	now        func() time.Time
}

// NewService wires a new export service instance.
func NewService(listingSvc *listing.Service, sheetsRepo sheets.Repository, sheetRange string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		listing:    listingSvc,
		sheets:     sheetsRepo,
		sheetRange: sheetRange,
		logger:     logger,
		now:        time.Now,
	}
}

// ExportPreviousDay exports the calendar day before now.
func (s *Service) ExportPreviousDay(ctx context.Context) (int, error) {
	loc := s.listing.Builder().Location()
	yesterday := s.now().In(loc).AddDate(0, 0, -1)
	return s.ExportDay(ctx, yesterday)
}

// ExportDay appends every record created on day that is not already in the
// sheet. Rows are keyed by record id in the first column. Records are
// written oldest first.
func (s *Service) ExportDay(ctx context.Context, day time.Time) (int, error) {
	spec := models.FilterSpec{StartDate: &day, EndDate: &day}

	records, err := s.listing.Execute(ctx, spec)
	if err != nil {
		return 0, fmt.Errorf("load records for %s: %w", day.Format(models.DateLayout), err)
	}
	if len(records) == 0 {
		s.logger.Info("no records to export", zap.String("day", day.Format(models.DateLayout)))
		return 0, nil
	}

	existing, err := s.sheets.ReadColumn(ctx, idColumn(s.sheetRange))
	if err != nil {
		return 0, fmt.Errorf("read exported ids: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}

	loc := s.listing.Builder().Location()
	rows := make([][]interface{}, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		rows = append(rows, Row(rec, loc))
	}
	if len(rows) == 0 {
		s.logger.Info("records already exported", zap.String("day", day.Format(models.DateLayout)))
		return 0, nil
	}

	if err := s.sheets.AppendRows(ctx, s.sheetRange, rows); err != nil {
		return 0, fmt.Errorf("append records: %w", err)
	}

	s.logger.Info("records exported",
		zap.String("day", day.Format(models.DateLayout)),
		zap.Int("exported", len(rows)),
		zap.Int("skipped", len(records)-len(rows)))
	return len(rows), nil
}

// Row renders rec in column order: id, created, vehicle number, user,
// model, issue, action, notes, updated.
func Row(rec models.Record, loc *time.Location) []interface{} {
	updated := ""
	if rec.UpdatedAt != nil {
		updated = rec.UpdatedAt.In(loc).Format(timestampLayout)
	}
	return []interface{}{
		rec.ID,
		rec.CreatedAt.In(loc).Format(timestampLayout),
		rec.VehicleNumber,
		rec.UserName,
		rec.VehicleModel,
		rec.IssueDescription,
		rec.ActionTaken,
		rec.RepairNotes,
		updated,
	}
}

// idColumn narrows "Records!A:I" to "Records!A:A".
func idColumn(sheetRange string) string {
	sheet := ""
	if i := strings.LastIndex(sheetRange, "!"); i >= 0 {
		sheet = sheetRange[:i+1]
	}
	return sheet + "A:A"
}
