package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository"
)

var _ repository.RecordRepository = (*RecordRepository)(nil)

// RecordRepository is a mock for repository.RecordRepository.
type RecordRepository struct {
	mock.Mock
}

func (m *RecordRepository) Get(ctx context.Context, id string) (models.Record, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(models.Record); ok {
		return rec, args.Error(1)
	}
	return models.Record{}, args.Error(1)
}

func (m *RecordRepository) Add(ctx context.Context, fields models.Fields) (string, error) {
	args := m.Called(ctx, fields)
	return args.String(0), args.Error(1)
}

func (m *RecordRepository) Update(ctx context.Context, id string, fields models.Fields) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

func (m *RecordRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RecordRepository) Query(ctx context.Context, q models.Query) ([]models.Record, error) {
	args := m.Called(ctx, q)
	if list, ok := args.Get(0).([]models.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// SheetsRepository is a mock for sheets.Repository.
type SheetsRepository struct {
	mock.Mock
}

func (m *SheetsRepository) AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	args := m.Called(ctx, sheetRange, rows)
	return args.Error(0)
}

func (m *SheetsRepository) ReadColumn(ctx context.Context, sheetRange string) ([]string, error) {
	args := m.Called(ctx, sheetRange)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}
