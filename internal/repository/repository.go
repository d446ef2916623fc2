// Package repository defines the document store contract for maintenance records.
package repository

import (
	"context"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
)

// RecordRepository is the document store holding maintenance records.
// Get and Update return models.ErrNotFound for unknown ids; Add assigns
// created_at and Update assigns updated_at on the store side.
type RecordRepository interface {
	Get(ctx context.Context, id string) (models.Record, error)
	Add(ctx context.Context, fields models.Fields) (string, error)
	Update(ctx context.Context, id string, fields models.Fields) error
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, q models.Query) ([]models.Record, error)
}

// Closer is implemented by backends holding network connections.
type Closer interface {
	Close(ctx context.Context) error
}
