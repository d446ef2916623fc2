package listing

import (
	"context"

	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
)

// Querier is the query side of the record repository.
type Querier interface {
	Query(ctx context.Context, q models.Query) ([]models.Record, error)
}

// Service runs filter queries against the store.
type Service struct {
	repo    Querier
	builder *Builder
	logger  *zap.Logger
}

// NewService wires a listing service.
func NewService(repo Querier, builder *Builder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if builder == nil {
		builder = NewBuilder(nil)
	}
	return &Service{repo: repo, builder: builder, logger: logger}
}

// Builder exposes the query builder.
func (s *Service) Builder() *Builder {
	return s.builder
}

// Execute builds the query for spec and issues it in one round trip. The
// store's result is returned as-is; failures come back as *models.StoreError.
func (s *Service) Execute(ctx context.Context, spec models.FilterSpec) ([]models.Record, error) {
	q := s.builder.Build(spec)

	records, err := s.repo.Query(ctx, q)
	if err != nil {
		s.logger.Error("failed to query records", zap.Any("filter", spec), zap.Error(err))
		return nil, models.NewStoreError("query", err)
	}

	s.logger.Debug("records fetched", zap.Int("count", len(records)), zap.Int("predicates", len(q.Predicates)))
	return records, nil
}
