package instrumented_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/metrics"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository/instrumented"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository/mocks"
)

func TestRepository_CountsOutcomes(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	next := &mocks.RecordRepository{}
	next.On("Get", ctx, "ok").Return(models.Record{ID: "ok"}, nil)
	next.On("Get", ctx, "gone").Return(nil, fmt.Errorf("get gone: %w", models.ErrNotFound))
	next.On("Delete", ctx, "broken").Return(errors.New("socket closed"))

	repo := instrumented.Wrap(next, m, nil)

	rec, err := repo.Get(ctx, "ok")
	require.NoError(t, err)
	require.Equal(t, "ok", rec.ID)

	_, err = repo.Get(ctx, "gone")
	require.ErrorIs(t, err, models.ErrNotFound)
	var se *models.StoreError
	require.False(t, errors.As(err, &se))

	err = repo.Delete(ctx, "broken")
	require.ErrorIs(t, err, models.ErrStore)

	require.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperations.WithLabelValues("get", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperations.WithLabelValues("get", "not_found")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperations.WithLabelValues("delete", "error")))
	next.AssertExpectations(t)
}

func TestRepository_PassesQueryThrough(t *testing.T) {
	ctx := context.Background()
	next := &mocks.RecordRepository{}
	q := models.Query{OrderBy: models.Ordering{Field: models.FieldCreatedAt, Direction: models.Descending}}
	next.On("Query", ctx, q).Return([]models.Record{{ID: "a"}}, nil)
	next.On("Add", ctx, mock.Anything).Return("new-id", nil)
	next.On("Update", ctx, "a", mock.Anything).Return(nil)

	repo := instrumented.Wrap(next, nil, nil)

	out, err := repo.Query(ctx, q)
	require.NoError(t, err)
	require.Len(t, out, 1)

	id, err := repo.Add(ctx, models.Fields{VehicleNumber: "V"})
	require.NoError(t, err)
	require.Equal(t, "new-id", id)

	require.NoError(t, repo.Update(ctx, "a", models.Fields{}))
	next.AssertExpectations(t)
}
