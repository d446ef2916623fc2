package firestore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	firestorerepo "github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository/firestore"
	client "github.com/jyunichimaruta/TruckMaintenanceApp/pkg/clients/firestore"
)

type fakeClient struct {
	docs      map[string]client.Document
	commits   [][]client.Write
	deleted   []string
	queries   []client.StructuredQuery
	commitErr error
}

func (f *fakeClient) GetDocument(_ context.Context, _, id string) (*client.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", client.ErrNotFound, id)
	}
	return &doc, nil
}

func (f *fakeClient) Commit(_ context.Context, writes []client.Write) error {
	f.commits = append(f.commits, writes)
	return f.commitErr
}

func (f *fakeClient) DeleteDocument(_ context.Context, _, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeClient) RunQuery(_ context.Context, q client.StructuredQuery) ([]client.Document, error) {
	f.queries = append(f.queries, q)
	out := make([]client.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (f *fakeClient) DocumentName(collection, id string) string {
	return "projects/demo/databases/(default)/documents/" + collection + "/" + id
}

func TestFirestoreRepository_Get(t *testing.T) {
	created := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	fc := &fakeClient{docs: map[string]client.Document{
		"r1": {
			Name: "projects/demo/databases/(default)/documents/records/r1",
			Fields: map[string]client.Value{
				models.FieldVehicleNumber:    client.StringValue("V-1"),
				models.FieldIssueDescription: client.StringValue("Oil leak"),
				models.FieldCreatedAt:        client.TimestampValue(created),
			},
		},
	}}
	repo := firestorerepo.NewFirestoreRepository(fc, "records", nil)

	rec, err := repo.Get(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "r1", rec.ID)
	require.Equal(t, "V-1", rec.VehicleNumber)
	require.Equal(t, "Oil leak", rec.IssueDescription)
	require.Empty(t, rec.RepairNotes)
	require.True(t, created.Equal(rec.CreatedAt))
	require.Nil(t, rec.UpdatedAt)

	_, err = repo.Get(context.Background(), "missing")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestFirestoreRepository_Add_UsesServerTimestamp(t *testing.T) {
	fc := &fakeClient{}
	repo := firestorerepo.NewFirestoreRepository(fc, "records", nil)

	id, err := repo.Add(context.Background(), models.Fields{VehicleNumber: "V-9", UserName: "Mori"})
	require.NoError(t, err)
	require.Len(t, id, 32)

	require.Len(t, fc.commits, 1)
	write := fc.commits[0][0]
	require.Equal(t, fc.DocumentName("records", id), write.Update.Name)
	require.Equal(t, "V-9", write.Update.Fields[models.FieldVehicleNumber].String())
	require.NotContains(t, write.Update.Fields, models.FieldCreatedAt)
	require.False(t, *write.CurrentDocument.Exists)
	require.Equal(t, []client.FieldTransform{{FieldPath: models.FieldCreatedAt, SetToServerValue: client.ServerRequestTime}}, write.UpdateTransforms)
}

func TestFirestoreRepository_Update(t *testing.T) {
	fc := &fakeClient{}
	repo := firestorerepo.NewFirestoreRepository(fc, "records", nil)

	require.NoError(t, repo.Update(context.Background(), "r1", models.Fields{VehicleNumber: "V-2"}))

	write := fc.commits[0][0]
	require.Equal(t, models.EditableFields, write.UpdateMask.FieldPaths)
	require.True(t, *write.CurrentDocument.Exists)
	require.Equal(t, models.FieldUpdatedAt, write.UpdateTransforms[0].FieldPath)
}

func TestFirestoreRepository_Update_Missing(t *testing.T) {
	fc := &fakeClient{commitErr: fmt.Errorf("%w: no document to update", client.ErrNotFound)}
	repo := firestorerepo.NewFirestoreRepository(fc, "records", nil)

	err := repo.Update(context.Background(), "gone", models.Fields{})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestFirestoreRepository_Delete(t *testing.T) {
	fc := &fakeClient{}
	repo := firestorerepo.NewFirestoreRepository(fc, "records", nil)

	require.NoError(t, repo.Delete(context.Background(), "r1"))
	require.Equal(t, []string{"r1"}, fc.deleted)
}

func TestBuildStructuredQuery_NoPredicates(t *testing.T) {
	sq, err := firestorerepo.BuildStructuredQuery("records", models.Query{
		OrderBy: models.Ordering{Field: models.FieldCreatedAt, Direction: models.Descending},
	})
	require.NoError(t, err)
	require.Nil(t, sq.Where)
	require.Equal(t, "records", sq.From[0].CollectionID)
	require.Equal(t, []client.Order{{Field: client.FieldReference{FieldPath: models.FieldCreatedAt}, Direction: "DESCENDING"}}, sq.OrderBy)
}

func TestBuildStructuredQuery_SinglePredicate(t *testing.T) {
	sq, err := firestorerepo.BuildStructuredQuery("records", models.Query{Predicates: []models.Predicate{
		{Field: models.FieldVehicleNumber, Op: models.OpEqual, Value: "V-1"},
	}})
	require.NoError(t, err)
	require.NotNil(t, sq.Where.FieldFilter)
	require.Nil(t, sq.Where.CompositeFilter)
	require.Equal(t, "EQUAL", sq.Where.FieldFilter.Op)
	require.Equal(t, "V-1", sq.Where.FieldFilter.Value.String())
}

func TestBuildStructuredQuery_CompositeRange(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	sq, err := firestorerepo.BuildStructuredQuery("records", models.Query{Predicates: []models.Predicate{
		{Field: models.FieldVehicleNumber, Op: models.OpEqual, Value: "V-1"},
		{Field: models.FieldCreatedAt, Op: models.OpGreaterThanOrEqual, Value: start},
		{Field: models.FieldCreatedAt, Op: models.OpLessThan, Value: start.AddDate(0, 0, 1)},
	}})
	require.NoError(t, err)
	require.NotNil(t, sq.Where.CompositeFilter)
	require.Equal(t, "AND", sq.Where.CompositeFilter.Op)

	filters := sq.Where.CompositeFilter.Filters
	require.Len(t, filters, 3)
	require.Equal(t, "GREATER_THAN_OR_EQUAL", filters[1].FieldFilter.Op)
	require.Equal(t, "LESS_THAN", filters[2].FieldFilter.Op)

	got, ok := filters[1].FieldFilter.Value.Time()
	require.True(t, ok)
	require.True(t, start.Equal(got))
}

func TestBuildStructuredQuery_RejectsUnsupportedValue(t *testing.T) {
	_, err := firestorerepo.BuildStructuredQuery("records", models.Query{Predicates: []models.Predicate{
		{Field: models.FieldVehicleNumber, Op: models.OpEqual, Value: 42},
	}})
	require.Error(t, err)
}

func TestFirestoreRepository_RejectsNestedPaths(t *testing.T) {
	ctx := context.Background()
	fc := &fakeClient{docs: map[string]client.Document{
		"r1/notes/n1": {Name: "projects/demo/databases/(default)/documents/records/r1/notes/n1"},
	}}
	repo := firestorerepo.NewFirestoreRepository(fc, "records", nil)

	for _, id := range []string{"r1/notes/n1", "", ".."} {
		_, err := repo.Get(ctx, id)
		require.ErrorIs(t, err, models.ErrNotFound, id)
		require.ErrorIs(t, repo.Update(ctx, id, models.Fields{}), models.ErrNotFound, id)
		require.NoError(t, repo.Delete(ctx, id), id)
	}

	require.Empty(t, fc.commits)
	require.Empty(t, fc.deleted)
}
