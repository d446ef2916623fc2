// Package firestore stores records in a Cloud Firestore collection through
// the REST API.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository"
	client "github.com/jyunichimaruta/TruckMaintenanceApp/pkg/clients/firestore"
)

var _ repository.RecordRepository = (*FirestoreRepository)(nil)

// FirestoreRepository implements repository.RecordRepository on top of the REST client.
type FirestoreRepository struct {
	client     client.Client
	collection string
	logger     *zap.Logger
}

// NewFirestoreRepository wires a repository for the given collection.
func NewFirestoreRepository(c client.Client, collection string, logger *zap.Logger) *FirestoreRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FirestoreRepository{client: c, collection: collection, logger: logger}
}

// validDocumentID rejects ids that would address something other than a
// document directly under the collection.
func validDocumentID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.Contains(id, "/")
}

// Get loads one record.
func (r *FirestoreRepository) Get(ctx context.Context, id string) (models.Record, error) {
	if !validDocumentID(id) {
		return models.Record{}, fmt.Errorf("get %q: %w", id, models.ErrNotFound)
	}
	doc, err := r.client.GetDocument(ctx, r.collection, id)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return models.Record{}, fmt.Errorf("get %s: %w", id, models.ErrNotFound)
		}
		return models.Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	return toRecord(*doc), nil
}

// Add creates a document with a generated id; created_at is set to the commit time.
func (r *FirestoreRepository) Add(ctx context.Context, fields models.Fields) (string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")

	write := client.Write{
		Update: &client.Document{
			Name:   r.client.DocumentName(r.collection, id),
			Fields: encodeFields(fields),
		},
		UpdateTransforms: []client.FieldTransform{
			{FieldPath: models.FieldCreatedAt, SetToServerValue: client.ServerRequestTime},
		},
		CurrentDocument: client.MustNotExist(),
	}

	if err := r.client.Commit(ctx, []client.Write{write}); err != nil {
		return "", fmt.Errorf("add record: %w", err)
	}

	r.logger.Debug("record document created", zap.String("id", id))
	return id, nil
}

// Update rewrites the editable fields of an existing document and stamps updated_at.
func (r *FirestoreRepository) Update(ctx context.Context, id string, fields models.Fields) error {
	if !validDocumentID(id) {
		return fmt.Errorf("update %q: %w", id, models.ErrNotFound)
	}
	write := client.Write{
		Update: &client.Document{
			Name:   r.client.DocumentName(r.collection, id),
			Fields: encodeFields(fields),
		},
		UpdateMask: &client.DocumentMask{FieldPaths: append([]string(nil), models.EditableFields...)},
		UpdateTransforms: []client.FieldTransform{
			{FieldPath: models.FieldUpdatedAt, SetToServerValue: client.ServerRequestTime},
		},
		CurrentDocument: client.MustExist(),
	}

	if err := r.client.Commit(ctx, []client.Write{write}); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return fmt.Errorf("update %s: %w", id, models.ErrNotFound)
		}
		return fmt.Errorf("update %s: %w", id, err)
	}
	return nil
}

// Delete removes a document. An id that cannot name a document is already absent.
func (r *FirestoreRepository) Delete(ctx context.Context, id string) error {
	if !validDocumentID(id) {
		return nil
	}
	if err := r.client.DeleteDocument(ctx, r.collection, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// Query translates q into a structured query and runs it.
func (r *FirestoreRepository) Query(ctx context.Context, q models.Query) ([]models.Record, error) {
	sq, err := BuildStructuredQuery(r.collection, q)
	if err != nil {
		return nil, err
	}

	docs, err := r.client.RunQuery(ctx, sq)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	out := make([]models.Record, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toRecord(doc))
	}
	return out, nil
}

var fieldOperators = map[models.Operator]string{
	models.OpEqual:              "EQUAL",
	models.OpGreaterThanOrEqual: "GREATER_THAN_OR_EQUAL",
	models.OpLessThan:           "LESS_THAN",
}

// BuildStructuredQuery translates q for the runQuery endpoint.
func BuildStructuredQuery(collection string, q models.Query) (client.StructuredQuery, error) {
	sq := client.StructuredQuery{
		From: []client.CollectionSelector{{CollectionID: collection}},
	}

	filters := make([]client.Filter, 0, len(q.Predicates))
	for _, p := range q.Predicates {
		op, ok := fieldOperators[p.Op]
		if !ok {
			return client.StructuredQuery{}, fmt.Errorf("unsupported operator %q on %s", p.Op, p.Field)
		}

		value, err := encodeValue(p.Value)
		if err != nil {
			return client.StructuredQuery{}, fmt.Errorf("predicate on %s: %w", p.Field, err)
		}

		filters = append(filters, client.Filter{FieldFilter: &client.FieldFilter{
			Field: client.FieldReference{FieldPath: p.Field},
			Op:    op,
			Value: value,
		}})
	}

	switch len(filters) {
	case 0:
	case 1:
		sq.Where = &filters[0]
	default:
		sq.Where = &client.Filter{CompositeFilter: &client.CompositeFilter{Op: "AND", Filters: filters}}
	}

	if q.OrderBy.Field != "" {
		direction := "ASCENDING"
		if q.OrderBy.Direction == models.Descending {
			direction = "DESCENDING"
		}
		sq.OrderBy = []client.Order{{Field: client.FieldReference{FieldPath: q.OrderBy.Field}, Direction: direction}}
	}

	return sq, nil
}

func encodeValue(v any) (client.Value, error) {
	switch value := v.(type) {
	case string:
		return client.StringValue(value), nil
	case time.Time:
		return client.TimestampValue(value), nil
	default:
		return client.Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}

func encodeFields(fields models.Fields) map[string]client.Value {
	out := make(map[string]client.Value, len(models.EditableFields))
	for name, value := range fields.Map() {
		out[name] = client.StringValue(value)
	}
	return out
}

func toRecord(doc client.Document) models.Record {
	rec := models.Record{ID: doc.ID()}
	for _, name := range models.EditableFields {
		_ = rec.Fields.Set(name, doc.Fields[name].String())
	}

	if t, ok := doc.Fields[models.FieldCreatedAt].Time(); ok {
		rec.CreatedAt = t
	}
	if t, ok := doc.Fields[models.FieldUpdatedAt].Time(); ok {
		rec.UpdatedAt = &t
	}
	return rec
}
