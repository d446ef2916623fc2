package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/domain/models"
	"github.com/jyunichimaruta/TruckMaintenanceApp/internal/repository"
)

var _ repository.RecordRepository = (*MongoDBRepository)(nil)

// recordDocument is the stored shape of a record.
type recordDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	models.Fields `bson:",inline"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     *time.Time `bson:"updated_at,omitempty"`
}

func (d recordDocument) toRecord() models.Record {
	return models.Record{
		ID:        d.ID.Hex(),
		Fields:    d.Fields,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MongoDBRepository implements repository.RecordRepository for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri, dbName, collName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: collName,
	}

	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// ensureIndexes backs the two filterable fields of the list query.
func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.collection().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: models.FieldCreatedAt, Value: -1}}},
		{Keys: bson.D{{Key: models.FieldVehicleNumber, Value: 1}, {Key: models.FieldCreatedAt, Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create record indexes: %w", err)
	}
	return nil
}

// Get loads a record by its hex object id.
func (r *MongoDBRepository) Get(ctx context.Context, id string) (models.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Record{}, fmt.Errorf("get %s: %w", id, models.ErrNotFound)
	}

	var doc recordDocument
	if err := r.collection().FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Record{}, fmt.Errorf("get %s: %w", id, models.ErrNotFound)
		}
		return models.Record{}, fmt.Errorf("failed to find record %s: %w", id, err)
	}

	return doc.toRecord(), nil
}

// Add inserts a record; created_at is stamped by the server via $currentDate.
func (r *MongoDBRepository) Add(ctx context.Context, fields models.Fields) (string, error) {
	oid := primitive.NewObjectID()
	update := bson.M{
		"$set":         fieldsDocument(fields),
		"$currentDate": bson.M{models.FieldCreatedAt: true},
	}

	_, err := r.collection().UpdateOne(ctx, bson.M{"_id": oid}, update, options.Update().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("failed to insert record: %w", err)
	}
	return oid.Hex(), nil
}

// Update replaces the editable fields and stamps updated_at on the server.
func (r *MongoDBRepository) Update(ctx context.Context, id string, fields models.Fields) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("update %s: %w", id, models.ErrNotFound)
	}

	update := bson.M{
		"$set":         fieldsDocument(fields),
		"$currentDate": bson.M{models.FieldUpdatedAt: true},
	}

	res, err := r.collection().UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update record %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// Delete removes a record. Unknown ids are not an error.
func (r *MongoDBRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}

	if _, err := r.collection().DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

// Query runs q as a single find with sort.
func (r *MongoDBRepository) Query(ctx context.Context, q models.Query) ([]models.Record, error) {
	filter, err := BuildFilter(q)
	if err != nil {
		return nil, err
	}

	findOpts := options.Find()
	if sort := BuildSort(q.OrderBy); sort != nil {
		findOpts.SetSort(sort)
	}

	cursor, err := r.collection().Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []recordDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	out := make([]models.Record, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toRecord())
	}
	return out, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func fieldsDocument(fields models.Fields) bson.M {
	doc := bson.M{}
	for name, value := range fields.Map() {
		doc[name] = value
	}
	return doc
}

var operators = map[models.Operator]string{
	models.OpEqual:              "$eq",
	models.OpGreaterThanOrEqual: "$gte",
	models.OpLessThan:           "$lt",
}

// BuildFilter translates the predicates of q into a MongoDB filter document.
// Predicates on the same field are merged into one operator document.
func BuildFilter(q models.Query) (bson.D, error) {
	filter := bson.D{}
	index := map[string]int{}

	for _, p := range q.Predicates {
		op, ok := operators[p.Op]
		if !ok {
			return nil, fmt.Errorf("unsupported operator %q on %s", p.Op, p.Field)
		}

		if i, seen := index[p.Field]; seen {
			cond := filter[i].Value.(bson.D)
			filter[i].Value = append(cond, bson.E{Key: op, Value: p.Value})
			continue
		}

		index[p.Field] = len(filter)
		filter = append(filter, bson.E{Key: p.Field, Value: bson.D{{Key: op, Value: p.Value}}})
	}

	return filter, nil
}

// BuildSort translates an ordering into a MongoDB sort document.
func BuildSort(order models.Ordering) bson.D {
	if order.Field == "" {
		return nil
	}
	dir := 1
	if order.Direction == models.Descending {
		dir = -1
	}
	return bson.D{{Key: order.Field, Value: dir}}
}
