package gallery

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection holds designs when no collection name is configured.
const DefaultCollection = "designs"

// MongoStore is a Store backed by a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

const mongoCloseTimeout = 5 * time.Second

// NewMongoStore connects to uri and uses database.collection.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if collection == "" {
		collection = DefaultCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoStore{client: client, collection: client.Database(database).Collection(collection)}, nil
}

// NewMongoStoreFromCollection wraps an existing collection.
func NewMongoStoreFromCollection(coll *mongo.Collection) *MongoStore {
	return &MongoStore{collection: coll}
}

// CreateSchema ensures the indexes List relies on.
func (ms *MongoStore) CreateSchema(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("status_created_at"),
		},
		{
			Keys:    bson.D{{Key: "tags", Value: 1}},
			Options: options.Index().SetName("tags"),
		},
		{
			Keys:    bson.D{{Key: "author_id", Value: 1}},
			Options: options.Index().SetName("author_id"),
		},
	}
	_, err := ms.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Save inserts or replaces d.
func (ms *MongoStore) Save(ctx context.Context, d *Design) error {
	if d.ID == "" {
		return errors.New("design id is required")
	}
	_, err := ms.collection.ReplaceOne(ctx, bson.M{"_id": d.ID}, d, options.Replace().SetUpsert(true))
	return err
}

// Get returns the design or ErrNotFound.
func (ms *MongoStore) Get(ctx context.Context, id string) (*Design, error) {
	var d Design
	if err := ms.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// List returns matching designs, newest first.
func (ms *MongoStore) List(ctx context.Context, f Filter) ([]*Design, error) {
	query := bson.M{}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if f.Tag != "" {
		query["tags"] = f.Tag
	}
	if f.AuthorID != "" {
		query["author_id"] = f.AuthorID
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(f.limit()))
	cursor, err := ms.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []*Design{}
	for cursor.Next(ctx) {
		var d Design
		if err := cursor.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cursor.Err()
}

// UpdateStatus sets the moderation status and returns the updated design.
func (ms *MongoStore) UpdateStatus(ctx context.Context, id string, status Status, reason string) (*Design, error) {
	update := bson.M{"$set": bson.M{
		"status":            status,
		"moderation_reason": reason,
		"updated_at":        time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var d Design
	if err := ms.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Close disconnects the client when the store owns it.
func (ms *MongoStore) Close() error {
	if ms.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}
