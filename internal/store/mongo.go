package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vyrodovalexey/todo-api/internal/model"
)

const defaultConnectTimeout = 10 * time.Second

// MongoOptions configures the MongoDB connection.
type MongoOptions struct {
	URI            string
	Database       string
	Collection     string
	ConnectTimeout time.Duration
}

// todoDocument is the BSON layout of a stored todo.
type todoDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Text      string             `bson:"text"`
	Completed bool               `bson:"completed"`
}

func (d todoDocument) toModel() model.Todo {
	return model.Todo{
		ID:        d.ID.Hex(),
		Text:      d.Text,
		Completed: d.Completed,
	}
}

// MongoStore implements Store on top of a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect dials MongoDB, verifies the connection with a ping against the
// primary and returns a ready store. The caller owns the returned store
// and must Close it.
func Connect(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.URI == "" {
		return nil, errors.New("connect mongodb: URI must not be empty")
	}

	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return NewMongoStore(client, client.Database(opts.Database).Collection(opts.Collection)), nil
}

// NewMongoStore wraps an existing client and collection.
func NewMongoStore(client *mongo.Client, collection *mongo.Collection) *MongoStore {
	return &MongoStore{
		client:     client,
		collection: collection,
	}
}

// List returns all todos in the collection's natural order.
func (s *MongoStore) List(ctx context.Context) ([]model.Todo, error) {
	cursor, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}

	var docs []todoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list todos: decode: %w", err)
	}

	todos := make([]model.Todo, 0, len(docs))
	for _, doc := range docs {
		todos = append(todos, doc.toModel())
	}

	return todos, nil
}

// Get retrieves a todo by its ID.
func (s *MongoStore) Get(ctx context.Context, id string) (*model.Todo, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var doc todoDocument
	err = s.collection.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get todo: %w", err)
	}

	todo := doc.toModel()
	return &todo, nil
}

// Create inserts a new todo document.
func (s *MongoStore) Create(ctx context.Context, input *model.CreateTodoInput) (*model.Todo, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	doc := todoDocument{
		ID:        primitive.NewObjectID(),
		Text:      *input.Text,
		Completed: input.CompletedOrDefault(),
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}

	todo := doc.toModel()
	return &todo, nil
}

// Update sets the supplied fields and returns the document after the change.
func (s *MongoStore) Update(ctx context.Context, id string, input *model.UpdateTodoInput) (*model.Todo, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	oid, err := parseID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	if input.IsEmpty() {
		return s.Get(ctx, id)
	}

	set := bson.D{}
	if input.Text != nil {
		set = append(set, bson.E{Key: "text", Value: *input.Text})
	}
	if input.Completed != nil {
		set = append(set, bson.E{Key: "completed", Value: *input.Completed})
	}

	var doc todoDocument
	err = s.collection.FindOneAndUpdate(
		ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update todo: %w", err)
	}

	todo := doc.toModel()
	return &todo, nil
}

// Delete removes a todo by its ID.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	res, err := s.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}

	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks connectivity to the primary.
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}
	return nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	return nil
}
