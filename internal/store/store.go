// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vyrodovalexey/todo-api/internal/model"
)

// Store errors.
var (
	ErrNotFound  = errors.New("todo not found")
	ErrInvalidID = errors.New("invalid todo ID")
)

// Store defines the interface for todo storage operations.
type Store interface {
	// List returns all todos in the store's natural order.
	List(ctx context.Context) ([]model.Todo, error)

	// Get retrieves a todo by its ID. A malformed ID reports ErrNotFound.
	Get(ctx context.Context, id string) (*model.Todo, error)

	// Create persists a new todo and returns it with its assigned ID.
	Create(ctx context.Context, input *model.CreateTodoInput) (*model.Todo, error)

	// Update applies the supplied fields to an existing todo.
	// A malformed ID reports ErrNotFound.
	Update(ctx context.Context, id string, input *model.UpdateTodoInput) (*model.Todo, error)

	// Delete removes a todo by its ID. A malformed ID reports ErrInvalidID.
	Delete(ctx context.Context, id string) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close(ctx context.Context) error
}

// parseID converts a hex identifier into an ObjectID.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}
