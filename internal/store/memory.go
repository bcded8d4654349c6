package store

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vyrodovalexey/todo-api/internal/model"
)

// MemoryStore implements Store with in-process storage. Identifiers follow
// the same ObjectID rules as MongoStore.
type MemoryStore struct {
	mu    sync.RWMutex
	todos map[string]model.Todo
	order []string
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		todos: make(map[string]model.Todo),
	}
}

// List returns all todos in insertion order.
func (s *MemoryStore) List(ctx context.Context) ([]model.Todo, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list todos: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	todos := make([]model.Todo, 0, len(s.order))
	for _, id := range s.order {
		todos = append(todos, s.todos[id])
	}

	return todos, nil
}

// Get retrieves a todo by its ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Todo, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get todo: %w", ctx.Err())
	default:
	}

	if _, err := parseID(id); err != nil {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	todo, exists := s.todos[id]
	if !exists {
		return nil, ErrNotFound
	}

	return &todo, nil
}

// Create adds a new todo and returns it with a generated ID.
func (s *MemoryStore) Create(ctx context.Context, input *model.CreateTodoInput) (*model.Todo, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("create todo: %w", ctx.Err())
	default:
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	todo := model.Todo{
		ID:        primitive.NewObjectID().Hex(),
		Text:      *input.Text,
		Completed: input.CompletedOrDefault(),
	}

	s.todos[todo.ID] = todo
	s.order = append(s.order, todo.ID)

	return &todo, nil
}

// Update modifies an existing todo.
func (s *MemoryStore) Update(ctx context.Context, id string, input *model.UpdateTodoInput) (*model.Todo, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("update todo: %w", ctx.Err())
	default:
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	if _, err := parseID(id); err != nil {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.todos[id]
	if !exists {
		return nil, ErrNotFound
	}

	updated := input.Apply(existing)
	s.todos[id] = updated

	return &updated, nil
}

// Delete removes a todo by its ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete todo: %w", ctx.Err())
	default:
	}

	if _, err := parseID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.todos[id]; !exists {
		return ErrNotFound
	}

	delete(s.todos, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return nil
}

// Ping always succeeds unless ctx is done.
func (s *MemoryStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ping memory store: %w", err)
	}
	return nil
}

// Close drops all todos.
func (s *MemoryStore) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.todos = make(map[string]model.Todo)
	s.order = nil

	return nil
}
