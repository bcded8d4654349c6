package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vyrodovalexey/todo-api/internal/model"
)

// Operation result labels.
const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultInvalid  = "invalid"
	resultError    = "error"
)

// Prometheus metrics.
var (
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_store_operations_total",
			Help: "Total number of todo store operations",
		},
		[]string{"operation", "result"},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "todo_store_operation_duration_seconds",
			Help:    "Todo store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// InstrumentedStore records Prometheus metrics around another Store.
type InstrumentedStore struct {
	next Store
}

// NewInstrumentedStore wraps next with operation metrics.
func NewInstrumentedStore(next Store) *InstrumentedStore {
	return &InstrumentedStore{next: next}
}

// List implements Store.
func (s *InstrumentedStore) List(ctx context.Context) ([]model.Todo, error) {
	defer observe("list", time.Now())
	todos, err := s.next.List(ctx)
	record("list", err)
	return todos, err
}

// Get implements Store.
func (s *InstrumentedStore) Get(ctx context.Context, id string) (*model.Todo, error) {
	defer observe("get", time.Now())
	todo, err := s.next.Get(ctx, id)
	record("get", err)
	return todo, err
}

// Create implements Store.
func (s *InstrumentedStore) Create(ctx context.Context, input *model.CreateTodoInput) (*model.Todo, error) {
	defer observe("create", time.Now())
	todo, err := s.next.Create(ctx, input)
	record("create", err)
	return todo, err
}

// Update implements Store.
func (s *InstrumentedStore) Update(
	ctx context.Context,
	id string,
	input *model.UpdateTodoInput,
) (*model.Todo, error) {
	defer observe("update", time.Now())
	todo, err := s.next.Update(ctx, id, input)
	record("update", err)
	return todo, err
}

// Delete implements Store.
func (s *InstrumentedStore) Delete(ctx context.Context, id string) error {
	defer observe("delete", time.Now())
	err := s.next.Delete(ctx, id)
	record("delete", err)
	return err
}

// Ping implements Store.
func (s *InstrumentedStore) Ping(ctx context.Context) error {
	err := s.next.Ping(ctx)
	record("ping", err)
	return err
}

// Close implements Store.
func (s *InstrumentedStore) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}

func observe(operation string, start time.Time) {
	storeOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func record(operation string, err error) {
	storeOperationsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
}

// resultLabel classifies err into a low-cardinality label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrNotFound):
		return resultNotFound
	case errors.Is(err, ErrInvalidID), errors.Is(err, model.ErrEmptyText), errors.Is(err, model.ErrNilInput):
		return resultInvalid
	default:
		return resultError
	}
}
