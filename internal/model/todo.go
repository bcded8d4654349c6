// Package model defines data structures used throughout the application.
package model

import "errors"

// Validation errors for Todo input.
var (
	ErrEmptyText = errors.New("text is required")
	ErrNilInput  = errors.New("input cannot be nil")
)

// Todo represents a single to-do record.
type Todo struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// CreateTodoInput is the payload accepted when creating a Todo.
// Completed defaults to false when omitted.
type CreateTodoInput struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed,omitempty"`
}

// Validate checks that the input carries non-empty text.
func (in *CreateTodoInput) Validate() error {
	if in == nil {
		return ErrNilInput
	}
	if in.Text == nil || *in.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// CompletedOrDefault returns the completed flag, false when omitted.
func (in *CreateTodoInput) CompletedOrDefault() bool {
	if in.Completed == nil {
		return false
	}
	return *in.Completed
}

// UpdateTodoInput is the payload accepted when updating a Todo.
// Only fields that are set are changed.
type UpdateTodoInput struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// Validate rejects a supplied but empty text.
func (in *UpdateTodoInput) Validate() error {
	if in == nil {
		return ErrNilInput
	}
	if in.Text != nil && *in.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// IsEmpty reports whether the input changes nothing.
func (in *UpdateTodoInput) IsEmpty() bool {
	return in.Text == nil && in.Completed == nil
}

// Apply returns a copy of todo with the supplied fields replaced.
func (in *UpdateTodoInput) Apply(todo Todo) Todo {
	if in.Text != nil {
		todo.Text = *in.Text
	}
	if in.Completed != nil {
		todo.Completed = *in.Completed
	}
	return todo
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}
