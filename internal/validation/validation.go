// Package validation checks request bodies against JSON schemas before
// they are decoded into model types.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema resource URLs.
const (
	createTodoSchemaURL = "https://todo-api.local/schemas/create-todo.json"
	updateTodoSchemaURL = "https://todo-api.local/schemas/update-todo.json"
)

const createTodoSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": {"type": "string", "minLength": 1},
    "completed": {"type": "boolean"}
  }
}`

const updateTodoSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "text": {"type": "string", "minLength": 1},
    "completed": {"type": "boolean"}
  }
}`

// ErrMalformedJSON is returned when the body is not valid JSON.
var ErrMalformedJSON = errors.New("request body is not valid JSON")

// Error describes the first schema violation found in a body.
type Error struct {
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validator holds the compiled todo request schemas.
type Validator struct {
	create *jsonschema.Schema
	update *jsonschema.Schema
}

// New compiles the todo request schemas.
func New() (*Validator, error) {
	create, err := compile(createTodoSchemaURL, createTodoSchema)
	if err != nil {
		return nil, err
	}

	update, err := compile(updateTodoSchemaURL, updateTodoSchema)
	if err != nil {
		return nil, err
	}

	return &Validator{create: create, update: update}, nil
}

// ValidateCreate checks a POST /todos body.
func (v *Validator) ValidateCreate(body []byte) error {
	return validate(v.create, body)
}

// ValidateUpdate checks a PUT /todos/{id} body.
func (v *Validator) ValidateUpdate(body []byte) error {
	return validate(v.update, body)
}

func compile(url, schema string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	if err := compiler.AddResource(url, strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", url, err)
	}

	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", url, err)
	}

	return compiled, nil
}

func validate(schema *jsonschema.Schema, body []byte) error {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	if err := schema.Validate(doc); err != nil {
		return toError(err)
	}

	return nil
}

// toError reduces a jsonschema error tree to its first leaf.
func toError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &Error{Message: err.Error()}
	}

	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	return &Error{
		Path:    pointerToPath(leaf.InstanceLocation),
		Message: leaf.Message,
	}
}

// pointerToPath turns a JSON pointer like "/text" into "text".
func pointerToPath(pointer string) string {
	return strings.ReplaceAll(strings.TrimPrefix(pointer, "/"), "/", ".")
}
