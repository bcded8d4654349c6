package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/todo-api/internal/config"
	"github.com/vyrodovalexey/todo-api/internal/model"
	"github.com/vyrodovalexey/todo-api/internal/store"
	"github.com/vyrodovalexey/todo-api/internal/validation"
)

func testConfig(port int, metrics bool) *config.Config {
	return &config.Config{
		ServerPort:         port,
		LogLevel:           "info",
		ShutdownTimeout:    5 * time.Second,
		MetricsEnabled:     metrics,
		CORSAllowedOrigins: []string{"*"},
		StoreBackend:       config.StoreBackendMemory,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	v, err := validation.New()
	if err != nil {
		t.Fatalf("validation.New() error = %v", err)
	}
	return New(cfg, zap.NewNop(), store.NewMemoryStore(), v)
}

// do sends a request through the full handler chain and returns the recorder.
func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeTodo(t *testing.T, rr *httptest.ResponseRecorder) model.Todo {
	t.Helper()
	var todo model.Todo
	if err := json.NewDecoder(rr.Body).Decode(&todo); err != nil {
		t.Fatalf("decoding todo: %v (body %q)", err, rr.Body.String())
	}
	return todo
}

func listTodos(t *testing.T, s *Server) []model.Todo {
	t.Helper()
	rr := do(t, s, http.MethodGet, "/todos", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /todos status = %d, want %d", rr.Code, http.StatusOK)
	}
	var todos []model.Todo
	if err := json.NewDecoder(rr.Body).Decode(&todos); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	return todos
}

func TestNew(t *testing.T) {
	// Arrange & Act
	server := newTestServer(t, testConfig(8080, true))

	// Assert
	if server.router == nil {
		t.Error("router should not be nil")
	}
	if server.config == nil {
		t.Error("config should not be nil")
	}
	if server.logger == nil {
		t.Error("logger should not be nil")
	}
	if server.httpServer == nil {
		t.Error("httpServer should not be nil")
	}
	if server.handler == nil {
		t.Error("handler should not be nil")
	}
	if server.httpServer.Handler == nil {
		t.Error("httpServer.Handler should not be nil")
	}
}

func TestNew_MetricsEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		want    int
	}{
		{"enabled", true, http.StatusOK},
		{"disabled", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			server := newTestServer(t, testConfig(8080, tt.enabled))

			// Act
			rr := do(t, server, http.MethodGet, "/metrics", "")

			// Assert
			if rr.Code != tt.want {
				t.Errorf("GET /metrics status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestServer_MetricsExposeStoreAndHTTPSeries(t *testing.T) {
	// Arrange
	cfg := testConfig(8080, true)
	v, err := validation.New()
	if err != nil {
		t.Fatalf("validation.New() error = %v", err)
	}
	server := New(cfg, zap.NewNop(), store.NewInstrumentedStore(store.NewMemoryStore()), v)
	do(t, server, http.MethodPost, "/todos", `{"text":"Buy milk"}`)

	// Act
	rr := do(t, server, http.MethodGet, "/metrics", "")

	// Assert
	body := rr.Body.String()
	for _, series := range []string{"todo_api_http_requests_total", "todo_store_operations_total"} {
		if !strings.Contains(body, series) {
			t.Errorf("/metrics output missing %s", series)
		}
	}
}

func TestServer_HTTPServerConfiguration(t *testing.T) {
	// Arrange & Act
	server := newTestServer(t, testConfig(5000, false))

	// Assert
	if server.httpServer.Addr != ":5000" {
		t.Errorf("httpServer.Addr = %s, want :5000", server.httpServer.Addr)
	}
	if server.httpServer.ReadHeaderTimeout != 5*time.Second {
		t.Errorf("ReadHeaderTimeout = %v, want 5s", server.httpServer.ReadHeaderTimeout)
	}
	if server.httpServer.MaxHeaderBytes != 1<<20 {
		t.Errorf("MaxHeaderBytes = %d, want %d", server.httpServer.MaxHeaderBytes, 1<<20)
	}
}

func TestServer_Root(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, false))

	// Act
	rr := do(t, server, http.MethodGet, "/", "")

	// Assert
	if rr.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), "Todo API is running") {
		t.Errorf("GET / body = %q", rr.Body.String())
	}
}

func TestServer_MiddlewareApplied(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, true))
	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()

	// Act
	server.Handler().ServeHTTP(rr, req)

	// Assert
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header should be set by middleware")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want http://localhost:3000", got)
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, false))
	req := httptest.NewRequest(http.MethodOptions, "/todos/65f0c0ffee0000000000beef", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rr := httptest.NewRecorder()

	// Act
	server.Handler().ServeHTTP(rr, req)

	// Assert
	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if !strings.Contains(rr.Header().Get("Access-Control-Allow-Methods"), http.MethodPut) {
		t.Errorf("Access-Control-Allow-Methods = %q, want PUT listed", rr.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestServer_UnknownPathsNotFound(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"unknown root path", http.MethodGet, "/nope"},
		{"trailing slash", http.MethodGet, "/todos/"},
		{"nested todo path", http.MethodGet, "/todos/a/b"},
		{"delete unknown path", http.MethodDelete, "/nope"},
	}

	server := newTestServer(t, testConfig(8080, false))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			rr := do(t, server, tt.method, tt.path, "")

			// Assert
			if rr.Code != http.StatusNotFound {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, rr.Code, http.StatusNotFound)
			}
			if rr.Header().Get("X-Request-ID") == "" {
				t.Error("X-Request-ID header should be set on unmatched paths")
			}
		})
	}
}

func TestServer_WrongMethodOnKnownPath(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, false))

	// Act
	rr := do(t, server, http.MethodPatch, "/todos", "")

	// Assert
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("PATCH /todos status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}

func TestServer_WhitespaceTextAccepted(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, false))

	// Act
	rr := do(t, server, http.MethodPost, "/todos", `{"text":"   "}`)

	// Assert
	if rr.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d (body %q)", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if todo := decodeTodo(t, rr); todo.Text != "   " {
		t.Errorf("text = %q, want it stored verbatim", todo.Text)
	}
}

func TestServer_CORSConfiguredOrigins(t *testing.T) {
	// Arrange
	cfg := testConfig(8080, false)
	cfg.CORSAllowedOrigins = []string{"http://app.example"}
	server := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/todos", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr := httptest.NewRecorder()

	// Act
	server.Handler().ServeHTTP(rr, req)

	// Assert
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty for unlisted origin", got)
	}
}

func TestServer_CreateThenGet(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, false))

	// Act
	created := do(t, server, http.MethodPost, "/todos", `{"text":"Buy milk"}`)

	// Assert
	if created.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", created.Code, http.StatusCreated)
	}
	todo := decodeTodo(t, created)
	if todo.ID == "" {
		t.Fatal("created todo has no id")
	}
	if todo.Text != "Buy milk" || todo.Completed {
		t.Errorf("created = %+v, want text Buy milk and completed false", todo)
	}

	fetched := do(t, server, http.MethodGet, "/todos/"+todo.ID, "")
	if fetched.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want %d", fetched.Code, http.StatusOK)
	}
	if got := decodeTodo(t, fetched); got != todo {
		t.Errorf("GET = %+v, want %+v", got, todo)
	}
}

func TestServer_CreateWithoutTextCreatesNothing(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, false))

	// Act
	rr := do(t, server, http.MethodPost, "/todos", `{}`)

	// Assert
	if rr.Code != http.StatusBadRequest {
		t.Errorf("POST {} status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if todos := listTodos(t, server); len(todos) != 0 {
		t.Errorf("list length = %d, want 0", len(todos))
	}
}

func TestServer_PartialUpdateKeepsText(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, false))
	todo := decodeTodo(t, do(t, server, http.MethodPost, "/todos", `{"text":"Buy milk"}`))

	// Act
	rr := do(t, server, http.MethodPut, "/todos/"+todo.ID, `{"completed":true}`)

	// Assert
	if rr.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", rr.Code, http.StatusOK)
	}
	updated := decodeTodo(t, rr)
	if updated.ID != todo.ID || updated.Text != "Buy milk" || !updated.Completed {
		t.Errorf("PUT = %+v, want id %s text Buy milk completed true", updated, todo.ID)
	}
}

func TestServer_DeleteThenGet(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, false))
	todo := decodeTodo(t, do(t, server, http.MethodPost, "/todos", `{"text":"Walk dog"}`))

	// Act
	deleted := do(t, server, http.MethodDelete, "/todos/"+todo.ID, "")

	// Assert
	if deleted.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d, want %d", deleted.Code, http.StatusOK)
	}
	if rr := do(t, server, http.MethodGet, "/todos/"+todo.ID, ""); rr.Code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if rr := do(t, server, http.MethodDelete, "/todos/"+todo.ID, ""); rr.Code != http.StatusNotFound {
		t.Errorf("second DELETE status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestServer_DeleteMalformedID(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, false))

	// Act
	rr := do(t, server, http.MethodDelete, "/todos/not-an-id", "")

	// Assert
	if rr.Code != http.StatusBadRequest {
		t.Errorf("DELETE status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestServer_ListShrinksAfterDelete(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(8080, false))
	const n = 4
	var ids []string
	for i := 0; i < n; i++ {
		todo := decodeTodo(t, do(t, server, http.MethodPost, "/todos", `{"text":"task"}`))
		ids = append(ids, todo.ID)
	}

	// Act
	do(t, server, http.MethodDelete, "/todos/"+ids[1], "")
	todos := listTodos(t, server)

	// Assert
	if len(todos) != n-1 {
		t.Fatalf("list length = %d, want %d", len(todos), n-1)
	}
	for _, todo := range todos {
		if todo.ID == ids[1] {
			t.Errorf("deleted todo %s still listed", ids[1])
		}
	}
}

func TestServer_Shutdown(t *testing.T) {
	// Arrange
	server := newTestServer(t, testConfig(18090, false))

	go func() {
		_ = server.Start()
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	// Act
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := server.Shutdown(ctx)

	// Assert
	if err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
