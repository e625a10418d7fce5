package api

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/sed-ethz/hdd-relocate-go/internal/catalog"
	"github.com/sed-ethz/hdd-relocate-go/internal/config"
	"github.com/sed-ethz/hdd-relocate-go/internal/database"
	"github.com/sed-ethz/hdd-relocate-go/internal/orchestrator"
)

func testDeps(t *testing.T) (Deps, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE relocation_runs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			mode            TEXT NOT NULL,
			target_event_id INTEGER,
			status          TEXT NOT NULL,
			started_at      TIMESTAMP NOT NULL,
			finished_at     TIMESTAMP,
			events_relocated INTEGER NOT NULL DEFAULT 0,
			error_message   TEXT
		);
		CREATE TABLE catalog_snapshots (
			run_id INTEGER NOT NULL, event_id INTEGER NOT NULL,
			lat REAL NOT NULL, lon REAL NOT NULL, depth_km REAL NOT NULL,
			origin_time TIMESTAMP NOT NULL, magnitude REAL NOT NULL,
			is_relocated INTEGER NOT NULL DEFAULT 0,
			num_ccp INTEGER NOT NULL DEFAULT 0, num_ccs INTEGER NOT NULL DEFAULT 0,
			num_ctp INTEGER NOT NULL DEFAULT 0, num_cts INTEGER NOT NULL DEFAULT 0,
			rms_residual_cc REAL NOT NULL DEFAULT 0, rms_residual_ct REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, event_id)
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	engine := orchestrator.New(catalog.New(), nil, nil, orchestrator.Config{})
	return Deps{Engine: engine, Runs: database.NewRunsRepository(db)}, db
}

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret"}
}

func TestHealthEndpointReturns200(t *testing.T) {
	deps, _ := testDeps(t)
	r := SetupRouter(testConfig(), deps)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCountersEndpointReturns200(t *testing.T) {
	deps, _ := testDeps(t)
	r := SetupRouter(testConfig(), deps)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/counters", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRelocateCatalogRequiresAuth(t *testing.T) {
	deps, _ := testDeps(t)
	r := SetupRouter(testConfig(), deps)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/relocate/catalog", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d", w.Code)
	}
}

func TestRelocateEventRequiresAuth(t *testing.T) {
	deps, _ := testDeps(t)
	r := SetupRouter(testConfig(), deps)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/relocate/event/1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d", w.Code)
	}
}

func TestRunStatusEndpointRejectsNonNumericID(t *testing.T) {
	deps, _ := testDeps(t)
	r := SetupRouter(testConfig(), deps)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/not-a-number", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non-numeric run id, got %d", w.Code)
	}
}

func TestRunStatusEndpointReturns404ForUnknownRun(t *testing.T) {
	deps, _ := testDeps(t)
	r := SetupRouter(testConfig(), deps)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/999", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown run id, got %d", w.Code)
	}
}

func TestRunStatusEndpointReturnsExistingRun(t *testing.T) {
	deps, _ := testDeps(t)
	runID, err := deps.Runs.StartRun("catalog", nil)
	if err != nil {
		t.Fatalf("unexpected error seeding a run: %v", err)
	}

	r := SetupRouter(testConfig(), deps)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for run id %d, got %d: %s", runID, w.Code, w.Body.String())
	}
}

func TestCORSPreflightReturnsNoContent(t *testing.T) {
	deps, _ := testDeps(t)
	r := SetupRouter(testConfig(), deps)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/counters", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for an OPTIONS preflight request, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected the CORS header to be set on preflight responses")
	}
}
