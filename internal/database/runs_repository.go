package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sed-ethz/hdd-relocate-go/internal/catalog"
)

// RunsRepository persists relocation run metadata and the resulting
// catalog snapshot so a run's outcome can be queried after the process
// that produced it has exited.
type RunsRepository struct {
	db *sql.DB
}

// NewRunsRepository creates a new runs repository.
func NewRunsRepository(db *sql.DB) *RunsRepository {
	return &RunsRepository{db: db}
}

// StartRun records a new run and returns its id.
func (r *RunsRepository) StartRun(mode string, targetEventID *int64) (int64, error) {
	res, err := r.db.Exec(
		`INSERT INTO relocation_runs (mode, target_event_id, status, started_at) VALUES (?, ?, 'running', ?)`,
		mode, targetEventID, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("starting run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun marks a run completed and records how many events it relocated.
func (r *RunsRepository) FinishRun(runID int64, eventsRelocated int) error {
	_, err := r.db.Exec(
		`UPDATE relocation_runs SET status = 'completed', finished_at = ?, events_relocated = ? WHERE id = ?`,
		time.Now().UTC(), eventsRelocated, runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %d: %w", runID, err)
	}
	return nil
}

// FailRun marks a run failed with the given error message.
func (r *RunsRepository) FailRun(runID int64, errMsg string) error {
	_, err := r.db.Exec(
		`UPDATE relocation_runs SET status = 'failed', finished_at = ?, error_message = ? WHERE id = ?`,
		time.Now().UTC(), errMsg, runID,
	)
	if err != nil {
		return fmt.Errorf("failing run %d: %w", runID, err)
	}
	return nil
}

// SaveSnapshot records the post-relocation state of every event in cat
// under runID, for later inspection independent of the in-memory catalog.
func (r *RunsRepository) SaveSnapshot(runID int64, cat *catalog.Catalog) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("opening snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO catalog_snapshots (
			run_id, event_id, lat, lon, depth_km, origin_time, magnitude,
			is_relocated, num_ccp, num_ccs, num_ctp, num_cts,
			rms_residual_cc, rms_residual_ct
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range cat.Events {
		relocated := 0
		if e.Reloc.IsRelocated {
			relocated = 1
		}
		_, err := stmt.Exec(
			runID, e.ID, e.Lat, e.Lon, e.DepthKm, e.Time, e.Magnitude,
			relocated, e.Reloc.NumCCP, e.Reloc.NumCCS, e.Reloc.NumCTP, e.Reloc.NumCTS,
			e.Reloc.RMSResidualCC, e.Reloc.RMSResidualCT,
		)
		if err != nil {
			return fmt.Errorf("inserting snapshot for event %d: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// RunStatus is the queryable lifecycle state of one relocation run.
type RunStatus struct {
	ID              int64
	Mode            string
	TargetEventID   sql.NullInt64
	Status          string
	StartedAt       time.Time
	FinishedAt      sql.NullTime
	EventsRelocated int
	ErrorMessage    sql.NullString
}

// GetRun fetches one run's status by id.
func (r *RunsRepository) GetRun(runID int64) (RunStatus, error) {
	var s RunStatus
	row := r.db.QueryRow(
		`SELECT id, mode, target_event_id, status, started_at, finished_at, events_relocated, error_message
		 FROM relocation_runs WHERE id = ?`, runID,
	)
	err := row.Scan(&s.ID, &s.Mode, &s.TargetEventID, &s.Status, &s.StartedAt, &s.FinishedAt, &s.EventsRelocated, &s.ErrorMessage)
	if err != nil {
		return RunStatus{}, fmt.Errorf("fetching run %d: %w", runID, err)
	}
	return s, nil
}
