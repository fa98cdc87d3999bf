package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jward/vex/internal/irritation"
	"github.com/jward/vex/internal/source"
)

// RecordRun inserts run and its irritations in a single transaction and
// sets run.ID. Irritations keep the order they are given in.
func (s *Store) RecordRun(run *Run, irritations []irritation.Irritation) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	run.Problems = len(irritations)
	res, err := tx.Exec(
		`INSERT INTO runs (root, rules_hash, started_at, duration_ms, files_scanned, files_parsed, max_problems, problems)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Root, run.RulesHash, run.StartedAt.UTC(), run.Duration.Milliseconds(),
		run.FilesScanned, run.FilesParsed, run.MaxProblems, run.Problems,
	)
	if err != nil {
		return 0, fmt.Errorf("record run: insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record run: last insert id: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO irritations (run_id, ordinal, path, start_line, start_col, end_line, end_col, message, label)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("record run: prepare: %w", err)
	}
	defer stmt.Close()

	for i, irr := range irritations {
		var path, label sql.NullString
		var sl, sc, el, ec sql.NullInt64
		if at := irr.At; at != nil {
			path = sql.NullString{String: at.Path, Valid: true}
			label = sql.NullString{String: at.Label, Valid: at.Label != ""}
			sl = sql.NullInt64{Int64: int64(at.Location.StartRow), Valid: true}
			sc = sql.NullInt64{Int64: int64(at.Location.StartColumn), Valid: true}
			el = sql.NullInt64{Int64: int64(at.Location.EndRow), Valid: true}
			ec = sql.NullInt64{Int64: int64(at.Location.EndColumn), Valid: true}
		}
		if _, err := stmt.Exec(id, i, path, sl, sc, el, ec, irr.Message, label); err != nil {
			return 0, fmt.Errorf("record run: irritation %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("record run: commit: %w", err)
	}
	run.ID = id
	return id, nil
}

const runColumns = "id, root, rules_hash, started_at, duration_ms, files_scanned, files_parsed, max_problems, problems"

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	r := &Run{}
	var durationMS int64
	if err := row.Scan(&r.ID, &r.Root, &r.RulesHash, &r.StartedAt, &durationMS,
		&r.FilesScanned, &r.FilesParsed, &r.MaxProblems, &r.Problems); err != nil {
		return nil, err
	}
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return r, nil
}

// RunByID returns the run with the given id, or nil if there is none.
func (s *Store) RunByID(id int64) (*Run, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run by id: %w", err)
	}
	return r, nil
}

// Runs returns the most recent runs for root, newest first. A limit of
// zero or less returns every run.
func (s *Store) Runs(root string, limit int) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs WHERE root = ? ORDER BY started_at DESC, id DESC"
	args := []any{root}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Irritations returns the irritations recorded for a run in their
// original order.
func (s *Store) Irritations(runID int64) ([]irritation.Irritation, error) {
	rows, err := s.db.Query(
		`SELECT path, start_line, start_col, end_line, end_col, message, label
		 FROM irritations WHERE run_id = ? ORDER BY ordinal`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("irritations: %w", err)
	}
	defer rows.Close()

	var out []irritation.Irritation
	for rows.Next() {
		var path, label sql.NullString
		var sl, sc, el, ec sql.NullInt64
		var message string
		if err := rows.Scan(&path, &sl, &sc, &el, &ec, &message, &label); err != nil {
			return nil, fmt.Errorf("scan irritation: %w", err)
		}
		if !path.Valid {
			out = append(out, irritation.New(message))
			continue
		}
		loc := source.Location{
			StartRow:    int(sl.Int64),
			StartColumn: int(sc.Int64),
			EndRow:      int(el.Int64),
			EndColumn:   int(ec.Int64),
		}
		out = append(out, irritation.NewAt(message, path.String, loc, label.String, ""))
	}
	return out, rows.Err()
}

// PruneRuns keeps the keep most recent runs of root and deletes the rest
// along with their irritations. It returns how many runs were removed.
func (s *Store) PruneRuns(root string, keep int) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM runs WHERE root = ? AND id NOT IN (
			SELECT id FROM runs WHERE root = ? ORDER BY started_at DESC, id DESC LIMIT ?
		)`, root, root, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
