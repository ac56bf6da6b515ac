/*

This file persists completed run snapshots: one row per finished backtest or
live session, with the serialized summary for the dashboard.

*/

package state

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/perpvault/pvm/internal/types"
)

// SaveRunSnapshot inserts a completed run and returns its snapshot ID.
func SaveRunSnapshot(snapshot types.RunSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	insertSQL := `
		INSERT INTO run_snapshots
			(run_id, run_number, kind, mode, started_at, finished_at, steps, start_nav_usd, final_nav_usd, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING snapshot_id;`

	var id int64
	err := DB.QueryRow(insertSQL,
		snapshot.RunID,
		snapshot.RunNumber,
		snapshot.Kind,
		snapshot.Mode,
		snapshot.StartedAt,
		snapshot.FinishedAt,
		snapshot.Steps,
		snapshot.StartNAVUSD,
		snapshot.FinalNAVUSD,
		snapshot.SummaryJSON,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save run snapshot: %w", err)
	}

	log.Info().
		Int64("snapshotID", id).
		Str("runID", snapshot.RunID).
		Str("kind", snapshot.Kind).
		Msg("Saved run snapshot")
	return id, nil
}

// GetRecentRuns returns the most recent runs, newest first.
func GetRecentRuns(limit int) ([]types.RunSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT run_id, run_number, kind, mode, started_at, finished_at, steps, start_nav_usd, final_nav_usd, summary
		FROM run_snapshots
		ORDER BY created_at DESC
		LIMIT $1;`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent runs: %w", err)
	}
	defer rows.Close()

	var out []types.RunSnapshot
	for rows.Next() {
		var s types.RunSnapshot
		if err := rows.Scan(
			&s.RunID, &s.RunNumber, &s.Kind, &s.Mode,
			&s.StartedAt, &s.FinishedAt, &s.Steps,
			&s.StartNAVUSD, &s.FinalNAVUSD, &s.SummaryJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run snapshot: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading run snapshots: %w", err)
	}
	return out, nil
}

// GetLatestRun returns the newest run, or nil when none exist.
func GetLatestRun() (*types.RunSnapshot, error) {
	runs, err := GetRecentRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
