/*

This file backs the volatility index snapshot with Postgres, for deployments
where a local snapshot file would not survive the host.

*/

package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/perpvault/pvm/internal/volindex"
)

// PGIndexStore implements volindex.Store on the index_snapshots table. Name
// distinguishes multiple indices sharing one database.
type PGIndexStore struct {
	Name string
}

func (p PGIndexStore) Load() (volindex.Snapshot, error) {
	if DB == nil {
		return volindex.Snapshot{}, fmt.Errorf("database not initialized")
	}

	query := `SELECT snapshot FROM index_snapshots WHERE name = $1;`

	var raw []byte
	err := DB.QueryRow(query, p.Name).Scan(&raw)
	if err == sql.ErrNoRows {
		return volindex.Snapshot{}, volindex.ErrNoSnapshot
	}
	if err != nil {
		return volindex.Snapshot{}, fmt.Errorf("failed to load index snapshot: %w", err)
	}

	var snap volindex.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return volindex.Snapshot{}, fmt.Errorf("failed to decode index snapshot: %w", err)
	}
	return snap, nil
}

func (p PGIndexStore) Save(snap volindex.Snapshot) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode index snapshot: %w", err)
	}

	upsertSQL := `
		INSERT INTO index_snapshots (name, version, snapshot, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE
		SET version = EXCLUDED.version,
		    snapshot = EXCLUDED.snapshot,
		    updated_at = CURRENT_TIMESTAMP;`

	if _, err := DB.Exec(upsertSQL, p.Name, snap.Version, raw); err != nil {
		return fmt.Errorf("failed to save index snapshot: %w", err)
	}
	return nil
}
