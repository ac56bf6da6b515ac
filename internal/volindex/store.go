/*

This file contains the persistence boundary of the volatility index: a flat
versioned snapshot and an injected Store port, so the calculator itself holds
no file-system or database knowledge. Semantics are load-before-first-use and
save-after-each-update, last write wins.

*/

package volindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/perpvault/pvm/internal/logger"
)

// SnapshotVersion is bumped when the snapshot layout changes.
const SnapshotVersion = 1

// Snapshot is the flat persisted form of the accumulator state.
type Snapshot struct {
	Version      int                `json:"version"`
	LastPrice    map[string]float64 `json:"last_px"`
	EwmaVariance map[string]float64 `json:"ewma_var"`
	EwmaFunding  map[string]float64 `json:"ewma_fund"`
}

// ErrNoSnapshot indicates the store holds no previous state; callers start
// from zeroed accumulators.
var ErrNoSnapshot = errors.New("no index snapshot persisted")

// Store is the persistence port for index state.
type Store interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
}

// Index couples a calculator with its store. Load happens at construction,
// save after every update.
type Index struct {
	calc  *Calculator
	store Store
	log   zerolog.Logger
}

// NewIndex builds an index from a calculator and a store, restoring any
// persisted state. A missing snapshot is not an error.
func NewIndex(calc *Calculator, store Store) (*Index, error) {
	idx := &Index{calc: calc, store: store, log: logger.GetForComponent("vol_index")}
	snap, err := store.Load()
	switch {
	case errors.Is(err, ErrNoSnapshot):
		idx.log.Info().Msg("No persisted index state, starting from zeroed accumulators")
	case err != nil:
		return nil, fmt.Errorf("failed to load index snapshot: %w", err)
	default:
		calc.Restore(snap)
		idx.log.Debug().Msg("Restored index state from snapshot")
	}
	return idx, nil
}

// Update advances the calculator and persists the new state. A save failure
// surfaces as an error but the in-memory accumulators keep the update.
func (i *Index) Update(prices, fundingBps, weights map[string]float64) (float64, error) {
	value := i.calc.Update(prices, fundingBps, weights)
	snap := i.calc.Snapshot()
	snap.Version = SnapshotVersion
	if err := i.store.Save(snap); err != nil {
		return value, fmt.Errorf("failed to persist index snapshot: %w", err)
	}
	return value, nil
}

// Sigmas exposes per-asset EWMA standard deviations.
func (i *Index) Sigmas() map[string]float64 {
	return i.calc.Sigmas()
}

// Composite recomputes the current composite value without advancing state.
func (i *Index) Composite(weights map[string]float64) float64 {
	return i.calc.Composite(weights)
}

// FileStore persists snapshots as a single JSON file.
type FileStore struct {
	Path string
}

// Load reads the snapshot file. A missing file maps to ErrNoSnapshot.
func (f FileStore) Load() (Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, ErrNoSnapshot
		}
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("corrupt index snapshot %s: %w", f.Path, err)
	}
	return snap, nil
}

// Save writes the snapshot file, creating parent directories as needed.
func (f FileStore) Save(snap Snapshot) error {
	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, data, 0o644)
}
