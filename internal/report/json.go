package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/perpvault/pvm/internal/metrics"
	"github.com/perpvault/pvm/internal/types"
)

// AppendJSONL appends one tick row as a single JSON line to path.
func AppendJSONL(path string, row types.TickRow) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open jsonl: %w", err)
	}
	defer f.Close()

	b, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = f.Write(append(b, '\n'))
	return err
}

// WriteSummaryJSON writes the run summary as indented JSON.
func WriteSummaryJSON(path string, s metrics.Summary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
