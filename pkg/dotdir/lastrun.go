package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lastRunFile = "last_run.json"
)

// LastRun is the outcome of the most recent successful provider call. The
// terms command reads it with --last so model output can be filed without
// sending another request.
type LastRun struct {
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	ImagePath string    `json:"image_path,omitempty"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
}

// LoadLastRun reads last_run.json. It returns nil, nil when nothing has
// been saved yet.
func (m *Manager) LoadLastRun(overrideDir string) (*LastRun, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, lastRunFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading last run: %w", err)
	}

	run := &LastRun{}
	if err := json.Unmarshal(data, run); err != nil {
		return nil, fmt.Errorf("parsing last run: %w", err)
	}

	return run, nil
}

// SaveLastRun overwrites last_run.json.
func (m *Manager) SaveLastRun(run *LastRun, overrideDir string) error {
	if run == nil {
		return errors.New("cannot save nil last run")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling last run: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, lastRunFile), data, 0o600); err != nil {
		return fmt.Errorf("writing last run: %w", err)
	}

	return nil
}

// ClearLastRun removes last_run.json. A missing file is not an error.
func (m *Manager) ClearLastRun(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, lastRunFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing last run: %w", err)
	}

	return nil
}
