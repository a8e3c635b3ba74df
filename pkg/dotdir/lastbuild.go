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
	lastBuildFile = "last_build.json"
)

// LastBuild records the most recent successful index build so status can be
// reported without touching the vector store.
type LastBuild struct {
	Collection  string        `json:"collection"`
	CorpusPath  string        `json:"corpus_path,omitempty"`
	VectorStore string        `json:"vector_store"`
	Guidelines  int           `json:"guidelines"`
	Chunks      int           `json:"chunks"`
	Dimensions  int           `json:"dimensions"`
	Duration    time.Duration `json:"duration"`
	BuiltAt     time.Time     `json:"built_at"`
}

// LoadLastBuild reads last_build.json from the target directory.
// Returns nil, nil if no build has been recorded.
func (m *Manager) LoadLastBuild(overrideDir string) (*LastBuild, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, lastBuildFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading last build: %w", err)
	}

	lb := &LastBuild{}
	if err := json.Unmarshal(data, lb); err != nil {
		return nil, fmt.Errorf("parsing last build: %w", err)
	}

	return lb, nil
}

// SaveLastBuild writes lb to last_build.json, creating ~/.wcagrag/ if needed.
func (m *Manager) SaveLastBuild(lb *LastBuild, overrideDir string) error {
	if lb == nil {
		return errors.New("cannot save nil build record")
	}

	dir, err := m.Ensure(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(lb, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling last build: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, lastBuildFile), data, 0o644); err != nil { //nolint:gosec // not secret
		return fmt.Errorf("writing last build: %w", err)
	}

	return nil
}

// ClearLastBuild removes the build record. A missing record is not an error.
func (m *Manager) ClearLastBuild(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil || dir == "" {
		return err
	}

	if err := os.Remove(filepath.Join(dir, lastBuildFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing last build: %w", err)
	}

	return nil
}
