// Package state persists shell state between runs.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidDocument indicates an empty document name.
var ErrInvalidDocument = errors.New("state: invalid document name")

// Position is the page a document was last left on.
type Position struct {
	Document string    `json:"document"`
	Page     int       `json:"page"`
	SavedAt  time.Time `json:"saved_at"`
}

// PositionFileStore persists positions as JSON files under a base directory.
type PositionFileStore struct {
	baseDir string
}

// NewPositionFileStore creates a PositionFileStore that saves positions under baseDir.
func NewPositionFileStore(baseDir string) *PositionFileStore {
	return &PositionFileStore{baseDir: baseDir}
}

// SavePosition writes p, replacing any earlier position for the same document.
func (s *PositionFileStore) SavePosition(p Position) error {
	path, err := s.path(p.Document)
	if err != nil {
		return err
	}
	if p.SavedAt.IsZero() {
		p.SavedAt = time.Now()
	}

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("position: creating directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("position: marshaling: %w", err)
	}

	// Replace atomically via a sibling temp file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("position: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("position: renaming %s: %w", tmp, err)
	}
	return nil
}

// LoadPosition reads the saved position for a document.
// Returns (position, true, nil) if found, (zero, false, nil) if not found.
func (s *PositionFileStore) LoadPosition(document string) (Position, bool, error) {
	path, err := s.path(document)
	if err != nil {
		return Position{}, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Position{}, false, nil
		}
		return Position{}, false, fmt.Errorf("position: reading %s: %w", path, err)
	}

	var p Position
	if err := json.Unmarshal(data, &p); err != nil {
		return Position{}, false, fmt.Errorf("position: parsing %s: %w", path, err)
	}
	// Names are hashed; a mismatch is a collision, not this document.
	if p.Document != document {
		return Position{}, false, nil
	}
	return p, true, nil
}

// RemovePosition deletes the saved position for a document.
func (s *PositionFileStore) RemovePosition(document string) error {
	path, err := s.path(document)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("position: removing %s: %w", path, err)
	}
	return nil
}

// path returns the file for a document. Names are hashed into a name-based
// UUID so any document name maps to a single safe file name.
func (s *PositionFileStore) path(document string) (string, error) {
	if document == "" {
		return "", ErrInvalidDocument
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(document))
	return filepath.Join(s.baseDir, id.String()+".position.json"), nil
}
