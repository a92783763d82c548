package refresh

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"stockpulse/internal/domain"
)

// ProgressState is the durable checkpoint of a partially completed refresh.
// Data grows monotonically within a calendar date. LastProcessed is present
// only while a run is incomplete; its absence marks the date as finalized.
type ProgressState struct {
	Date          string                 `json:"date"`
	Data          []domain.StockMetadata `json:"data"`
	LastProcessed string                 `json:"last_processed,omitempty"`
}

// ProgressStore persists ProgressState as progress.json under
// <root>/<dataset>/categories/. Every Save rewrites the whole file, so a
// reader always sees a self-consistent complete-so-far snapshot.
type ProgressStore struct {
	root string
	log  *slog.Logger
}

// NewProgressStore creates a store rooted at the given data directory.
func NewProgressStore(root string) *ProgressStore {
	return &ProgressStore{
		root: root,
		log:  slog.Default().With("component", "progress"),
	}
}

func (s *ProgressStore) path(key string) string {
	return filepath.Join(s.root, key, "categories", "progress.json")
}

// Load returns the persisted state for the dataset if it exists, parses, and
// belongs to the given calendar date. A missing, malformed, or superseded
// (older-date) record is reported as absent rather than an error.
func (s *ProgressStore) Load(key, date string) (*ProgressState, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}

	var st ProgressState
	if err := json.Unmarshal(data, &st); err != nil {
		s.log.Warn("discarding unparseable progress file", "dataset", key, "err", err)
		return nil, false
	}
	if st.Date != date {
		return nil, false
	}
	return &st, true
}

// Save rewrites the dataset's progress file with the full state. The write
// goes through a temp file and rename so a crash mid-save never leaves a
// torn progress.json behind.
func (s *ProgressStore) Save(key string, st *ProgressState) error {
	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating progress dir: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling progress: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing progress: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing progress: %w", err)
	}
	return nil
}
