package refresh

import (
	"os"
	"path/filepath"
	"testing"

	"stockpulse/internal/domain"
)

func TestProgressSaveLoad(t *testing.T) {
	store := NewProgressStore(t.TempDir())

	st := &ProgressState{
		Date: "2026-08-28",
		Data: []domain.StockMetadata{
			{Ticker: "AAA", Name: "Alpha", CurrentPrice: 10, AsOfDate: "2026-08-28"},
			{Ticker: "BBB", Name: "Beta", CurrentPrice: 20, AsOfDate: "2026-08-28"},
		},
		LastProcessed: "BBB",
	}
	if err := store.Save("us", st); err != nil {
		t.Fatal(err)
	}

	loaded, ok := store.Load("us", "2026-08-28")
	if !ok {
		t.Fatal("Load should find saved state")
	}
	if len(loaded.Data) != 2 {
		t.Errorf("loaded %d records, want 2", len(loaded.Data))
	}
	if loaded.LastProcessed != "BBB" {
		t.Errorf("LastProcessed = %q, want BBB", loaded.LastProcessed)
	}
	if loaded.Data[0].Ticker != "AAA" {
		t.Errorf("Data[0].Ticker = %q", loaded.Data[0].Ticker)
	}
}

func TestProgressLoadSupersededDate(t *testing.T) {
	store := NewProgressStore(t.TempDir())

	st := &ProgressState{Date: "2026-08-27", LastProcessed: "MMM"}
	if err := store.Save("us", st); err != nil {
		t.Fatal(err)
	}

	// A new calendar date discards the prior state.
	if _, ok := store.Load("us", "2026-08-28"); ok {
		t.Error("Load for a newer date should report absent")
	}
}

func TestProgressLoadMissing(t *testing.T) {
	store := NewProgressStore(t.TempDir())
	if _, ok := store.Load("us", "2026-08-28"); ok {
		t.Error("Load with no file should report absent")
	}
}

func TestProgressLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	store := NewProgressStore(dir)

	path := filepath.Join(dir, "us", "categories", "progress.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := store.Load("us", "2026-08-28"); ok {
		t.Error("corrupt progress file should be treated as absent")
	}
}

func TestProgressSaveIdempotent(t *testing.T) {
	dir := t.TempDir()
	store := NewProgressStore(dir)
	path := filepath.Join(dir, "us", "categories", "progress.json")

	st := &ProgressState{
		Date: "2026-08-28",
		Data: []domain.StockMetadata{{Ticker: "AAA"}, {Ticker: "BBB"}},
	}

	if err := store.Save("us", st); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Save("us", st); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Error("saving the same state twice should produce identical bytes")
	}
}

func TestProgressDatasetsIsolated(t *testing.T) {
	store := NewProgressStore(t.TempDir())

	if err := store.Save("us", &ProgressState{Date: "2026-08-28", LastProcessed: "AAA"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Load("tw", "2026-08-28"); ok {
		t.Error("datasets must not share progress files")
	}
}
