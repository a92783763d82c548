// Package universe loads and refreshes the symbol universes that feed the
// category refresh pipeline. A universe is a CSV with a header row, either
// a plain listing with a "Symbol" column or a TWSE listing keyed by the
// 有價證券代號 column.
package universe

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"stockpulse/internal/domain"
)

// TWSE header names for the listed-securities CSV.
const (
	twseSymbolCol   = "有價證券代號"
	twseNameCol     = "有價證券名稱"
	twseIndustryCol = "產業別"
)

// LoadCSV reads a universe CSV and returns its symbol records. The header
// row decides the layout: a TWSE listing is recognized by its 有價證券代號
// column, anything else is read by its "symbol" column (first column when
// no header matches). Extra columns are ignored.
func LoadCSV(path string) ([]domain.SymbolRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening universe CSV %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // exchange exports pad rows unevenly
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading universe CSV %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	symCol, nameCol, indCol := columnIndexes(records[0])

	out := make([]domain.SymbolRecord, 0, len(records)-1)
	for _, row := range records[1:] {
		if symCol >= len(row) {
			continue
		}
		sym := strings.TrimSpace(row[symCol])
		if sym == "" {
			continue
		}
		rec := domain.SymbolRecord{Symbol: strings.ToUpper(sym)}
		if nameCol >= 0 && nameCol < len(row) {
			rec.Name = strings.TrimSpace(row[nameCol])
		}
		if indCol >= 0 && indCol < len(row) {
			rec.Industry = strings.TrimSpace(row[indCol])
		}
		out = append(out, rec)
	}
	return out, nil
}

// columnIndexes maps the header row to (symbol, name, industry) column
// positions. Name and industry may be -1 when the layout lacks them.
func columnIndexes(header []string) (sym, name, industry int) {
	sym, name, industry = 0, -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case twseSymbolCol:
			sym = i
		case twseNameCol:
			name = i
		case twseIndustryCol:
			industry = i
		}
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "symbol", "ticker":
			sym = i
		case "name", "description":
			name = i
		case "industry":
			industry = i
		}
	}
	return sym, name, industry
}

// Symbols extracts the plain ticker list from a set of records.
func Symbols(records []domain.SymbolRecord) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.Symbol
	}
	return out
}

// GroupByIndustry buckets records by their industry name, skipping records
// without one, and returns the industry names sorted for stable output.
func GroupByIndustry(records []domain.SymbolRecord) (map[string][]domain.SymbolRecord, []string) {
	groups := make(map[string][]domain.SymbolRecord)
	for _, rec := range records {
		if rec.Industry == "" {
			continue
		}
		groups[rec.Industry] = append(groups[rec.Industry], rec)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return groups, names
}

// Download fetches a fresh universe CSV from the exchange and replaces the
// file at path. The write goes through a temp file and rename so an aborted
// download never clobbers the previous universe.
func Download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building universe request: %w", err)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading universe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading universe: unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating universe dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating universe file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing universe file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing universe file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing universe file: %w", err)
	}
	return nil
}
