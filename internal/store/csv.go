package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/uevault/uevault/internal/fields"
	"github.com/uevault/uevault/internal/log"
	"github.com/uevault/uevault/internal/models"
)

// CSVStore is the flat-file Store. The whole file is read into memory on
// open and rewritten on every save. Cells are addressed by header name
// throughout, never by position; user annotations present only in the old
// file survive because callers read the prior row back before persisting.
type CSVStore struct {
	path string

	mu        sync.Mutex
	rows      map[string]*models.AssetRecord // keyed by id
	byAssetID map[string]string              // asset_id -> id
}

// OpenCSV opens (or creates) a flat-file store.
func OpenCSV(path string) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	s := &CSVStore{
		path:      path,
		rows:      make(map[string]*models.AssetRecord),
		byAssetID: make(map[string]string),
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.load(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// load reads the whole file into memory. A malformed row is logged and
// skipped, never aborting the read.
func (s *CSVStore) load() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	header := rows[0]
	for lineNo, row := range rows[1:] {
		if len(row) != len(header) {
			log.Errorf("store: csv row %d: %d cells, want %d - skipped", lineNo+2, len(row), len(header))
			continue
		}
		rec := &models.AssetRecord{}
		for i, display := range header {
			f := fields.GetByDisplay(display)
			if f == nil || f.Set == nil {
				continue
			}
			f.Set(rec, row[i])
		}
		if rec.ID == "" && rec.AssetID == "" {
			log.Errorf("store: csv row %d: no id - skipped", lineNo+2)
			continue
		}
		if rec.ID == "" {
			rec.ID = rec.AssetID
		}
		s.index(rec)
	}

	return nil
}

func (s *CSVStore) index(rec *models.AssetRecord) {
	s.rows[rec.ID] = rec
	if rec.AssetID != "" {
		s.byAssetID[rec.AssetID] = rec.ID
	}
}

// Upsert inserts-or-replaces records keyed by id and rewrites the whole
// file. When a record arrives under a new id but an already stored
// asset_id, the old row is dropped so the asset-id join key never yields
// duplicates.
func (s *CSVStore) Upsert(records []*models.AssetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if rec == nil || (rec.ID == "" && rec.AssetID == "") {
			continue
		}
		cp := *rec
		if cp.ID == "" {
			cp.ID = cp.AssetID
		}
		if cp.AssetID != "" {
			if old, ok := s.byAssetID[cp.AssetID]; ok && old != cp.ID {
				delete(s.rows, old)
			}
		}
		s.index(&cp)
	}

	return s.save()
}

// save rewrites the whole file from memory, via a temp file and rename.
func (s *CSVStore) save() error {
	display := fields.DisplayFields()

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}

	w := csv.NewWriter(f)

	header := make([]string, len(display))
	for i, fd := range display {
		header[i] = fd.Display
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}

	ids := make([]string, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rec := s.rows[id]
		row := make([]string, len(display))
		for i, fd := range display {
			row[i] = fields.CastString(fd.Get(rec))
		}
		if err := w.Write(row); err != nil {
			log.Errorf("store: csv write %s: %v - skipped", id, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}

	return os.Rename(tmp, s.path)
}

// ReadAll returns every record keyed by id.
func (s *CSVStore) ReadAll() (map[string]*models.AssetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*models.AssetRecord, len(s.rows))
	for id, rec := range s.rows {
		cp := *rec
		out[id] = &cp
	}
	return out, nil
}

// GetPrior returns the stored record for id, or nil when absent.
func (s *CSVStore) GetPrior(id string) (*models.AssetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// Delete removes one record and rewrites the file.
func (s *CSVStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rows[id]
	if !ok {
		return nil
	}
	delete(s.rows, id)
	delete(s.byAssetID, rec.AssetID)
	return s.save()
}

// DeleteAll clears the store, optionally keeping manually added records.
func (s *CSVStore) DeleteAll(keepManuallyAdded bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make(map[string]*models.AssetRecord)
	byAssetID := make(map[string]string)
	if keepManuallyAdded {
		for id, rec := range s.rows {
			if rec.AddedManually {
				kept[id] = rec
				if rec.AssetID != "" {
					byAssetID[rec.AssetID] = id
				}
			}
		}
	}
	s.rows = kept
	s.byAssetID = byAssetID
	return s.save()
}

// lastRunPath is the JSON sidecar holding the audit record; a flat file
// has no room for a second table.
func (s *CSVStore) lastRunPath() string {
	return s.path + ".lastrun.json"
}

// SaveLastRun persists the audit summary beside the CSV file.
func (s *CSVStore) SaveLastRun(run *models.LastRun) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("encode last run: %w", err)
	}
	return os.WriteFile(s.lastRunPath(), data, 0644)
}

// GetLastRun returns the most recent audit record, or nil.
func (s *CSVStore) GetLastRun() (*models.LastRun, error) {
	data, err := os.ReadFile(s.lastRunPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var run models.LastRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode last run: %w", err)
	}
	return &run, nil
}

// Stats returns aggregate statistics about the store.
func (s *CSVStore) Stats() (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &Stats{TotalAssets: int64(len(s.rows)), LastUpdated: time.Now()}
	for _, rec := range s.rows {
		if rec.Owned {
			stats.Owned++
		}
		if rec.Obsolete {
			stats.Obsolete++
		}
		if rec.AddedManually {
			stats.AddedManually++
		}
	}
	if info, err := os.Stat(s.path); err == nil {
		stats.FileSizeBytes = info.Size()
	}
	return stats, nil
}

// Close is a no-op; every mutation already rewrote the file.
func (s *CSVStore) Close() error {
	return nil
}
