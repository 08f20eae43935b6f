package store

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/uevault/uevault/internal/fields"
	"github.com/uevault/uevault/internal/models"
)

func testCSV(t *testing.T) (*CSVStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assets.csv")
	s, err := OpenCSV(path)
	if err != nil {
		t.Fatalf("OpenCSV: %v", err)
	}
	return s, path
}

func TestCSV_HeaderIsDisplayNames(t *testing.T) {
	s, path := testCSV(t)
	if err := s.Upsert([]*models.AssetRecord{sampleRecord("a1")}); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err != nil {
		t.Fatal(err)
	}

	display := fields.DisplayFields()
	if len(header) != len(display) {
		t.Fatalf("header has %d columns, want %d", len(header), len(display))
	}
	for i, fd := range display {
		if header[i] != fd.Display {
			t.Errorf("column %d = %q, want %q", i, header[i], fd.Display)
		}
	}
}

func TestCSV_Roundtrip(t *testing.T) {
	s, path := testCSV(t)

	rec := sampleRecord("a1")
	rec.Tags = "forest,landscape"
	if err := s.Upsert([]*models.AssetRecord{rec}); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenCSV(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.GetPrior("a1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("record lost across reopen")
	}
	if got.Title != "Asset a1" || got.Price != 19.99 || got.Tags != "forest,landscape" {
		t.Errorf("record = %+v", got)
	}
}

func TestCSV_UpsertReplaces(t *testing.T) {
	s, path := testCSV(t)

	rec := sampleRecord("a1")
	rec.Comment = "bought on sale"
	if err := s.Upsert([]*models.AssetRecord{rec}); err != nil {
		t.Fatal(err)
	}

	// Annotations written to the file come back intact and a replacing
	// upsert rewrites the row without duplicating it.
	reopened, err := OpenCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := reopened.GetPrior("a1")
	if got.Comment != "bought on sale" {
		t.Errorf("Comment = %q after reopen", got.Comment)
	}

	got.Price = 14.99
	if err := reopened.Upsert([]*models.AssetRecord{got}); err != nil {
		t.Fatal(err)
	}
	all, _ := reopened.ReadAll()
	if len(all) != 1 {
		t.Fatalf("got %d rows, want 1", len(all))
	}
	if all["a1"].Price != 14.99 || all["a1"].Comment != "bought on sale" {
		t.Errorf("row = %+v", all["a1"])
	}
}

func TestCSV_AssetIDDedupes(t *testing.T) {
	s, _ := testCSV(t)

	if err := s.Upsert([]*models.AssetRecord{sampleRecord("a1")}); err != nil {
		t.Fatal(err)
	}

	// Same marketplace app coming back under a new catalog id replaces
	// the old row instead of duplicating it.
	renamed := sampleRecord("a1-v2")
	renamed.AssetID = "a1-app"
	if err := s.Upsert([]*models.AssetRecord{renamed}); err != nil {
		t.Fatal(err)
	}

	all, _ := s.ReadAll()
	if len(all) != 1 {
		t.Fatalf("got %d rows, want 1", len(all))
	}
	if _, ok := all["a1-v2"]; !ok {
		t.Errorf("rows = %v", all)
	}
}

func TestCSV_LoadIDFallsBackToAssetID(t *testing.T) {
	s, path := testCSV(t)

	rec := sampleRecord("a1")
	rec.ID = ""
	rec.AssetID = "a1-app"
	if err := s.Upsert([]*models.AssetRecord{rec}); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := reopened.GetPrior("a1-app")
	if got == nil {
		t.Fatal("record without id was not keyed by asset_id")
	}
}

func TestCSV_UpsertDoesNotMutateInput(t *testing.T) {
	s, _ := testCSV(t)

	rec := sampleRecord("")
	rec.AssetID = "a1-app"
	if err := s.Upsert([]*models.AssetRecord{rec}); err != nil {
		t.Fatal(err)
	}

	if rec.ID != "" {
		t.Errorf("caller's record mutated: ID = %q", rec.ID)
	}
	if got, _ := s.GetPrior("a1-app"); got == nil {
		t.Error("record not keyed by asset_id fallback")
	}
}

func TestCSV_LoadSkipsMalformedRow(t *testing.T) {
	s, path := testCSV(t)
	if err := s.Upsert([]*models.AssetRecord{sampleRecord("a1")}); err != nil {
		t.Fatal(err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("short,row\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	reopened, err := OpenCSV(path)
	if err != nil {
		t.Fatalf("malformed row must not abort the load: %v", err)
	}
	all, _ := reopened.ReadAll()
	if len(all) != 1 {
		t.Errorf("got %d records, want the 1 valid row", len(all))
	}
}

func TestCSV_Delete(t *testing.T) {
	s, _ := testCSV(t)

	_ = s.Upsert([]*models.AssetRecord{sampleRecord("a1"), sampleRecord("a2")})
	if err := s.Delete("a1"); err != nil {
		t.Fatal(err)
	}

	if rec, _ := s.GetPrior("a1"); rec != nil {
		t.Error("deleted record still present")
	}
	if rec, _ := s.GetPrior("a2"); rec == nil {
		t.Error("unrelated record removed")
	}

	// Deleting an absent id is a no-op.
	if err := s.Delete("nope"); err != nil {
		t.Errorf("Delete(missing): %v", err)
	}
}

func TestCSV_DeleteAllKeepsManual(t *testing.T) {
	s, _ := testCSV(t)

	manual := sampleRecord("m1")
	manual.AddedManually = true
	manual.Origin = "D:/vault"
	_ = s.Upsert([]*models.AssetRecord{sampleRecord("a1"), manual})

	if err := s.DeleteAll(true); err != nil {
		t.Fatal(err)
	}
	all, _ := s.ReadAll()
	if len(all) != 1 {
		t.Fatalf("got %d records, want only the manual one", len(all))
	}

	if err := s.DeleteAll(false); err != nil {
		t.Fatal(err)
	}
	all, _ = s.ReadAll()
	if len(all) != 0 {
		t.Errorf("got %d records after full clear", len(all))
	}
}

func TestCSV_LastRunSidecar(t *testing.T) {
	s, path := testCSV(t)

	if run, err := s.GetLastRun(); err != nil || run != nil {
		t.Fatalf("fresh store: run=%+v err=%v", run, err)
	}

	run := &models.LastRun{
		ID:          "r1",
		Date:        time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Mode:        models.RunModeFull,
		FilesCount:  3,
		ItemsCount:  120,
		ScrappedIDs: "a1,a2",
	}
	if err := s.SaveLastRun(run); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path + ".lastrun.json"); err != nil {
		t.Errorf("sidecar missing: %v", err)
	}

	got, err := s.GetLastRun()
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "r1" || got.Mode != models.RunModeFull || got.ItemsCount != 120 {
		t.Errorf("run = %+v", got)
	}
	if !got.Date.Equal(run.Date) {
		t.Errorf("Date = %v, want %v", got.Date, run.Date)
	}
}

func TestCSV_Stats(t *testing.T) {
	s, _ := testCSV(t)

	owned := sampleRecord("a1")
	owned.Owned = true
	manual := sampleRecord("a2")
	manual.AddedManually = true
	_ = s.Upsert([]*models.AssetRecord{owned, manual, sampleRecord("a3")})

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalAssets != 3 || stats.Owned != 1 || stats.AddedManually != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.FileSizeBytes == 0 {
		t.Error("file size not reported")
	}
}

func TestCSV_NoTempFileLeftBehind(t *testing.T) {
	s, path := testCSV(t)
	if err := s.Upsert([]*models.AssetRecord{sampleRecord("a1")}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}
