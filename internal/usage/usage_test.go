package usage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"newsflash-bot/internal/observability"
	"newsflash-bot/internal/storage/filestore"
)

func openStore(t *testing.T) *filestore.Store {
	t.Helper()
	s, err := filestore.Open(filepath.Join(t.TempDir(), "usage.json"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	return s
}

func TestBudgetSpend(t *testing.T) {
	metrics := observability.NewMetrics()
	b := NewBudget(openStore(t), "apify", 2, metrics)
	day := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return day }

	for i := 0; i < 2; i++ {
		if err := b.Spend(context.Background()); err != nil {
			t.Fatalf("Spend %d error: %v", i, err)
		}
	}
	if err := b.Spend(context.Background()); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("third Spend error = %v, want ErrBudgetExhausted", err)
	}

	day = day.AddDate(0, 0, 1)
	if err := b.Spend(context.Background()); err != nil {
		t.Errorf("Spend on next day error: %v", err)
	}

	stats := metrics.GetStats()
	if stats["budget_spent"].(int64) != 3 || stats["budget_rejected"].(int64) != 1 {
		t.Errorf("stats = %v", stats)
	}
}

func TestTrackerDrainsOnClose(t *testing.T) {
	store := openStore(t)
	tr := NewTracker(store, observability.Nop(), 16)

	tr.Track(1, "avi", "/start")
	tr.Track(2, "noa", "/news tech")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Close(ctx); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	tr.Track(3, "late", "/tv")

	got, err := store.ListInteractions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("recorded %d interactions, want 2", len(got))
	}
	if got[0].Command != "/start" || got[1].Username != "noa" || got[0].ID == "" {
		t.Errorf("interactions = %+v", got)
	}
}

func TestExportXLSX(t *testing.T) {
	store := openStore(t)
	tr := NewTracker(store, observability.Nop(), 4)
	tr.Track(42, "dana", "/download")
	if err := tr.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	data, err := ExportXLSX(context.Background(), store)
	if err != nil {
		t.Fatalf("ExportXLSX error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[0][2] != "Username" || rows[1][1] != "42" || rows[1][3] != "/download" {
		t.Errorf("rows = %v", rows)
	}
}

func TestAuthorized(t *testing.T) {
	tests := []struct {
		given, expected string
		want            bool
	}{
		{"s3cret", "s3cret", true},
		{"wrong", "s3cret", false},
		{"", "", false},
		{"anything", "", false},
	}
	for _, tt := range tests {
		if got := Authorized(tt.given, tt.expected); got != tt.want {
			t.Errorf("Authorized(%q, %q) = %v, want %v", tt.given, tt.expected, got, tt.want)
		}
	}
}
