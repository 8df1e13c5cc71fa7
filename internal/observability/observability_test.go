package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, "info").With("request_id", "abc")

	log.Debug("hidden")
	log.Info("fetched", "source", "ynet", "items", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record written at info level: %q", out)
	}
	for _, want := range []string{"fetched", "source=ynet", "items=3", "request_id=abc"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	log := NewLogger(LoggerOptions{Path: path, Level: "debug", MaxSizeMB: 1})

	log.Debug("to file")
	if err := log.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file content = %q", data)
	}
}

func TestMetricsStats(t *testing.T) {
	m := NewMetrics()

	m.IncrementCategoryRequests("sports")
	m.RecordSuccess("sport5", 3, 120*time.Millisecond)
	m.RecordFailure("sport1", "extracting: not found", 50*time.Millisecond)
	m.RecordSuccess("sport5", 2, 80*time.Millisecond)
	m.IncrementBudgetSpent()

	stats := m.GetStats()
	if stats["budget_spent"].(int64) != 1 {
		t.Errorf("budget_spent = %v", stats["budget_spent"])
	}

	sources := stats["sources"].(map[string]interface{})
	sport5 := sources["sport5"].(map[string]interface{})
	if sport5["successes"].(int64) != 2 || sport5["items_total"].(int64) != 5 {
		t.Errorf("sport5 stats = %v", sport5)
	}
	sport1 := sources["sport1"].(map[string]interface{})
	if sport1["last_error"] != "extracting: not found" {
		t.Errorf("sport1 last_error = %v", sport1["last_error"])
	}

	path := filepath.Join(t.TempDir(), "metrics.json")
	if err := m.Dump(path); err != nil {
		t.Fatalf("Dump error: %v", err)
	}
	if data, _ := os.ReadFile(path); !bytes.Contains(data, []byte(`"sport5"`)) {
		t.Errorf("dump missing sport5: %s", data)
	}
}
