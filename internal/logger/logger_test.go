package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(WARN, &buf, false)

	l.Debug("Test", "hidden")
	l.Info("Test", "hidden")
	l.Warn("Test", "shown warn")
	l.Error("Test", "shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("low-level messages leaked: %q", out)
	}
	if !strings.Contains(out, "shown warn") || !strings.Contains(out, "shown error") {
		t.Fatalf("expected warn and error output, got: %q", out)
	}
}

func TestModuleTag(t *testing.T) {
	var buf bytes.Buffer
	l := New(INFO, &buf, false)
	l.Info("Pipeline", "frame %d", 7)

	if !strings.Contains(buf.String(), "[INFO] [Pipeline] frame 7") {
		t.Fatalf("unexpected format: %q", buf.String())
	}
}

func TestTailRetainsRecentEntries(t *testing.T) {
	l := New(INFO, &bytes.Buffer{}, false)
	for i := 0; i < 5; i++ {
		l.Info("Test", "entry %d", i)
	}

	entries := l.Tail(3)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "entry 2" || entries[2].Message != "entry 4" {
		t.Fatalf("unexpected tail order: %+v", entries)
	}
	if entries[0].Level != "INFO" || entries[0].Module != "Test" {
		t.Fatalf("unexpected entry metadata: %+v", entries[0])
	}
}

func TestTailEvictsOldest(t *testing.T) {
	l := New(INFO, &bytes.Buffer{}, false)
	for i := 0; i < DefaultTailSize+10; i++ {
		l.Info("Test", "entry %d", i)
	}

	entries := l.Tail(0)
	if len(entries) != DefaultTailSize {
		t.Fatalf("tail exceeded its bound: %d", len(entries))
	}
	if entries[0].Message != "entry 10" {
		t.Fatalf("oldest entry not evicted, got %q", entries[0].Message)
	}
}

func TestTailExcludesFilteredLevels(t *testing.T) {
	l := New(WARN, &bytes.Buffer{}, false)
	l.Info("Test", "filtered")
	l.Warn("Test", "kept")

	entries := l.Tail(0)
	if len(entries) != 1 || entries[0].Message != "kept" {
		t.Fatalf("tail should match log filtering: %+v", entries)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug": DEBUG, "INFO": INFO, "warning": WARN, "ERROR": ERROR, "none": SILENT,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for invalid level")
	}
}
