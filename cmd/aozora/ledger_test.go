package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLedgerLoadMissingFile(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "posted_news.txt"))

	posted, err := l.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posted) != 0 {
		t.Errorf("expected empty set, got %d entries", len(posted))
	}
}

func TestLedgerRecordAndLoad(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "posted_news.txt"))

	if err := l.Record("https://example.com/a"); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if err := l.Record("https://example.com/b"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	posted, err := l.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(posted) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(posted))
	}
	if _, ok := posted["https://example.com/a"]; !ok {
		t.Error("missing first identifier")
	}
}

func TestLedgerToleratesDuplicateLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posted_news.txt")
	content := "https://example.com/a\nhttps://example.com/a\n\nhttps://example.com/b\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLedger(path)
	posted, err := l.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(posted) != 2 {
		t.Errorf("expected duplicates collapsed to 2 entries, got %d", len(posted))
	}
}

func TestLedgerListKeepsFileOrder(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "posted_news.txt"))

	ids := []string{"first", "second", "third"}
	for _, id := range ids {
		if err := l.Record(id); err != nil {
			t.Fatal(err)
		}
	}

	got, err := l.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != len(ids) {
		t.Fatalf("expected %d ids, got %d", len(ids), len(got))
	}
	for i := range ids {
		if got[i] != ids[i] {
			t.Errorf("position %d: expected %q, got %q", i, ids[i], got[i])
		}
	}
}

func TestLedgerListMissingFile(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "posted_news.txt"))

	got, err := l.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no ids, got %v", got)
	}
}
