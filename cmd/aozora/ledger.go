// cmd/aozora/ledger.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Ledger is the durable record of article identifiers that have already been
// published. Storage is a plain text file, one identifier per line. The full
// set is re-read on every pipeline run so the scheduler loop and the
// dashboard never disagree about what has been posted.
type Ledger struct {
	path  string
	mutex sync.Mutex
}

// NewLedger creates a ledger backed by the given file path
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Load reads the full set of posted identifiers. A missing file is a normal
// first-run condition and yields an empty set. Duplicate lines are tolerated.
func (l *Ledger) Load() (map[string]struct{}, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	posted := make(map[string]struct{})

	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return posted, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", l.path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		posted[line] = struct{}{}
	}
	return posted, nil
}

// Record durably appends an identifier. Callers are expected to have checked
// Load first; appending an identifier that is already present is harmless.
func (l *Ledger) Record(id string) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger %s: %w", l.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(id + "\n"); err != nil {
		return fmt.Errorf("failed to append to ledger %s: %w", l.path, err)
	}
	return nil
}

// List returns posted identifiers in file order, for the operator surface
func (l *Ledger) List() ([]string, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", l.path, err)
	}

	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			ids = append(ids, line)
		}
	}
	return ids, nil
}
