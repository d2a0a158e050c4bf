// cmd/aozora/state.go
package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// State represents the persisted runtime counters shown on the dashboard
type State struct {
	StartupTime    time.Time `json:"startupTime"`
	Version        string    `json:"version"`
	RunCount       int       `json:"runCount"`
	PublishedCount int       `json:"publishedCount"`
	ErrorCount     int       `json:"errorCount"`
	LastOutcome    string    `json:"lastOutcome"`
	LastPostID     string    `json:"lastPostId"`
	LastRunTime    time.Time `json:"lastRunTime"`
	LastError      string    `json:"lastError"`
	LastErrorTime  time.Time `json:"lastErrorTime"`
}

// StateStore persists State as JSON with atomic tmp+rename writes
type StateStore struct {
	path  string
	mutex sync.Mutex
	state State
}

// NewStateStore loads existing state from disk, or starts fresh
func NewStateStore(path string) (*StateStore, error) {
	s := &StateStore{
		path: path,
		state: State{
			StartupTime: time.Now(),
			Version:     VERSION,
		},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		var loaded State
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, err
		}
		s.state = loaded
		s.state.StartupTime = time.Now()
		s.state.Version = VERSION
	}
	return s, nil
}

// RecordRun folds one pipeline run into the counters and persists
func (s *StateStore) RecordRun(result RunResult, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.state.RunCount++
	s.state.LastRunTime = time.Now()
	if err != nil {
		s.state.ErrorCount++
		s.state.LastError = err.Error()
		s.state.LastErrorTime = time.Now()
	}
	if result.Outcome != "" {
		s.state.LastOutcome = string(result.Outcome)
	}
	if result.Outcome == OutcomePublished {
		s.state.PublishedCount++
		s.state.LastPostID = result.PostID
	}

	if err := s.save(); err != nil {
		Logger().Error("Failed to save state: %v", err)
	}
}

// Snapshot returns a copy of the current state
func (s *StateStore) Snapshot() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// save writes the state file atomically; callers hold the mutex
func (s *StateStore) save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempFile, s.path)
}
