// Package journal appends build lifecycle events to a line-delimited JSON
// log, one file per process, for audit of what each rebuild saw and skipped.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// EventType defines the type of journal entry
type EventType string

const (
	EventBuildStarted   EventType = "build_started"
	EventBranchFailed   EventType = "branch_failed"
	EventPairFailed     EventType = "pair_failed"
	EventOrphanDropped  EventType = "orphan_dropped"
	EventBuildCompleted EventType = "build_completed"
	EventBuildAborted   EventType = "build_aborted"
)

// Entry represents a single journal entry
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Sequence  int64           `json:"sequence"`
	Type      EventType       `json:"type"`
	Subject   string          `json:"subject,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Journal is an append-only build event log
type Journal struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	sequence int64
	path     string
}

// Open creates a journal file in the specified directory
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	// Timestamp in filename gives per-process rotation
	filename := fmt.Sprintf("varasto-%s.jnl", time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600) // #nosec G304 -- path built from config dir
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &Journal{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
	}, nil
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Close flushes and closes the journal
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.file.Close()
}

// Append adds an entry to the journal
func (j *Journal) Append(eventType EventType, subject string, data interface{}) error {
	return j.append(eventType, subject, data, nil)
}

// AppendError adds an entry carrying an error
func (j *Journal) AppendError(eventType EventType, subject string, data interface{}, cause error) error {
	return j.append(eventType, subject, data, cause)
}

func (j *Journal) append(eventType EventType, subject string, data interface{}, cause error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.sequence++

	entry := Entry{
		Timestamp: time.Now().UTC(),
		Sequence:  j.sequence,
		Type:      eventType,
		Subject:   subject,
	}
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal journal data: %w", err)
		}
		entry.Data = jsonData
	}
	if cause != nil {
		entry.Error = cause.Error()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	if _, err := j.writer.Write(line); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	if err := j.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	return j.writer.Flush()
}

// ReadEntries parses a journal file back into entries. Malformed trailing
// lines from a crashed process are skipped, not fatal.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from Journal.Path
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	var entries []Entry
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
