// Package journal persists risk events to disk as JSON Lines, one event per
// line. Events are handed off through a buffered channel so the session
// worker never blocks on disk.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/watchher/monitoring-server/internal/logger"
	"github.com/watchher/monitoring-server/pkg/types"
)

// Journal appends risk events to a timestamped .jsonl file.
type Journal struct {
	mu           sync.RWMutex
	file         *os.File
	filename     string
	basePath     string
	active       bool
	eventCount   uint64
	bytesWritten uint64
	startTime    time.Time
	eventChan    chan types.RiskEvent
	wg           sync.WaitGroup
}

// NewJournal creates a journal writing into basePath.
func NewJournal(basePath string) *Journal {
	return &Journal{
		basePath:  basePath,
		eventChan: make(chan types.RiskEvent, 256),
	}
}

// Start opens a new journal file and begins accepting events.
func (j *Journal) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.active {
		return fmt.Errorf("journal already active")
	}

	if err := os.MkdirAll(j.basePath, 0o755); err != nil {
		return fmt.Errorf("create journal directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("risk_events_%s.jsonl", timestamp)
	file, err := os.Create(filepath.Join(j.basePath, filename))
	if err != nil {
		return fmt.Errorf("create journal file: %w", err)
	}

	j.file = file
	j.filename = filename
	j.active = true
	j.eventCount = 0
	j.bytesWritten = 0
	j.startTime = time.Now()

	j.wg.Add(1)
	go j.writeEvents()

	logger.Info("Journal", "journal started: %s", filename)
	return nil
}

// Stop drains pending events and closes the file.
func (j *Journal) Stop() error {
	j.mu.Lock()
	if !j.active {
		j.mu.Unlock()
		return fmt.Errorf("journal not active")
	}
	j.active = false
	j.mu.Unlock()

	// Wait for the write goroutine to drain and exit.
	j.wg.Wait()

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file != nil {
		if err := j.file.Sync(); err != nil {
			return fmt.Errorf("sync journal file: %w", err)
		}
		if err := j.file.Close(); err != nil {
			return fmt.Errorf("close journal file: %w", err)
		}
		j.file = nil
	}

	logger.Info("Journal", "journal stopped: %s (%d events)", j.filename, j.eventCount)
	return nil
}

// Record hands an event to the journal without blocking. It reports whether
// the event was accepted; events are dropped when the journal is inactive or
// the buffer is full.
func (j *Journal) Record(event types.RiskEvent) bool {
	j.mu.RLock()
	active := j.active
	j.mu.RUnlock()

	if !active {
		return false
	}

	select {
	case j.eventChan <- event:
		return true
	default:
		return false
	}
}

func (j *Journal) writeEvents() {
	defer j.wg.Done()

	for {
		j.mu.RLock()
		active := j.active
		j.mu.RUnlock()

		if !active {
			for len(j.eventChan) > 0 {
				j.writeEvent(<-j.eventChan)
			}
			return
		}

		select {
		case event := <-j.eventChan:
			j.writeEvent(event)
		case <-time.After(100 * time.Millisecond):
			// Re-check active state periodically.
		}
	}
}

func (j *Journal) writeEvent(event types.RiskEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file == nil {
		return
	}

	line, err := json.Marshal(event)
	if err != nil {
		logger.Error("Journal", "encode event: %v", err)
		return
	}
	line = append(line, '\n')

	n, err := j.file.Write(line)
	if err != nil {
		logger.Error("Journal", "write event: %v", err)
		return
	}

	j.bytesWritten += uint64(n)
	j.eventCount++
}

// Active reports whether the journal is accepting events.
func (j *Journal) Active() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.active
}

// Status returns the current journal status.
func (j *Journal) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var duration time.Duration
	if j.active {
		duration = time.Since(j.startTime)
	}

	return Status{
		Active:       j.active,
		Filename:     j.filename,
		EventCount:   j.eventCount,
		BytesWritten: j.bytesWritten,
		DurationMs:   duration.Milliseconds(),
		StartTime:    j.startTime,
	}
}

// Close stops the journal if it is active.
func (j *Journal) Close() error {
	if j.Active() {
		return j.Stop()
	}
	return nil
}

// Status holds a journal status snapshot.
type Status struct {
	Active       bool      `json:"active"`
	Filename     string    `json:"filename"`
	EventCount   uint64    `json:"event_count"`
	BytesWritten uint64    `json:"bytes_written"`
	DurationMs   int64     `json:"duration_ms"`
	StartTime    time.Time `json:"start_time"`
}
