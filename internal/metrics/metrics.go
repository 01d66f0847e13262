package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"sincera-pipeline/internal/storage"
)

// Tracker holds and manages run statistics
type Tracker struct {
	mu   sync.Mutex
	data storage.RunStats
}

// NewTracker creates a new stats tracker
func NewTracker() *Tracker {
	return &Tracker{
		data: storage.RunStats{
			StartTime: time.Now(),
		},
	}
}

// RecordFetch records the outcome of one domain fetch
func (t *Tracker) RecordFetch(success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.DomainsProcessed++
	if success {
		t.data.FetchesSucceeded++
	} else {
		t.data.FetchesFailed++
	}
}

// RecordCheckpoint increments the checkpoint counter
func (t *Tracker) RecordCheckpoint() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.CheckpointsSaved++
}

// GetSnapshot returns a copy of current stats
func (t *Tracker) GetSnapshot() storage.RunStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data
}

// WriteToFile exports run stats to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Finalize stats
	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason

	// Marshal to JSON
	jsonData, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}

	return nil
}

// LogProgress prints current stats to console (for periodic updates)
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Domains: %d processed | Fetches: %d succeeded, %d failed | Checkpoints: %d",
		t.data.DomainsProcessed,
		t.data.FetchesSucceeded,
		t.data.FetchesFailed,
		t.data.CheckpointsSaved,
	)
}
