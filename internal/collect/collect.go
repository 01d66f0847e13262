package collect

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"sincera-pipeline/internal/storage"
)

// progressEvery is the cadence of progress log lines, in processed domains
const progressEvery = 50

// Fetcher retrieves metrics for a single domain
type Fetcher interface {
	Fetch(domain string) storage.FetchResult
}

// Collector runs the sequential fetch loop over a sample, checkpointing
// every batchSize results so a crash loses at most batchSize-1 of them.
// The loop is strictly single-threaded: the shared rate limiter assumes no
// concurrent request issuance.
type Collector struct {
	fetcher       Fetcher
	batchSize     int
	checkpointDir string
	statsCallback func(succeeded, failed, checkpoints int)
}

// NewCollector creates a collector writing checkpoints under checkpointDir
func NewCollector(fetcher Fetcher, batchSize int, checkpointDir string, statsCallback func(int, int, int)) *Collector {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Collector{
		fetcher:       fetcher,
		batchSize:     batchSize,
		checkpointDir: checkpointDir,
		statsCallback: statsCallback,
	}
}

// Run iterates the sample in order, fetching each domain and tagging the
// result with its network. Returns the full ordered result sequence.
func (c *Collector) Run(sample []storage.DomainRecord) ([]storage.FetchResult, error) {
	if err := os.MkdirAll(c.checkpointDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	total := len(sample)
	results := make([]storage.FetchResult, 0, total)
	succeeded := 0
	failed := 0
	start := time.Now()

	logrus.Infof("Starting collection: %d domains, checkpoint every %d", total, c.batchSize)

	for i, rec := range sample {
		logrus.Infof("[%d/%d] Fetching %s (%s)", i+1, total, rec.Domain, rec.Network)

		result := c.fetcher.Fetch(rec.Domain)
		result.Network = rec.Network
		results = append(results, result)

		if result.Success {
			succeeded++
			if c.statsCallback != nil {
				c.statsCallback(1, 0, 0) // fetchesSucceeded++
			}
		} else {
			failed++
			logrus.Warnf("Fetch failed for %s: %s", rec.Domain, result.Error)
			if c.statsCallback != nil {
				c.statsCallback(0, 1, 0) // fetchesFailed++
			}
		}

		processed := i + 1
		if processed%c.batchSize == 0 {
			batchNum := processed / c.batchSize
			if err := c.writeCheckpoint(results[processed-c.batchSize:], batchNum); err != nil {
				return nil, err
			}
			if c.statsCallback != nil {
				c.statsCallback(0, 0, 1) // checkpointsSaved++
			}
		}

		if processed%progressEvery == 0 {
			logProgress(processed, total, succeeded, start)
		}
	}

	// Persist the final partial batch
	if remainder := total % c.batchSize; remainder != 0 {
		batchNum := total/c.batchSize + 1
		if err := c.writeCheckpoint(results[total-remainder:], batchNum); err != nil {
			return nil, err
		}
		if c.statsCallback != nil {
			c.statsCallback(0, 0, 1) // checkpointsSaved++
		}
	}

	elapsed := time.Since(start)
	logrus.Infof("Collection complete: %d domains in %s", total, elapsed.Round(time.Second))
	if total > 0 {
		logrus.Infof("Succeeded: %d (%.1f%%) | Failed: %d (%.1f%%) | Average rate: %.1f req/min",
			succeeded, pct(succeeded, total),
			failed, pct(failed, total),
			float64(total)/elapsed.Seconds()*60)
	}

	return results, nil
}

// writeCheckpoint persists one batch as a sequentially numbered JSON file
func (c *Collector) writeCheckpoint(batch []storage.FetchResult, batchNum int) error {
	jsonData, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint %d: %w", batchNum, err)
	}

	path := filepath.Join(c.checkpointDir, fmt.Sprintf("batch_%04d.json", batchNum))
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint %d: %w", batchNum, err)
	}

	logrus.Infof("Checkpoint saved: %s (%d results)", path, len(batch))
	return nil
}

// LoadCheckpoint reads back one numbered checkpoint batch
func LoadCheckpoint(checkpointDir string, batchNum int) ([]storage.FetchResult, error) {
	path := filepath.Join(checkpointDir, fmt.Sprintf("batch_%04d.json", batchNum))
	jsonData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %d: %w", batchNum, err)
	}

	var batch []storage.FetchResult
	if err := json.Unmarshal(jsonData, &batch); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint %d: %w", batchNum, err)
	}
	return batch, nil
}

// logProgress reports completion, success rate, throughput and ETA.
// Observational only.
func logProgress(processed, total, succeeded int, start time.Time) {
	elapsed := time.Since(start)
	rate := float64(processed) / elapsed.Seconds() * 60
	var etaMinutes float64
	if rate > 0 {
		etaMinutes = float64(total-processed) / rate
	}

	logrus.Infof("Progress: %d/%d (%.1f%%) | Success rate: %d/%d (%.1f%%) | %.1f req/min | ETA: %.1f min",
		processed, total, pct(processed, total),
		succeeded, processed, pct(succeeded, processed),
		rate, etaMinutes)
}

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
