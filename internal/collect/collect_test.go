package collect

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sincera-pipeline/internal/storage"
)

type stubFetcher struct {
	calls []string
	fail  map[string]bool
}

func (s *stubFetcher) Fetch(domain string) storage.FetchResult {
	s.calls = append(s.calls, domain)
	if s.fail[domain] {
		return storage.FetchResult{Domain: domain, Error: "boom", FetchedAt: time.Now()}
	}
	return storage.FetchResult{Domain: domain, Success: true, FetchedAt: time.Now()}
}

func makeSample(n int) []storage.DomainRecord {
	records := make([]storage.DomainRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, storage.DomainRecord{
			Domain:  fmt.Sprintf("site-%02d.com", i),
			Network: "net-a",
		})
	}
	return records
}

func TestRunCheckpointsEveryBatch(t *testing.T) {
	dir := t.TempDir()
	fetcher := &stubFetcher{}
	collector := NewCollector(fetcher, 3, dir, nil)

	sample := makeSample(7)
	results, err := collector.Run(sample)
	require.NoError(t, err)
	require.Len(t, results, 7)

	// ceil(7/3) = 3 batches, the last one partial
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// Concatenating checkpoints in order reproduces the full result sequence
	var replayed []storage.FetchResult
	for batchNum := 1; batchNum <= 3; batchNum++ {
		batch, err := LoadCheckpoint(dir, batchNum)
		require.NoError(t, err)
		replayed = append(replayed, batch...)
	}

	require.Len(t, replayed, 7)
	for i := range results {
		assert.Equal(t, results[i].Domain, replayed[i].Domain)
		assert.Equal(t, results[i].Success, replayed[i].Success)
	}

	// Batch sizes: 3, 3, 1
	first, _ := LoadCheckpoint(dir, 1)
	last, _ := LoadCheckpoint(dir, 3)
	assert.Len(t, first, 3)
	assert.Len(t, last, 1)
}

func TestRunExactBatchMultiple(t *testing.T) {
	dir := t.TempDir()
	collector := NewCollector(&stubFetcher{}, 2, dir, nil)

	results, err := collector.Run(makeSample(4))
	require.NoError(t, err)
	assert.Len(t, results, 4)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no extra partial batch when total divides evenly")

	_, err = os.Stat(filepath.Join(dir, "batch_0003.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunTagsResultsWithNetwork(t *testing.T) {
	dir := t.TempDir()
	fetcher := &stubFetcher{fail: map[string]bool{"b.com": true}}
	collector := NewCollector(fetcher, 10, dir, nil)

	sample := []storage.DomainRecord{
		{Domain: "a.com", Network: "internal"},
		{Domain: "b.com", Network: "competitor"},
	}

	results, err := collector.Run(sample)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, []string{"a.com", "b.com"}, fetcher.calls, "sample order preserved")
	assert.Equal(t, "internal", results[0].Network)
	assert.True(t, results[0].Success)
	assert.Equal(t, "competitor", results[1].Network)
	assert.False(t, results[1].Success)
	assert.Equal(t, "boom", results[1].Error)
}

func TestRunStatsCallback(t *testing.T) {
	dir := t.TempDir()
	fetcher := &stubFetcher{fail: map[string]bool{"site-01.com": true, "site-04.com": true}}

	var succeeded, failed, checkpoints int
	callback := func(s, f, c int) {
		succeeded += s
		failed += f
		checkpoints += c
	}

	collector := NewCollector(fetcher, 2, dir, callback)
	_, err := collector.Run(makeSample(5))
	require.NoError(t, err)

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 2, failed)
	assert.Equal(t, 3, checkpoints, "ceil(5/2) checkpoint batches")
}

func TestRunEmptySample(t *testing.T) {
	dir := t.TempDir()
	collector := NewCollector(&stubFetcher{}, 3, dir, nil)

	results, err := collector.Run(nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
