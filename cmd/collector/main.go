package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"sincera-pipeline/internal/collect"
	"sincera-pipeline/internal/config"
	"sincera-pipeline/internal/metrics"
	"sincera-pipeline/internal/sample"
	"sincera-pipeline/internal/sincera"
	"sincera-pipeline/internal/storage"
	"sincera-pipeline/internal/version"
	"sincera-pipeline/internal/warehouse"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	testMode := flag.Bool("test", false, "run on a small test subset per network")
	fullMode := flag.Bool("full", false, "run on the full sample")
	noUpload := flag.Bool("no-upload", false, "skip the warehouse upload step")
	flag.Parse()

	// Configure logging
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.Infof("Metrics collector v%s starting...", version.Version)

	if *testMode && *fullMode {
		logrus.Fatal("Cannot use both -test and -full")
	}
	if !*testMode && !*fullMode {
		logrus.Warn("No mode selected, defaulting to test mode (use -full for a full run)")
		*testMode = true
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if cfg.APIKey == "" {
		logrus.Fatal("API key is required (set api_key or SINCERA_API_KEY)")
	}
	if !*noUpload && cfg.WarehouseDSN == "" {
		logrus.Fatal("warehouse_dsn is required unless -no-upload is set")
	}

	// Load the sample produced by the sampler
	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		logrus.Fatalf("Failed to open local store: %v", err)
	}
	defer store.Close()

	sampled, err := store.LoadSample()
	if err != nil {
		logrus.Fatalf("Failed to load sample: %v", err)
	}
	if len(sampled) == 0 {
		logrus.Fatal("No sample found, run the sampler first")
	}
	logrus.Infof("Loaded %d domains from sample", len(sampled))

	if *testMode {
		sampled = sample.TestSubset(sampled, cfg.TestPerNetwork, cfg.SampleSeed)
		logrus.Infof("Test mode: using %d domains (%d per network)", len(sampled), cfg.TestPerNetwork)
	}

	estimate := float64(len(sampled)) / float64(cfg.RequestsPerMinute)
	logrus.Infof("Estimated time: %.1f minutes", estimate)

	// Wire the run: tracker, rate limiter, API client, collection loop
	tracker := metrics.NewTracker()

	statsCallback := func(succeeded, failed, checkpoints int) {
		if succeeded > 0 {
			tracker.RecordFetch(true)
		}
		if failed > 0 {
			tracker.RecordFetch(false)
		}
		if checkpoints > 0 {
			tracker.RecordCheckpoint()
		}
	}

	limiter := sincera.NewRateLimiter(cfg.RequestsPerMinute, cfg.RequestsPerDay)
	client := sincera.NewClient(
		cfg.APIBaseURL,
		cfg.APIKey,
		time.Duration(cfg.RequestTimeoutSec)*time.Second,
		cfg.MaxRetries,
		limiter,
	)
	collector := collect.NewCollector(client, cfg.BatchSize, cfg.CheckpointDir, statsCallback)

	// On SIGINT/SIGTERM, record the run stats and exit. Checkpoints already
	// written stay on disk; only the unsaved tail is lost.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logrus.Warnf("Received signal %v, aborting run", sig)
		if err := tracker.WriteToFile(cfg.MetricsPath, "signal"); err != nil {
			logrus.Errorf("Failed to write run stats: %v", err)
		}
		os.Exit(1)
	}()

	// Run the collection loop
	results, err := collector.Run(sampled)
	if err != nil {
		logrus.Fatalf("Collection failed: %v", err)
	}

	// Persist the final dataset locally
	if err := store.ReplaceResults(results); err != nil {
		logrus.Fatalf("Failed to save results: %v", err)
	}
	logrus.Infof("Final dataset saved to %s", cfg.DBPath)

	if err := storage.ExportCSV(results, cfg.ResultsCSVPath); err != nil {
		logrus.Errorf("Failed to export CSV: %v", err)
	} else {
		logrus.Infof("CSV exported to %s", cfg.ResultsCSVPath)
	}

	// Upload to the warehouse unless skipped
	if *noUpload {
		logrus.Info("Skipping warehouse upload (-no-upload)")
	} else {
		queries, err := warehouse.LoadQueries(cfg.QueriesPath)
		if err != nil {
			logrus.Fatalf("Failed to load queries: %v", err)
		}
		wh, err := warehouse.Connect(cfg.WarehouseDSN, queries)
		if err != nil {
			logrus.Fatalf("Failed to connect to warehouse: %v", err)
		}
		defer wh.Close()

		table, err := wh.UploadResults(context.Background(), results, time.Now())
		if err != nil {
			logrus.Fatalf("Warehouse upload failed: %v", err)
		}
		logrus.Infof("Results uploaded to warehouse table %s", table)
	}

	// Final stats
	if err := tracker.WriteToFile(cfg.MetricsPath, "completed"); err != nil {
		logrus.Errorf("Failed to write run stats: %v", err)
	} else {
		logrus.Infof("Run stats written to %s", cfg.MetricsPath)
	}

	logrus.Info("Final stats: " + tracker.LogProgress())
	logrus.Info("Collection run complete")
}
