package main

import (
	"context"
	"flag"
	"sort"

	"github.com/sirupsen/logrus"

	"sincera-pipeline/internal/config"
	"sincera-pipeline/internal/sample"
	"sincera-pipeline/internal/storage"
	"sincera-pipeline/internal/version"
	"sincera-pipeline/internal/warehouse"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	flag.Parse()

	// Configure logging
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.Infof("Domain sampler v%s starting...", version.Version)

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if cfg.WarehouseDSN == "" {
		logrus.Fatal("warehouse_dsn is required")
	}

	// Load SQL queries
	queries, err := warehouse.LoadQueries(cfg.QueriesPath)
	if err != nil {
		logrus.Fatalf("Failed to load queries: %v", err)
	}

	// Connect to warehouse
	wh, err := warehouse.Connect(cfg.WarehouseDSN, queries)
	if err != nil {
		logrus.Fatalf("Failed to connect to warehouse: %v", err)
	}
	defer wh.Close()

	logrus.Info("Connected to warehouse")

	ctx := context.Background()

	// Fetch trusted domains
	logrus.Info("Fetching trusted domains...")
	trustedURLs, err := wh.TrustedDomains(ctx)
	if err != nil {
		logrus.Fatalf("Failed to fetch trusted domains: %v", err)
	}
	logrus.Infof("Found %d trusted domains", len(trustedURLs))

	trusted := make([]storage.DomainRecord, 0, len(trustedURLs))
	for _, raw := range trustedURLs {
		trusted = append(trusted, storage.DomainRecord{Domain: raw, Network: cfg.TrustedNetwork})
	}

	// Fetch competitor domains
	logrus.Info("Fetching competitor domains...")
	competitors, err := wh.CompetitorDomains(ctx)
	if err != nil {
		logrus.Fatalf("Failed to fetch competitor domains: %v", err)
	}
	logrus.Infof("Found %d competitor domains", len(competitors))

	// Build the sample: normalize, dedupe with trusted precedence, cap per network
	sampled := sample.Build(trusted, competitors, cfg.SamplePerNetwork, cfg.ExemptNetwork, cfg.SampleSeed)
	logSummary(sampled)

	// Persist the sample for the collector
	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		logrus.Fatalf("Failed to initialize local store: %v", err)
	}
	defer store.Close()

	if err := store.ReplaceSample(sampled); err != nil {
		logrus.Fatalf("Failed to save sample: %v", err)
	}

	logrus.Infof("Sample saved to %s", cfg.DBPath)
	logrus.Info("Next step: run the collector")
}

func logSummary(sampled []storage.DomainRecord) {
	counts := sample.NetworkCounts(sampled)

	networks := make([]string, 0, len(counts))
	for network := range counts {
		networks = append(networks, network)
	}
	sort.Strings(networks)

	logrus.Info("Sample network distribution:")
	for _, network := range networks {
		logrus.Infof("  %s: %d domains", network, counts[network])
	}
	logrus.Infof("Total sample size: %d domains", len(sampled))
}
