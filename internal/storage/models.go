package storage

import "time"

// DomainRecord is one sampled domain and the network it was sourced from
type DomainRecord struct {
	Domain  string `db:"domain" json:"domain"`
	Network string `db:"network" json:"network"`
}

// PublisherMetrics holds the publisher quality fields returned by the
// Sincera API. Every field is optional in the response; absence is not an
// error, so everything is nullable.
type PublisherMetrics struct {
	PublisherID       *int64   `json:"publisher_id"`
	Name              *string  `json:"name"`
	VisitEnabled      *bool    `json:"visit_enabled"`
	Status            *string  `json:"status"`
	PrimarySupplyType *string  `json:"primary_supply_type"`
	PubDescription    *string  `json:"pub_description"`
	Categories        []string `json:"categories"`
	Slug              *string  `json:"slug"`

	// Core quality metrics
	AvgAdsToContentRatio *float64 `json:"avg_ads_to_content_ratio"`
	AvgAdsInView         *float64 `json:"avg_ads_in_view"`
	AvgAdRefresh         *float64 `json:"avg_ad_refresh"`
	AvgPageWeight        *float64 `json:"avg_page_weight"`
	AvgCPU               *float64 `json:"avg_cpu"`

	// Supply chain metrics
	TotalSupplyPaths *int64   `json:"total_supply_paths"`
	ResellerCount    *int64   `json:"reseller_count"`
	TotalUniqueGPIDs *int64   `json:"total_unique_gpids"`
	IDAbsorptionRate *float64 `json:"id_absorption_rate"`
	OwnerDomain      *string  `json:"owner_domain"`

	UpdatedAt *string `json:"updated_at"`
}

// FetchResult is the outcome of one API fetch for one domain.
// Created exactly once per domain per run and immutable afterwards.
type FetchResult struct {
	Domain    string            `json:"domain"`
	Network   string            `json:"network"`
	Success   bool              `json:"api_success"`
	Error     string            `json:"api_error,omitempty"`
	Metrics   *PublisherMetrics `json:"metrics,omitempty"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// RunStats tracks collection statistics for export on exit
type RunStats struct {
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	DomainsProcessed  int       `json:"domains_processed"`
	FetchesSucceeded  int       `json:"fetches_succeeded"`
	FetchesFailed     int       `json:"fetches_failed"`
	CheckpointsSaved  int       `json:"checkpoints_saved"`
	TerminationReason string    `json:"termination_reason"`
}
