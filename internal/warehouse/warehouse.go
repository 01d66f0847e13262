// Package warehouse is the MySQL data warehouse client: domain queries in,
// collected metrics back out.
package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"sincera-pipeline/internal/storage"
)

// uploadChunkSize bounds the number of rows per INSERT statement
const uploadChunkSize = 500

// Warehouse wraps the warehouse connection pool and query set
type Warehouse struct {
	db      *sqlx.DB
	queries *Queries
}

// Connect opens the warehouse connection pool and verifies it
func Connect(dsn string, queries *Queries) (*Warehouse, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}

	// Batch workload: a handful of sequential queries, no concurrency
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Warehouse{db: db, queries: queries}, nil
}

// NewWithDB wraps an existing connection (used by tests)
func NewWithDB(db *sqlx.DB, queries *Queries) *Warehouse {
	return &Warehouse{db: db, queries: queries}
}

// TrustedDomains runs the trusted source query and returns the raw url column
func (w *Warehouse) TrustedDomains(ctx context.Context) ([]string, error) {
	var urls []string
	if err := w.db.SelectContext(ctx, &urls, w.queries.Trusted.Select); err != nil {
		return nil, fmt.Errorf("trusted domains query: %w", err)
	}
	return urls, nil
}

// CompetitorDomains runs the competitor query and returns domain/network rows
func (w *Warehouse) CompetitorDomains(ctx context.Context) ([]storage.DomainRecord, error) {
	var records []storage.DomainRecord
	if err := w.db.SelectContext(ctx, &records, w.queries.Competitors.Select); err != nil {
		return nil, fmt.Errorf("competitor domains query: %w", err)
	}
	return records, nil
}

// TableName returns the per-month upload table name (da_sincera_data_YYYYMM)
func TableName(now time.Time) string {
	return "da_sincera_data_" + now.Format("200601")
}

// UploadResults replaces the current month's results table with this run's
// result set: drop if exists, create, insert in chunks, then verify the row
// count. Returns the table name written to.
func (w *Warehouse) UploadResults(ctx context.Context, results []storage.FetchResult, now time.Time) (string, error) {
	table := TableName(now)

	logrus.Infof("Uploading %d records to warehouse table %s", len(results), table)

	if _, err := w.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return "", fmt.Errorf("failed to drop table %s: %w", table, err)
	}

	if _, err := w.db.ExecContext(ctx, createTableDDL(table)); err != nil {
		return "", fmt.Errorf("failed to create table %s: %w", table, err)
	}

	for start := 0; start < len(results); start += uploadChunkSize {
		end := start + uploadChunkSize
		if end > len(results) {
			end = len(results)
		}
		if err := w.insertChunk(ctx, table, results[start:end]); err != nil {
			return "", err
		}
	}

	// Verify the upload
	var count int
	if err := w.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM "+table); err != nil {
		return "", fmt.Errorf("failed to verify upload: %w", err)
	}
	if count != len(results) {
		return "", fmt.Errorf("upload verification failed: %d rows in %s, expected %d", count, table, len(results))
	}

	logrus.Infof("Upload complete: %d records in %s", count, table)
	return table, nil
}

func createTableDDL(table string) string {
	return `CREATE TABLE ` + table + ` (
		domain VARCHAR(255) NOT NULL,
		network VARCHAR(64) NOT NULL,
		api_success TINYINT(1) NOT NULL,
		api_error TEXT NULL,
		publisher_id BIGINT NULL,
		name TEXT NULL,
		visit_enabled TINYINT(1) NULL,
		status VARCHAR(64) NULL,
		primary_supply_type VARCHAR(64) NULL,
		pub_description TEXT NULL,
		categories TEXT NULL,
		slug VARCHAR(255) NULL,
		avg_ads_to_content_ratio DOUBLE NULL,
		avg_ads_in_view DOUBLE NULL,
		avg_ad_refresh DOUBLE NULL,
		avg_page_weight DOUBLE NULL,
		avg_cpu DOUBLE NULL,
		total_supply_paths BIGINT NULL,
		reseller_count BIGINT NULL,
		total_unique_gpids BIGINT NULL,
		id_absorption_rate DOUBLE NULL,
		owner_domain VARCHAR(255) NULL,
		updated_at VARCHAR(64) NULL,
		fetched_at DATETIME NOT NULL,
		KEY idx_domain (domain)
	)`
}

// insertChunk writes one multi-row INSERT for a slice of results
func (w *Warehouse) insertChunk(ctx context.Context, table string, chunk []storage.FetchResult) error {
	const cols = 24
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?,", cols), ",") + ")"

	values := make([]string, 0, len(chunk))
	args := make([]interface{}, 0, len(chunk)*cols)
	for _, res := range chunk {
		values = append(values, placeholders)
		args = append(args, uploadArgs(res)...)
	}

	query := "INSERT INTO " + table + ` (
		domain, network, api_success, api_error,
		publisher_id, name, visit_enabled, status, primary_supply_type,
		pub_description, categories, slug,
		avg_ads_to_content_ratio, avg_ads_in_view, avg_ad_refresh,
		avg_page_weight, avg_cpu,
		total_supply_paths, reseller_count, total_unique_gpids,
		id_absorption_rate, owner_domain, updated_at, fetched_at
	) VALUES ` + strings.Join(values, ", ")

	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert results chunk: %w", err)
	}
	return nil
}

// uploadArgs flattens one result into insert arguments; nil pointers map to
// SQL NULLs.
func uploadArgs(res storage.FetchResult) []interface{} {
	m := res.Metrics
	if m == nil {
		m = &storage.PublisherMetrics{}
	}

	var apiError interface{}
	if res.Error != "" {
		apiError = res.Error
	}

	var categories interface{}
	if len(m.Categories) > 0 {
		categories = strings.Join(m.Categories, "|")
	}

	return []interface{}{
		res.Domain, res.Network, res.Success, apiError,
		m.PublisherID, m.Name, m.VisitEnabled, m.Status, m.PrimarySupplyType,
		m.PubDescription, categories, m.Slug,
		m.AvgAdsToContentRatio, m.AvgAdsInView, m.AvgAdRefresh,
		m.AvgPageWeight, m.AvgCPU,
		m.TotalSupplyPaths, m.ResellerCount, m.TotalUniqueGPIDs,
		m.IDAbsorptionRate, m.OwnerDomain, m.UpdatedAt, res.FetchedAt,
	}
}

// Close closes the warehouse connection pool
func (w *Warehouse) Close() error {
	return w.db.Close()
}
