package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store handles all local database operations. The sampler writes the
// domain sample here; the collector reads it back and stores the final
// result set alongside.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store instance, opening/creating the DB and initializing schema
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{db: db}

	// Initialize schema
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sample_domains (
		domain TEXT PRIMARY KEY,
		network TEXT NOT NULL,
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS fetch_results (
		result_id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL,
		network TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT,
		metrics_json TEXT,
		fetched_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sample_position ON sample_domains(position);
	CREATE INDEX IF NOT EXISTS idx_results_domain ON fetch_results(domain);
	`

	_, err := s.db.Exec(schema)
	return err
}

// ReplaceSample overwrites the stored sample with a new one, preserving
// record order via the position column
func (s *Store) ReplaceSample(records []DomainRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sample_domains"); err != nil {
		return fmt.Errorf("failed to clear sample: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO sample_domains (domain, network, position) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.Exec(rec.Domain, rec.Network, i); err != nil {
			return fmt.Errorf("failed to insert sample domain %s: %w", rec.Domain, err)
		}
	}

	return tx.Commit()
}

// LoadSample returns the stored sample in its original order
func (s *Store) LoadSample() ([]DomainRecord, error) {
	rows, err := s.db.Query("SELECT domain, network FROM sample_domains ORDER BY position ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to load sample: %w", err)
	}
	defer rows.Close()

	var records []DomainRecord
	for rows.Next() {
		var rec DomainRecord
		if err := rows.Scan(&rec.Domain, &rec.Network); err != nil {
			return nil, fmt.Errorf("failed to scan sample domain: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sample: %w", err)
	}

	return records, nil
}

// ReplaceResults overwrites the stored result set with the current run.
// Metrics are stored as a JSON blob since every field is optional.
func (s *Store) ReplaceResults(results []FetchResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM fetch_results"); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO fetch_results (domain, network, success, error, metrics_json, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		var metricsJSON *string
		if res.Metrics != nil {
			data, err := json.Marshal(res.Metrics)
			if err != nil {
				return fmt.Errorf("failed to marshal metrics for %s: %w", res.Domain, err)
			}
			str := string(data)
			metricsJSON = &str
		}

		if _, err := stmt.Exec(res.Domain, res.Network, res.Success, res.Error, metricsJSON, res.FetchedAt); err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", res.Domain, err)
		}
	}

	return tx.Commit()
}

// LoadResults returns all stored results in insertion order
func (s *Store) LoadResults() ([]FetchResult, error) {
	rows, err := s.db.Query(`
		SELECT domain, network, success, error, metrics_json, fetched_at
		FROM fetch_results
		ORDER BY result_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	defer rows.Close()

	var results []FetchResult
	for rows.Next() {
		var res FetchResult
		var errMsg sql.NullString
		var metricsJSON sql.NullString
		var fetchedAt time.Time

		if err := rows.Scan(&res.Domain, &res.Network, &res.Success, &errMsg, &metricsJSON, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		res.Error = errMsg.String
		res.FetchedAt = fetchedAt
		if metricsJSON.Valid {
			var m PublisherMetrics
			if err := json.Unmarshal([]byte(metricsJSON.String), &m); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metrics for %s: %w", res.Domain, err)
			}
			res.Metrics = &m
		}

		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

// CountResults returns the number of stored results
func (s *Store) CountResults() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM fetch_results").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
