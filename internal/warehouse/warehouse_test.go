package warehouse

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sincera-pipeline/internal/storage"
)

func newMockWarehouse(t *testing.T) (*Warehouse, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	queries := &Queries{}
	queries.Trusted.Select = "SELECT url FROM trusted_sites"
	queries.Competitors.Select = "SELECT domain, network FROM competitor_sites"

	return NewWithDB(sqlx.NewDb(db, "mysql"), queries), mock
}

func TestTrustedDomains(t *testing.T) {
	wh, mock := newMockWarehouse(t)

	rows := sqlmock.NewRows([]string{"url"}).
		AddRow("https://www.a.com").
		AddRow("b.com")
	mock.ExpectQuery("SELECT url FROM trusted_sites").WillReturnRows(rows)

	urls, err := wh.TrustedDomains(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, []string{"https://www.a.com", "b.com"}, urls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompetitorDomains(t *testing.T) {
	wh, mock := newMockWarehouse(t)

	rows := sqlmock.NewRows([]string{"domain", "network"}).
		AddRow("c.com", "alpha").
		AddRow("d.com", "beta")
	mock.ExpectQuery("SELECT domain, network FROM competitor_sites").WillReturnRows(rows)

	records, err := wh.CompetitorDomains(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, []storage.DomainRecord{
		{Domain: "c.com", Network: "alpha"},
		{Domain: "d.com", Network: "beta"},
	}, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompetitorDomainsQueryError(t *testing.T) {
	wh, mock := newMockWarehouse(t)

	mock.ExpectQuery("SELECT domain, network FROM competitor_sites").
		WillReturnError(assert.AnError)

	_, err := wh.CompetitorDomains(context.Background())
	assert.Error(t, err)
}

func TestTableName(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "da_sincera_data_202608", TableName(now))

	january := time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "da_sincera_data_202701", TableName(january))
}

func sampleResults() []storage.FetchResult {
	name := "Example"
	a2cr := 0.3
	return []storage.FetchResult{
		{
			Domain:  "a.com",
			Network: "internal",
			Success: true,
			Metrics: &storage.PublisherMetrics{
				Name:                 &name,
				AvgAdsToContentRatio: &a2cr,
				Categories:           []string{"News"},
			},
			FetchedAt: time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC),
		},
		{
			Domain:    "b.com",
			Network:   "alpha",
			Success:   false,
			Error:     "domain not found (404)",
			FetchedAt: time.Date(2026, 8, 31, 10, 1, 0, 0, time.UTC),
		},
	}
}

func TestUploadResultsOverwritesMonthlyTable(t *testing.T) {
	wh, mock := newMockWarehouse(t)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("DROP TABLE IF EXISTS da_sincera_data_202608").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE da_sincera_data_202608").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO da_sincera_data_202608").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM da_sincera_data_202608`).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(2))

	table, err := wh.UploadResults(context.Background(), sampleResults(), now)

	assert.NoError(t, err)
	assert.Equal(t, "da_sincera_data_202608", table)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUploadResultsVerificationMismatch(t *testing.T) {
	wh, mock := newMockWarehouse(t)
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("DROP TABLE IF EXISTS da_sincera_data_202608").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE da_sincera_data_202608").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO da_sincera_data_202608").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM da_sincera_data_202608`).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))

	_, err := wh.UploadResults(context.Background(), sampleResults(), now)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "verification failed")
}
