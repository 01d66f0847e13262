package warehouse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeQueriesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queries.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadQueries(t *testing.T) {
	path := writeQueriesFile(t, `
trusted:
  select: SELECT url FROM trusted_sites WHERE active = 1
competitors:
  select: SELECT domain, network FROM competitor_sites
`)

	q, err := LoadQueries(path)

	require.NoError(t, err)
	assert.Equal(t, "SELECT url FROM trusted_sites WHERE active = 1", q.Trusted.Select)
	assert.Equal(t, "SELECT domain, network FROM competitor_sites", q.Competitors.Select)
}

func TestLoadQueriesMissingTrusted(t *testing.T) {
	path := writeQueriesFile(t, `
competitors:
  select: SELECT domain, network FROM competitor_sites
`)

	_, err := LoadQueries(path)
	assert.ErrorContains(t, err, "trusted.select")
}

func TestLoadQueriesMissingCompetitors(t *testing.T) {
	path := writeQueriesFile(t, `
trusted:
  select: SELECT url FROM trusted_sites
`)

	_, err := LoadQueries(path)
	assert.ErrorContains(t, err, "competitors.select")
}

func TestLoadQueriesMissingFile(t *testing.T) {
	_, err := LoadQueries(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
