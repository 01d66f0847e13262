package warehouse

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Queries holds the SQL executed against the warehouse, loaded from a YAML
// file so the queries can be tuned without a rebuild. The trusted query must
// return a `url` column; the competitor query must return `domain` and
// `network` columns.
type Queries struct {
	Trusted struct {
		Select string `yaml:"select"`
	} `yaml:"trusted"`
	Competitors struct {
		Select string `yaml:"select"`
	} `yaml:"competitors"`
}

// LoadQueries reads the query definitions from a YAML file
func LoadQueries(path string) (*Queries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries file: %w", err)
	}

	var q Queries
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("failed to parse queries YAML: %w", err)
	}

	if q.Trusted.Select == "" {
		return nil, fmt.Errorf("queries file is missing trusted.select")
	}
	if q.Competitors.Select == "" {
		return nil, fmt.Errorf("queries file is missing competitors.select")
	}

	return &q, nil
}
