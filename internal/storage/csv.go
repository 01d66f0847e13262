package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{
	"domain", "network", "api_success", "api_error",
	"publisher_id", "name", "visit_enabled", "status", "primary_supply_type",
	"pub_description", "categories", "slug",
	"avg_ads_to_content_ratio", "avg_ads_in_view", "avg_ad_refresh",
	"avg_page_weight", "avg_cpu",
	"total_supply_paths", "reseller_count", "total_unique_gpids",
	"id_absorption_rate", "owner_domain", "updated_at", "fetched_at",
}

// ExportCSV writes the full result set as a flat CSV for ad-hoc review.
// Absent metric fields become empty cells.
func ExportCSV(results []FetchResult, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)

	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, res := range results {
		if err := w.Write(csvRow(res)); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", res.Domain, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	return nil
}

func csvRow(res FetchResult) []string {
	m := res.Metrics
	if m == nil {
		m = &PublisherMetrics{}
	}

	return []string{
		res.Domain,
		res.Network,
		strconv.FormatBool(res.Success),
		res.Error,
		intCell(m.PublisherID),
		strCell(m.Name),
		boolCell(m.VisitEnabled),
		strCell(m.Status),
		strCell(m.PrimarySupplyType),
		strCell(m.PubDescription),
		strings.Join(m.Categories, "|"),
		strCell(m.Slug),
		floatCell(m.AvgAdsToContentRatio),
		floatCell(m.AvgAdsInView),
		floatCell(m.AvgAdRefresh),
		floatCell(m.AvgPageWeight),
		floatCell(m.AvgCPU),
		intCell(m.TotalSupplyPaths),
		intCell(m.ResellerCount),
		intCell(m.TotalUniqueGPIDs),
		floatCell(m.IDAbsorptionRate),
		strCell(m.OwnerDomain),
		strCell(m.UpdatedAt),
		res.FetchedAt.Format(time.RFC3339),
	}
}

func strCell(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func intCell(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func boolCell(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}
