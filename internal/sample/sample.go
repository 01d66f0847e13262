package sample

import (
	"math/rand"
	"sort"
	"strings"

	"sincera-pipeline/internal/storage"
)

// Normalize converts a raw URL or hostname into a bare domain: lowercased,
// trimmed, protocol and leading www. stripped, path removed.
// Returns "" when nothing usable remains.
func Normalize(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.Index(d, "/"); i >= 0 {
		d = d[:i]
	}
	return d
}

// Build assembles the domain sample from the trusted and competitor sources.
// Trusted records win ties against competitor records sharing a domain, and
// the combined set is deduplicated by first occurrence. Every network except
// exemptNetwork is capped at capPerNetwork via a seeded draw, so identical
// inputs and seed always produce an identical sample.
func Build(trusted, competitors []storage.DomainRecord, capPerNetwork int, exemptNetwork string, seed int64) []storage.DomainRecord {
	seen := make(map[string]bool)
	clean := make([]storage.DomainRecord, 0, len(trusted)+len(competitors))

	for _, rec := range trusted {
		d := Normalize(rec.Domain)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		clean = append(clean, storage.DomainRecord{Domain: d, Network: rec.Network})
	}

	for _, rec := range competitors {
		d := Normalize(rec.Domain)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		clean = append(clean, storage.DomainRecord{Domain: d, Network: rec.Network})
	}

	return capByNetwork(clean, capPerNetwork, exemptNetwork, seed)
}

// TestSubset draws a small per-network subset of an existing sample for
// test-mode runs, with the same seeding rules as Build.
func TestSubset(records []storage.DomainRecord, perNetwork int, seed int64) []storage.DomainRecord {
	return capByNetwork(records, perNetwork, "", seed)
}

// capByNetwork groups records by network and caps each group (except the
// exempt one) with a deterministic pseudo-random draw. Networks are visited
// in sorted order so the draw sequence is stable, and the final output is
// sorted by (network, domain).
func capByNetwork(records []storage.DomainRecord, capPerNetwork int, exemptNetwork string, seed int64) []storage.DomainRecord {
	byNetwork := make(map[string][]storage.DomainRecord)
	var networks []string
	for _, rec := range records {
		if _, ok := byNetwork[rec.Network]; !ok {
			networks = append(networks, rec.Network)
		}
		byNetwork[rec.Network] = append(byNetwork[rec.Network], rec)
	}
	sort.Strings(networks)

	rng := rand.New(rand.NewSource(seed))
	out := make([]storage.DomainRecord, 0, len(records))
	for _, network := range networks {
		group := byNetwork[network]
		if network != exemptNetwork && capPerNetwork > 0 && len(group) > capPerNetwork {
			group = drawSubset(rng, group, capPerNetwork)
		}
		out = append(out, group...)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Network != out[j].Network {
			return out[i].Network < out[j].Network
		}
		return out[i].Domain < out[j].Domain
	})

	return out
}

// drawSubset picks n records from the group without replacement, keeping
// the group's original relative order.
func drawSubset(rng *rand.Rand, group []storage.DomainRecord, n int) []storage.DomainRecord {
	idx := rng.Perm(len(group))[:n]
	sort.Ints(idx)

	out := make([]storage.DomainRecord, 0, n)
	for _, i := range idx {
		out = append(out, group[i])
	}
	return out
}

// NetworkCounts returns per-network record counts for summary logging
func NetworkCounts(records []storage.DomainRecord) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		counts[rec.Network]++
	}
	return counts
}
