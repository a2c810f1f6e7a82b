// Package snapshot defines the immutable point-in-time aggregate of all
// probe results and the builder that assembles it.
package snapshot

import (
	"math"
	"time"
)

// ServiceStatus is one service's reachability at snapshot time.
type ServiceStatus struct {
	Name      string    `json:"name"`
	Reachable bool      `json:"reachable"`
	CheckedAt time.Time `json:"checkedAt"`
}

// SizeMetric is one source tree's file count at snapshot time.
type SizeMetric struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DatabaseMetric is the database catalog's state at snapshot time.
// Connected is true iff the catalog probe succeeded, independent of
// whether TableCount is zero.
type DatabaseMetric struct {
	TableCount int  `json:"tableCount"`
	Connected  bool `json:"connected"`
}

// Snapshot is one aggregation of every configured probe. It carries no
// memory of prior snapshots and is never mutated after Build returns it;
// a new cycle produces a new Snapshot that supersedes this one wholesale.
type Snapshot struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	Services    []ServiceStatus `json:"services"`
	Sizes       []SizeMetric    `json:"sizes"`
	Database    DatabaseMetric  `json:"database"`

	// DerivedProgress is a crude linear completion estimate: the ratio
	// of actual to configured target file counts, scaled to 0-100. It
	// is a heuristic over configuration, not a measured test-pass rate.
	DerivedProgress int `json:"derivedProgress"`
}

// Progress computes the completion estimate from actual and target file
// counts: min(100, round(100 * sum(counts) / sum(targets))). It is pure;
// identical inputs always produce the identical value. A non-positive
// target sum yields 0.
func Progress(counts, targets []int) int {
	var actual, target int
	for _, c := range counts {
		actual += c
	}
	for _, tg := range targets {
		target += tg
	}
	if target <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(actual) / float64(target)))
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}
