package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/calder-dev/stackstatus/internal/config"
	"github.com/calder-dev/stackstatus/internal/metrics"
	"github.com/calder-dev/stackstatus/internal/probe"
)

// Factories creates the probes the builder runs. Nil fields fall back to
// the real implementations; tests substitute fakes here.
type Factories struct {
	Service func(config.Service) (probe.Probe, error)
	Size    func(config.SizeRule) probe.Probe
	Catalog func(config.DatabaseConfig) probe.Probe
}

func (f Factories) withDefaults() Factories {
	if f.Service == nil {
		f.Service = probe.ForService
	}
	if f.Size == nil {
		f.Size = func(r config.SizeRule) probe.Probe { return probe.NewFileCountProbe(r) }
	}
	if f.Catalog == nil {
		f.Catalog = func(d config.DatabaseConfig) probe.Probe { return probe.NewCatalogProbe(d) }
	}
	return f
}

// Builder runs every configured probe and assembles one Snapshot.
type Builder struct {
	services  []config.Service
	sizes     []config.SizeRule
	database  config.DatabaseConfig
	factories Factories
	logger    *slog.Logger
}

// New creates a Builder for the given config. Pass a zero Factories for
// the real probes and nil logger to use slog.Default.
func New(cfg *config.Config, factories Factories, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		services:  cfg.Services,
		sizes:     cfg.Sizes,
		database:  cfg.Database,
		factories: factories.withDefaults(),
		logger:    logger,
	}
}

// Build runs all probes concurrently, waits for every one to resolve,
// and returns the assembled Snapshot. Build never fails: a probe failure
// degrades only its own field (reachable=false, count=0,
// connected=false) and is logged with its reason. Output ordering always
// follows the configured ordering, not completion order. Total latency
// is bounded by the slowest probe's timeout.
func (b *Builder) Build(ctx context.Context) *Snapshot {
	timer := prometheus.NewTimer(metrics.BuildDuration)
	defer timer.ObserveDuration()

	services := make([]ServiceStatus, len(b.services))
	sizes := make([]SizeMetric, len(b.sizes))
	counts := make([]int, len(b.sizes))
	var database DatabaseMetric

	var wg sync.WaitGroup

	for i, svc := range b.services {
		wg.Add(1)
		go func(i int, svc config.Service) {
			defer wg.Done()
			status := ServiceStatus{Name: svc.Name, CheckedAt: time.Now().UTC()}

			p, err := b.factories.Service(svc)
			if err != nil {
				b.logger.Warn("service probe unavailable", "service", svc.Name, "error", err)
				metrics.ProbeFailures.WithLabelValues(svc.Name).Inc()
				services[i] = status
				return
			}

			r := p.Run(ctx)
			status.CheckedAt = r.CheckedAt.UTC()
			if r.Failed {
				b.logger.Warn("service probe failed", "service", svc.Name, "reason", r.Reason)
				metrics.ProbeFailures.WithLabelValues(svc.Name).Inc()
			} else {
				status.Reachable = r.Reachable
			}
			services[i] = status
		}(i, svc)
	}

	for i, rule := range b.sizes {
		wg.Add(1)
		go func(i int, rule config.SizeRule) {
			defer wg.Done()
			r := b.factories.Size(rule).Run(ctx)
			if r.Failed {
				b.logger.Warn("size probe failed", "label", rule.Label, "reason", r.Reason)
				metrics.ProbeFailures.WithLabelValues(rule.Label).Inc()
				sizes[i] = SizeMetric{Label: rule.Label}
				return
			}
			counts[i] = r.Count
			sizes[i] = SizeMetric{Label: rule.Label, Count: r.Count}
		}(i, rule)
	}

	if b.database.Enabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := b.factories.Catalog(b.database).Run(ctx)
			if r.Failed {
				b.logger.Warn("catalog probe failed", "driver", b.database.Driver, "reason", r.Reason)
				metrics.ProbeFailures.WithLabelValues("database").Inc()
				return
			}
			database = DatabaseMetric{TableCount: r.Count, Connected: true}
		}()
	}

	wg.Wait()

	targets := make([]int, len(b.sizes))
	for i, rule := range b.sizes {
		targets[i] = rule.Target
	}

	snap := &Snapshot{
		GeneratedAt:     time.Now().UTC(),
		Services:        services,
		Sizes:           sizes,
		Database:        database,
		DerivedProgress: Progress(counts, targets),
	}

	metrics.BuildsTotal.Inc()
	b.logger.Info("snapshot built",
		"services", len(services),
		"sizes", len(sizes),
		"progress", snap.DerivedProgress,
	)
	return snap
}
