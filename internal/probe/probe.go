// Package probe holds one independent, side-effect-free check per signal
// type: TCP reachability, redis reachability, file counting, and database
// catalog introspection. Every probe resolves to a Result — a value or a
// tagged failure — and never lets an error escape its boundary.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/calder-dev/stackstatus/internal/config"
)

// Probe performs a single check. Implementations are read-only and must
// return within their configured timeout.
type Probe interface {
	Run(ctx context.Context) Result
}

// Kind identifies the signal a probe measures.
type Kind string

const (
	KindReachability Kind = "reachability"
	KindFileCount    Kind = "filecount"
	KindCatalog      Kind = "catalog"
)

// Result is the outcome of a single probe run. Failed marks a
// probe-infrastructure error (bad host, permission denied, rejected
// credentials); absence of the probed thing — nothing listening, no
// directory, zero tables — is an ordinary value, not a failure.
type Result struct {
	Kind      Kind
	Reachable bool // reachability probes
	Count     int  // filecount and catalog probes
	Failed    bool
	Reason    string
	CheckedAt time.Time
}

func failed(kind Kind, at time.Time, reason string) Result {
	return Result{Kind: kind, Failed: true, Reason: reason, CheckedAt: at}
}

// ForService returns the reachability probe matching the service type.
func ForService(svc config.Service) (Probe, error) {
	switch svc.Type {
	case "tcp":
		return NewTCPProbe(svc), nil
	case "redis":
		return NewRedisProbe(svc), nil
	default:
		return nil, fmt.Errorf("unknown service type %q", svc.Type)
	}
}
