package probe

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/calder-dev/stackstatus/internal/config"
)

// RedisProbe checks a cache service with a real PING instead of a bare
// TCP dial, so a port held open by something that is not redis does not
// count as reachable.
type RedisProbe struct {
	svc config.Service
}

// NewRedisProbe creates a cache reachability probe for the given service.
func NewRedisProbe(svc config.Service) *RedisProbe {
	return &RedisProbe{svc: svc}
}

func (p *RedisProbe) Run(ctx context.Context) Result {
	start := time.Now()

	client := redis.NewClient(&redis.Options{
		Addr:         p.svc.Addr(),
		Password:     p.svc.Password,
		DB:           p.svc.DB,
		DialTimeout:  p.svc.Timeout.Duration,
		ReadTimeout:  p.svc.Timeout.Duration,
		WriteTimeout: p.svc.Timeout.Duration,
	})
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, p.svc.Timeout.Duration)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if isAddressError(err) {
			return failed(KindReachability, start, "redis ping "+p.svc.Addr()+": "+err.Error())
		}
		// Refused, timed out, or rejected — the cache is not usable.
		return Result{Kind: KindReachability, Reachable: false, CheckedAt: start}
	}
	return Result{Kind: KindReachability, Reachable: true, CheckedAt: start}
}
