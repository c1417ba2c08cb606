package grpc

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"
)

// Check reports whether one backing dependency is reachable.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

func DBCheck(db *gorm.DB) Check {
	return Check{Name: "postgres", Ping: func(ctx context.Context) error {
		return db.WithContext(ctx).Exec("SELECT 1").Error
	}}
}

func RedisCheck(cli *redis.Client) Check {
	return Check{Name: "redis", Ping: func(ctx context.Context) error {
		return cli.Ping(ctx).Err()
	}}
}

// HealthProbe keeps the standard health service in sync with the store
// and cache. The overall ("") and per-service statuses move together.
type HealthProbe struct {
	srv     *health.Server
	service string
	checks  []Check
	timeout time.Duration
	log     *zap.Logger
}

func NewHealthProbe(srv *health.Server, service string, log *zap.Logger, checks ...Check) *HealthProbe {
	return &HealthProbe{
		srv:     srv,
		service: service,
		checks:  checks,
		timeout: 2 * time.Second,
		log:     log,
	}
}

// Probe runs every check once and publishes the result.
func (p *HealthProbe) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	serving := true
	for _, c := range p.checks {
		if err := c.Ping(ctx); err != nil {
			p.log.Warn("health check failed", zap.String("dependency", c.Name), zap.Error(err))
			serving = false
		}
	}

	st := healthpb.HealthCheckResponse_SERVING
	if !serving {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	p.srv.SetServingStatus("", st)
	p.srv.SetServingStatus(p.service, st)
	return serving
}

// Run probes immediately and then on every tick until ctx is done.
func (p *HealthProbe) Run(ctx context.Context, interval time.Duration) {
	p.Probe(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.srv.Shutdown()
			return
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}
