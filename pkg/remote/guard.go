package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/clusterscope/pkg/log"
	"github.com/cuemby/clusterscope/pkg/metrics"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// GuardConfig bounds remote commands sent to a cluster
type GuardConfig struct {
	// Timeout is the maximum duration of one command (0 = unbounded)
	Timeout time.Duration

	// RatePerSecond and Burst limit how fast commands reach one cluster
	// (RatePerSecond <= 0 disables limiting)
	RatePerSecond float64
	Burst         int
}

// Guard wraps an executor with a per-command timeout, a per-cluster rate
// limiter and metrics. Clusters under test are untrusted infrastructure, so
// every command is bounded.
type Guard struct {
	next   Executor
	config GuardConfig
	logger zerolog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewGuard wraps next
func NewGuard(next Executor, config GuardConfig) *Guard {
	return &Guard{
		next:     next,
		config:   config,
		logger:   log.WithComponent("remote"),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Execute runs the command through the wrapped executor
func (g *Guard) Execute(ctx context.Context, cluster *types.Cluster, command string) (Result, error) {
	if err := g.wait(ctx, cluster.Name); err != nil {
		metrics.RemoteCommandsTotal.WithLabelValues("rate_limited").Inc()
		return Result{}, fmt.Errorf("%w: waiting for rate limiter: %v", ErrTimeout, err)
	}

	execCtx := ctx
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	timer := metrics.NewTimer()
	result, err := g.next.Execute(execCtx, cluster, command)
	timer.ObserveDuration(metrics.RemoteCommandDuration)

	if err == nil && execCtx.Err() != nil {
		err = execCtx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			err = fmt.Errorf("%w after %s: %v", ErrTimeout, g.config.Timeout, err)
		}
		metrics.RemoteCommandsTotal.WithLabelValues(resultLabel(err)).Inc()
		g.logger.Debug().
			Err(err).
			Str("cluster", cluster.Name).
			Dur("duration", timer.Duration()).
			Msg("remote command failed")
		return result, err
	}

	metrics.RemoteCommandsTotal.WithLabelValues("ok").Inc()
	g.logger.Debug().
		Str("cluster", cluster.Name).
		Dur("duration", timer.Duration()).
		Int("exit_code", result.ExitCode).
		Msg("remote command finished")
	return result, nil
}

func (g *Guard) wait(ctx context.Context, cluster string) error {
	if g.config.RatePerSecond <= 0 {
		return nil
	}

	g.mu.Lock()
	limiter, exists := g.limiters[cluster]
	if !exists {
		burst := g.config.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(g.config.RatePerSecond), burst)
		g.limiters[cluster] = limiter
	}
	g.mu.Unlock()

	return limiter.Wait(ctx)
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrAuthentication):
		return "auth_error"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "transport_error"
	}
}
