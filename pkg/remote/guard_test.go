package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var prodA = &types.Cluster{Name: "prod-a", Vendor: types.VendorCloudera, Host: "127.0.0.1"}

func TestGuardPassesThroughResult(t *testing.T) {
	next := ExecutorFunc(func(ctx context.Context, c *types.Cluster, cmd string) (Result, error) {
		return Result{Stdout: "Deleted " + cmd, ExitCode: 1}, nil
	})
	g := NewGuard(next, GuardConfig{Timeout: time.Second})

	res, err := g.Execute(context.Background(), prodA, "/tmp/x")
	require.NoError(t, err)
	assert.Equal(t, "Deleted /tmp/x", res.Stdout)
	assert.Equal(t, 1, res.ExitCode)
}

func TestGuardTimesOutSlowCommands(t *testing.T) {
	next := ExecutorFunc(func(ctx context.Context, c *types.Cluster, cmd string) (Result, error) {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return Result{Stdout: "late"}, nil
		}
	})
	g := NewGuard(next, GuardConfig{Timeout: 20 * time.Millisecond})

	start := time.Now()
	_, err := g.Execute(context.Background(), prodA, "yarn jar x.jar pi 5 10")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGuardKeepsAuthenticationErrors(t *testing.T) {
	next := ExecutorFunc(func(ctx context.Context, c *types.Cluster, cmd string) (Result, error) {
		return Result{}, ErrAuthentication
	})
	g := NewGuard(next, GuardConfig{})

	_, err := g.Execute(context.Background(), prodA, "ls")
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, "auth_error", resultLabel(err))
}

func TestGuardRateLimitsPerCluster(t *testing.T) {
	next := ExecutorFunc(func(ctx context.Context, c *types.Cluster, cmd string) (Result, error) {
		return Result{}, nil
	})
	g := NewGuard(next, GuardConfig{RatePerSecond: 1, Burst: 1})

	_, err := g.Execute(context.Background(), prodA, "ls")
	require.NoError(t, err)

	// A different cluster has its own budget
	_, err = g.Execute(context.Background(), &types.Cluster{Name: "prod-b"}, "ls")
	require.NoError(t, err)

	// The same cluster must wait about one second, longer than the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = g.Execute(ctx, prodA, "ls")
	assert.ErrorIs(t, err, ErrTimeout)
}
