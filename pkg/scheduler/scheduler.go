package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/clusterscope/pkg/log"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/rs/zerolog"
)

// Taker takes a snapshot of a cluster, reusing a fresh one when possible
type Taker interface {
	Take(ctx context.Context, clusterName string) (*types.Snapshot, error)
}

// ClusterLister lists the monitored clusters
type ClusterLister interface {
	ListClusters() ([]*types.Cluster, error)
}

// Scheduler periodically takes snapshots of every known cluster
type Scheduler struct {
	taker    Taker
	clusters ClusterLister
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	doneCh chan struct{}
}

// NewScheduler creates a new scheduler
func NewScheduler(taker Taker, clusters ClusterLister, interval time.Duration) *Scheduler {
	return &Scheduler{
		taker:    taker,
		clusters: clusters,
		interval: interval,
		logger:   log.WithComponent("scheduler"),
	}
}

// Start begins the scheduler loop. The first round runs immediately.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.doneCh = make(chan struct{})
	go s.run(ctx, s.doneCh)
}

// Stop stops the scheduler and waits for the current round to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.doneCh
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SnapshotAll(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Snapshot round failed")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// SnapshotAll takes a snapshot of every cluster in turn and returns how many
// clusters have a snapshot afterwards. A failure on one cluster does not stop
// the round.
func (s *Scheduler) SnapshotAll(ctx context.Context) (int, error) {
	clusters, err := s.clusters.ListClusters()
	if err != nil {
		return 0, fmt.Errorf("failed to list clusters: %w", err)
	}

	taken := 0
	for _, cluster := range clusters {
		if ctx.Err() != nil {
			return taken, ctx.Err()
		}

		snapshot, err := s.taker.Take(ctx, cluster.Name)
		if err != nil {
			s.logger.Error().Err(err).Str("cluster", cluster.Name).Msg("Failed to take snapshot")
			continue
		}
		if snapshot != nil {
			taken++
		}
	}

	s.logger.Debug().Int("clusters", len(clusters)).Int("snapshots", taken).Msg("Snapshot round completed")
	return taken, nil
}
