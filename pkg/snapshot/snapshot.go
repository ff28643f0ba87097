package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/clusterscope/pkg/events"
	"github.com/cuemby/clusterscope/pkg/log"
	"github.com/cuemby/clusterscope/pkg/metrics"
	"github.com/cuemby/clusterscope/pkg/orchestrator"
	"github.com/cuemby/clusterscope/pkg/storage"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultFreshness is how long a snapshot is reused
	DefaultFreshness = time.Hour

	// DefaultHistoryLimit is the number of snapshots History returns
	DefaultHistoryLimit = 30
)

// ErrNoSnapshot means a cluster has no stored snapshot
var ErrNoSnapshot = errors.New("no snapshot available")

// ClusterRepository finds clusters by name
type ClusterRepository interface {
	GetClusterByName(name string) (*types.Cluster, error)
}

// SnapshotRepository stores snapshot trees
type SnapshotRepository interface {
	FindMostRecentSnapshots(clusterName string, limit int) ([]*types.Snapshot, error)
	SaveSnapshot(snapshot *types.Snapshot) error
}

// ServiceRepository stores service identities
type ServiceRepository interface {
	GetServiceIdentity(clusterID string, service types.ServiceType) (*types.ServiceIdentity, error)
	SaveServiceIdentity(identity *types.ServiceIdentity) error
}

// Checker runs health check passes
type Checker interface {
	PerformCluster(ctx context.Context, cluster *types.Cluster, scope orchestrator.Scope) (*orchestrator.Accumulator, error)
}

// Config wires a Coalescer
type Config struct {
	Clusters  ClusterRepository
	Snapshots SnapshotRepository
	Services  ServiceRepository
	Checker   Checker
	Events    events.Publisher

	// Freshness is the reuse window of a stored snapshot (default: 1 hour)
	Freshness time.Duration

	// HistoryLimit is the default size of History (default: 30)
	HistoryLimit int

	// Now overrides the clock
	Now func() time.Time
}

// Coalescer hands out cluster snapshots, reusing a recent one instead of
// running a new full health check
type Coalescer struct {
	clusters     ClusterRepository
	snapshots    SnapshotRepository
	services     ServiceRepository
	checker      Checker
	events       events.Publisher
	freshness    time.Duration
	historyLimit int
	now          func() time.Time
	logger       zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCoalescer creates a coalescer
func NewCoalescer(cfg Config) *Coalescer {
	if cfg.Freshness <= 0 {
		cfg.Freshness = DefaultFreshness
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Events == nil {
		cfg.Events = events.Discard
	}
	return &Coalescer{
		clusters:     cfg.Clusters,
		snapshots:    cfg.Snapshots,
		services:     cfg.Services,
		checker:      cfg.Checker,
		events:       cfg.Events,
		freshness:    cfg.Freshness,
		historyLimit: cfg.HistoryLimit,
		now:          cfg.Now,
		logger:       log.WithComponent("snapshot"),
		locks:        make(map[string]*sync.Mutex),
	}
}

// clusterLock serializes check-then-act per cluster
func (c *Coalescer) clusterLock(name string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[name]
	if !ok {
		l = &sync.Mutex{}
		c.locks[name] = l
	}
	return l
}

func (c *Coalescer) cluster(name string) (*types.Cluster, error) {
	cluster, err := c.clusters.GetClusterByName(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", orchestrator.ErrClusterNotFound, name)
		}
		return nil, fmt.Errorf("failed to load cluster %s: %w", name, err)
	}
	return cluster, nil
}

// Take returns a snapshot of the cluster no older than the freshness window.
// The stored snapshot is returned when it is fresh; otherwise a full pass
// runs and its result is persisted. A failed pass, or one in which no
// service answered, is logged and yields a nil snapshot with a nil error.
// Persistence errors are returned.
func (c *Coalescer) Take(ctx context.Context, clusterName string) (*types.Snapshot, error) {
	cluster, err := c.cluster(clusterName)
	if err != nil {
		return nil, err
	}
	logger := c.logger.With().Str("cluster", cluster.Name).Logger()

	lock := c.clusterLock(cluster.Name)
	lock.Lock()
	defer lock.Unlock()

	latest, err := c.snapshots.FindMostRecentSnapshots(cluster.Name, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest snapshot of %s: %w", cluster.Name, err)
	}
	if len(latest) > 0 && c.fresh(latest[0]) {
		metrics.SnapshotsTotal.WithLabelValues("reused").Inc()
		c.publish(events.EventSnapshotReused, cluster.Name, latest[0].ID, "snapshot reused")
		logger.Debug().Str("snapshot_id", latest[0].ID).Time("taken_at", latest[0].TakenAt).Msg("Reusing fresh snapshot")
		return latest[0], nil
	}

	acc, err := c.checker.PerformCluster(ctx, cluster, orchestrator.ScopeAll)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err == nil && acc.Len() == 0 {
		// Nothing answered; an empty GOOD snapshot would hide an outage
		err = fmt.Errorf("%w: no service of cluster %s answered", orchestrator.ErrNoResult, cluster.Name)
	}
	if err != nil {
		metrics.SnapshotsTotal.WithLabelValues("failed").Inc()
		c.publish(events.EventSnapshotFailed, cluster.Name, "", err.Error())
		logger.Error().Err(err).Msg("Health check failed, no snapshot taken")
		return nil, nil
	}

	snapshot, err := c.build(cluster, acc)
	if err != nil {
		return nil, err
	}
	if err := c.snapshots.SaveSnapshot(snapshot); err != nil {
		return nil, err
	}

	metrics.SnapshotsTotal.WithLabelValues("created").Inc()
	c.publish(events.EventSnapshotCreated, cluster.Name, snapshot.ID, "snapshot created")
	logger.Info().
		Str("snapshot_id", snapshot.ID).
		Str("status", string(snapshot.Status)).
		Int("services", len(snapshot.Services)).
		Msg("Snapshot created")
	return snapshot, nil
}

// fresh reports whether a snapshot may be reused. A snapshot that was not
// completely written is never reused.
func (c *Coalescer) fresh(s *types.Snapshot) bool {
	return s.Complete && c.now().Sub(s.TakenAt) < c.freshness
}

// build turns a pass into a snapshot tree, creating the identity of every
// service seen for the first time
func (c *Coalescer) build(cluster *types.Cluster, acc *orchestrator.Accumulator) (*types.Snapshot, error) {
	now := c.now().UTC()
	snapshot := &types.Snapshot{
		ID:          uuid.New().String(),
		ClusterID:   cluster.ID,
		ClusterName: cluster.Name,
		TakenAt:     now,
		Status:      acc.Status(),
	}
	if hdfs, ok := acc.Hdfs(); ok {
		snapshot.HdfsUsage = hdfs.Usage
		snapshot.Nodes = hdfs.Nodes
	}
	if yarn, ok := acc.Yarn(); ok {
		snapshot.MemoryUsage = yarn.Memory
	}

	for _, s := range acc.ServiceStatuses() {
		identity, err := c.serviceIdentity(cluster, s.Type, now)
		if err != nil {
			return nil, err
		}
		snapshot.Services = append(snapshot.Services, types.ServiceSnapshot{
			ServiceID:    identity.ID,
			Type:         s.Type,
			Status:       s.Status,
			JobResults:   s.JobResults,
			LogDirectory: s.LogDirectory,
		})
	}
	return snapshot, nil
}

func (c *Coalescer) serviceIdentity(cluster *types.Cluster, service types.ServiceType, now time.Time) (*types.ServiceIdentity, error) {
	identity, err := c.services.GetServiceIdentity(cluster.ID, service)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to read service %s of %s: %w", service, cluster.Name, err)
	}

	identity = &types.ServiceIdentity{
		ID:        uuid.New().String(),
		ClusterID: cluster.ID,
		Type:      service,
		CreatedAt: now,
	}
	if err := c.services.SaveServiceIdentity(identity); err != nil {
		return nil, fmt.Errorf("failed to save service %s of %s: %w", service, cluster.Name, err)
	}
	return identity, nil
}

// Latest returns the current snapshot of a cluster, taking a new one when
// the stored one is stale. When the new pass fails the newest stored
// snapshot is returned, however old.
func (c *Coalescer) Latest(ctx context.Context, clusterName string) (*types.Snapshot, error) {
	snapshot, err := c.Take(ctx, clusterName)
	if err != nil || snapshot != nil {
		return snapshot, err
	}

	latest, err := c.snapshots.FindMostRecentSnapshots(clusterName, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read latest snapshot of %s: %w", clusterName, err)
	}
	if len(latest) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, clusterName)
	}
	return latest[0], nil
}

// History returns up to limit stored snapshots, newest first. A limit of
// zero or less uses the configured history limit.
func (c *Coalescer) History(clusterName string, limit int) ([]*types.Snapshot, error) {
	if _, err := c.cluster(clusterName); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = c.historyLimit
	}
	snapshots, err := c.snapshots.FindMostRecentSnapshots(clusterName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot history of %s: %w", clusterName, err)
	}
	return snapshots, nil
}

func (c *Coalescer) publish(t events.EventType, cluster, snapshotID, message string) {
	ev := &events.Event{Type: t, Cluster: cluster, Message: message}
	if snapshotID != "" {
		ev.Metadata = map[string]string{"snapshot_id": snapshotID}
	}
	c.events.Publish(ev)
}
