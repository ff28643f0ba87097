package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cuemby/clusterscope/pkg/action"
	"github.com/cuemby/clusterscope/pkg/cache"
	"github.com/cuemby/clusterscope/pkg/config"
	"github.com/cuemby/clusterscope/pkg/events"
	"github.com/cuemby/clusterscope/pkg/log"
	"github.com/cuemby/clusterscope/pkg/orchestrator"
	"github.com/cuemby/clusterscope/pkg/probe"
	"github.com/cuemby/clusterscope/pkg/remote"
	"github.com/cuemby/clusterscope/pkg/resolver"
	"github.com/cuemby/clusterscope/pkg/snapshot"
	"github.com/cuemby/clusterscope/pkg/storage"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/google/uuid"
)

// engine holds every wired component of a clusterscope process
type engine struct {
	store     *storage.BoltStore
	broker    *events.Broker
	discovery *cache.Discovery
	coalescer *snapshot.Coalescer
}

// newEngine opens the store, registers the configured clusters and wires the
// vendor implementations
func newEngine(cfg *config.Config) (*engine, error) {
	log.Init(log.Config{Level: log.Level(cfg.Log.Level), JSONOutput: cfg.Log.JSON, Output: os.Stderr})

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	discovery := cache.NewDiscovery()
	if err := syncClusters(store, discovery, cfg.Clusters, time.Now); err != nil {
		store.Close()
		return nil, err
	}

	ssh, err := remote.NewSSHExecutor(remote.SSHConfig{
		ConnectTimeout: cfg.SSH.ConnectTimeout,
		KnownHostsFile: cfg.SSH.KnownHosts,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	exec := remote.NewGuard(ssh, remote.GuardConfig{
		Timeout:       cfg.SSH.CommandTimeout,
		RatePerSecond: cfg.SSH.RatePerSecond,
		Burst:         cfg.SSH.Burst,
	})

	rest := probe.NewRESTClient(probe.HTTPConfig{
		Timeout:      cfg.HTTP.Timeout,
		MaxRetries:   cfg.HTTP.MaxRetries,
		RetryWaitMax: cfg.HTTP.RetryWait,
	})

	statuses := resolver.NewRegistry[probe.StatusReceiver](resolver.CapabilityServiceStatus).
		Register(types.VendorCloudera, probe.NewClouderaReceiver(rest)).
		Register(types.VendorHortonworks, probe.NewAmbariReceiver(rest))
	logs := resolver.NewRegistry[probe.LogSearcher](resolver.CapabilityLogSearch).
		Register(types.VendorCloudera, probe.NewLogSearcher(exec, probe.ClouderaLogDirs)).
		Register(types.VendorHortonworks, probe.NewLogSearcher(exec, probe.HortonworksLogDirs))
	jars := resolver.NewRegistry[probe.JarSearcher](resolver.CapabilityJarSearch).
		Register(types.VendorCloudera, probe.NewJarSearcher(exec, probe.ClouderaJarRoots)).
		Register(types.VendorHortonworks, probe.NewJarSearcher(exec, probe.HortonworksJarRoots))

	logger := log.WithComponent("engine")
	for _, summary := range []string{registrySummary(statuses), registrySummary(logs), registrySummary(jars)} {
		logger.Debug().Str("registry", summary).Msg("Vendor implementations registered")
	}

	performer := orchestrator.NewPerformer(orchestrator.Config{
		Clusters:  store,
		Statuses:  statuses,
		Logs:      logs,
		Jars:      jars,
		Memory:    probe.NewResourceManager(rest),
		Runner:    action.NewRunner(exec),
		Discovery: discovery,
	})

	broker := events.NewBroker()
	broker.Start()

	coalescer := snapshot.NewCoalescer(snapshot.Config{
		Clusters:     store,
		Snapshots:    store,
		Services:     store,
		Checker:      performer,
		Events:       broker,
		Freshness:    cfg.Snapshot.Freshness,
		HistoryLimit: cfg.Snapshot.HistoryLimit,
	})

	return &engine{store: store, broker: broker, discovery: discovery, coalescer: coalescer}, nil
}

// Close stops the broker and closes the store
func (e *engine) Close() error {
	e.broker.Stop()
	return e.store.Close()
}

// resync upserts the declared clusters again, dropping cached discovery
// values of clusters whose declaration may have changed
func (e *engine) resync(declared []config.ClusterConfig) error {
	return syncClusters(e.store, e.discovery, declared, time.Now)
}

// registrySummary describes a registry as "capability: VENDOR, VENDOR"
func registrySummary[T any](r *resolver.Registry[T]) string {
	vendors := r.Vendors()
	names := make([]string, 0, len(vendors))
	for _, v := range vendors {
		names = append(names, string(v))
	}
	if len(names) == 0 {
		names = append(names, "none")
	}
	return fmt.Sprintf("%s: %s", r.Capability(), strings.Join(names, ", "))
}

// clusterStore is the part of the store syncClusters needs
type clusterStore interface {
	GetClusterByName(name string) (*types.Cluster, error)
	CreateCluster(cluster *types.Cluster) error
	UpdateCluster(cluster *types.Cluster) error
}

// syncClusters upserts the configured clusters by name. Existing clusters
// keep their ID so snapshot history stays attached to them, and lose their
// cached discovery values since host or credentials may have changed.
func syncClusters(store clusterStore, discovery *cache.Discovery, declared []config.ClusterConfig, now func() time.Time) error {
	for _, cc := range declared {
		cluster := cc.Cluster()
		ts := now().UTC()

		existing, err := store.GetClusterByName(cc.Name)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			cluster.ID = uuid.New().String()
			cluster.CreatedAt = ts
			cluster.UpdatedAt = ts
			if err := store.CreateCluster(cluster); err != nil {
				return fmt.Errorf("failed to register cluster %s: %w", cc.Name, err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up cluster %s: %w", cc.Name, err)
		default:
			cluster.ID = existing.ID
			cluster.CreatedAt = existing.CreatedAt
			cluster.UpdatedAt = ts
			if err := store.UpdateCluster(cluster); err != nil {
				return fmt.Errorf("failed to update cluster %s: %w", cc.Name, err)
			}
			discovery.Forget(cc.Name)
		}
	}
	return nil
}
