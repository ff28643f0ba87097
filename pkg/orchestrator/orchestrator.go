package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/clusterscope/pkg/action"
	"github.com/cuemby/clusterscope/pkg/cache"
	"github.com/cuemby/clusterscope/pkg/log"
	"github.com/cuemby/clusterscope/pkg/metrics"
	"github.com/cuemby/clusterscope/pkg/probe"
	"github.com/cuemby/clusterscope/pkg/resolver"
	"github.com/cuemby/clusterscope/pkg/status"
	"github.com/cuemby/clusterscope/pkg/storage"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrClusterNotFound means no cluster is registered under the name
	ErrClusterNotFound = errors.New("cluster not found")

	// ErrNoResult means a category view has nothing to show because the
	// category's service was omitted from the pass
	ErrNoResult = errors.New("no health check result")
)

// CheckError aborts a pass when no implementation can serve the cluster's
// vendor. It wraps the resolver error.
type CheckError struct {
	Cluster string
	Vendor  types.Vendor
	Err     error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("health check of cluster %s (vendor %s) failed: %v", e.Cluster, e.Vendor, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// ClusterRepository finds clusters by name
type ClusterRepository interface {
	GetClusterByName(name string) (*types.Cluster, error)
}

// MemoryReader reads the aggregate YARN memory of a cluster
type MemoryReader interface {
	Memory(ctx context.Context, cluster *types.Cluster) (types.MemoryUsage, error)
}

// Config wires a Performer
type Config struct {
	Clusters  ClusterRepository
	Statuses  *resolver.Registry[probe.StatusReceiver]
	Logs      *resolver.Registry[probe.LogSearcher]
	Jars      *resolver.Registry[probe.JarSearcher]
	Memory    MemoryReader
	Runner    *action.Runner
	Discovery *cache.Discovery
}

// Performer runs health check passes against clusters
type Performer struct {
	clusters  ClusterRepository
	statuses  *resolver.Registry[probe.StatusReceiver]
	logs      *resolver.Registry[probe.LogSearcher]
	jars      *resolver.Registry[probe.JarSearcher]
	memory    MemoryReader
	runner    *action.Runner
	discovery *cache.Discovery
	logger    zerolog.Logger
}

// NewPerformer creates a performer. Missing registries are created empty,
// so every check against them fails with a CheckError.
func NewPerformer(cfg Config) *Performer {
	if cfg.Statuses == nil {
		cfg.Statuses = resolver.NewRegistry[probe.StatusReceiver](resolver.CapabilityServiceStatus)
	}
	if cfg.Logs == nil {
		cfg.Logs = resolver.NewRegistry[probe.LogSearcher](resolver.CapabilityLogSearch)
	}
	if cfg.Jars == nil {
		cfg.Jars = resolver.NewRegistry[probe.JarSearcher](resolver.CapabilityJarSearch)
	}
	if cfg.Discovery == nil {
		cfg.Discovery = cache.NewDiscovery()
	}
	return &Performer{
		clusters:  cfg.Clusters,
		statuses:  cfg.Statuses,
		logs:      cfg.Logs,
		jars:      cfg.Jars,
		memory:    cfg.Memory,
		runner:    cfg.Runner,
		discovery: cfg.Discovery,
		logger:    log.WithComponent("orchestrator"),
	}
}

// Perform looks up a cluster by name and runs a pass of the given scope
func (p *Performer) Perform(ctx context.Context, clusterName string, scope Scope) (*Accumulator, error) {
	cluster, err := p.clusters.GetClusterByName(clusterName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrClusterNotFound, clusterName)
		}
		return nil, fmt.Errorf("failed to load cluster %s: %w", clusterName, err)
	}
	return p.PerformCluster(ctx, cluster, scope)
}

// PerformCluster runs a pass of the given scope. ALL checks the three
// categories concurrently, each into its own accumulator, and merges them.
func (p *Performer) PerformCluster(ctx context.Context, cluster *types.Cluster, scope Scope) (*Accumulator, error) {
	timer := metrics.NewTimer()
	logger := p.logger.With().Str("cluster", cluster.Name).Str("scope", string(scope)).Logger()
	logger.Info().Msg("Starting health check")

	acc, err := p.perform(ctx, cluster, scope)

	timer.ObserveDurationVec(metrics.HealthCheckDuration, scope.label())
	if err != nil {
		metrics.HealthChecksTotal.WithLabelValues(scope.label(), "error").Inc()
		logger.Error().Err(err).Msg("Health check failed")
		return nil, err
	}

	metrics.HealthChecksTotal.WithLabelValues(scope.label(), "ok").Inc()
	for _, s := range acc.ServiceStatuses() {
		metrics.RecordServiceStatus(cluster.Name, s.Type, s.Status)
	}
	logger.Info().
		Str("status", string(acc.Status())).
		Int("services", acc.Len()).
		Dur("duration", timer.Duration()).
		Msg("Health check completed")
	return acc, nil
}

func (p *Performer) perform(ctx context.Context, cluster *types.Cluster, scope Scope) (*Accumulator, error) {
	switch scope {
	case ScopeYarn, ScopeHdfs, ScopeOtherServices:
		acc := NewAccumulator()
		if err := p.category(scope)(ctx, cluster, acc); err != nil {
			return nil, err
		}
		return acc, nil
	case ScopeAll:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScope, scope)
	}

	categories := []Scope{ScopeYarn, ScopeHdfs, ScopeOtherServices}
	cells := make([]*Accumulator, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		i, check := i, p.category(category)
		cells[i] = NewAccumulator()
		g.Go(func() error {
			return check(gctx, cluster, cells[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	acc := NewAccumulator()
	for _, cell := range cells {
		if err := acc.Merge(cell); err != nil {
			// Categories report disjoint services; keep the first entry
			p.logger.Warn().Err(err).Str("cluster", cluster.Name).Msg("Duplicate service across categories")
		}
	}
	return acc, nil
}

type checkFunc func(ctx context.Context, cluster *types.Cluster, acc *Accumulator) error

func (p *Performer) category(scope Scope) checkFunc {
	switch scope {
	case ScopeYarn:
		return p.checkYarn
	case ScopeHdfs:
		return p.checkHdfs
	default:
		return p.checkOthers
	}
}

// resolveAll resolves the implementations a category needs before any remote
// call is made
func (p *Performer) resolveAll(cluster *types.Cluster, jars bool) (probe.StatusReceiver, probe.LogSearcher, probe.JarSearcher, error) {
	fail := func(err error) error {
		return &CheckError{Cluster: cluster.Name, Vendor: cluster.Vendor, Err: err}
	}

	receiver, err := p.statuses.Resolve(cluster.Vendor)
	if err != nil {
		return nil, nil, nil, fail(err)
	}
	logs, err := p.logs.Resolve(cluster.Vendor)
	if err != nil {
		return nil, nil, nil, fail(err)
	}
	var searcher probe.JarSearcher
	if jars {
		searcher, err = p.jars.Resolve(cluster.Vendor)
		if err != nil {
			return nil, nil, nil, fail(err)
		}
	}
	return receiver, logs, searcher, nil
}

// omit logs an action level failure. The service is left out of the pass.
func (p *Performer) omit(cluster *types.Cluster, service types.ServiceType, err error) {
	logger := log.WithService("orchestrator", cluster.Name, string(service))
	logger.Warn().Err(err).Msg("Service omitted from health check")
}

func (p *Performer) logDirectory(ctx context.Context, cluster *types.Cluster, logs probe.LogSearcher, service types.ServiceType) string {
	dir, err := logs.LogDirectory(ctx, cluster, service)
	if err != nil {
		logger := log.WithService("orchestrator", cluster.Name, string(service))
		logger.Debug().Err(err).Msg("Log directory not discovered")
		return ""
	}
	return dir
}

func (p *Performer) checkYarn(ctx context.Context, cluster *types.Cluster, acc *Accumulator) error {
	receiver, logs, jars, err := p.resolveAll(cluster, true)
	if err != nil {
		return err
	}

	svc, err := receiver.ServiceStatus(ctx, cluster, types.ServiceYARN)
	if err != nil {
		p.omit(cluster, types.ServiceYARN, err)
		return nil
	}

	result, err := p.runner.RunExamplesJob(ctx, cluster, jars, p.discovery, action.PiJob())
	if err != nil {
		p.omit(cluster, types.ServiceYARN, err)
		return nil
	}
	svc.JobResults = []types.JobResult{result}
	svc.Status = status.Merge(svc.Status, status.FromJobs(svc.JobResults))
	svc.LogDirectory = p.logDirectory(ctx, cluster, logs, types.ServiceYARN)

	yarn := YarnResult{Service: svc}
	if p.memory != nil {
		if yarn.Memory, err = p.memory.Memory(ctx, cluster); err != nil {
			p.logger.Warn().Err(err).Str("cluster", cluster.Name).Msg("Failed to read YARN memory")
		}
	}
	return p.record(acc.SetYarn(yarn))
}

func (p *Performer) checkHdfs(ctx context.Context, cluster *types.Cluster, acc *Accumulator) error {
	receiver, logs, _, err := p.resolveAll(cluster, false)
	if err != nil {
		return err
	}

	svc, err := receiver.ServiceStatus(ctx, cluster, types.ServiceHDFS)
	if err != nil {
		p.omit(cluster, types.ServiceHDFS, err)
		return nil
	}

	results, err := p.runner.RunAll(ctx, cluster, action.HdfsOperations())
	if err != nil {
		p.omit(cluster, types.ServiceHDFS, err)
		return nil
	}
	svc.JobResults = results
	svc.Status = status.Merge(svc.Status, status.FromJobs(results))
	svc.LogDirectory = p.logDirectory(ctx, cluster, logs, types.ServiceHDFS)

	hdfs := HdfsResult{Service: svc}
	report, err := p.runner.HdfsUsage(ctx, cluster)
	if err != nil {
		p.logger.Warn().Err(err).Str("cluster", cluster.Name).Msg("Failed to read HDFS usage")
	} else {
		hdfs.Usage = report.Usage
		hdfs.Nodes = report.Nodes
	}
	return p.record(acc.SetHdfs(hdfs))
}

// checkOthers reports every service except YARN and HDFS from the vendor
// API. Vendor services mapping to the same type are folded worst-of.
func (p *Performer) checkOthers(ctx context.Context, cluster *types.Cluster, acc *Accumulator) error {
	receiver, logs, _, err := p.resolveAll(cluster, false)
	if err != nil {
		return err
	}

	statuses, err := receiver.ServiceStatuses(ctx, cluster)
	if err != nil {
		p.omit(cluster, types.ServiceOther, err)
		return nil
	}

	folded := make(map[types.ServiceType]types.ServiceStatus)
	var order []types.ServiceType
	for _, s := range statuses {
		if s.Type == types.ServiceYARN || s.Type == types.ServiceHDFS {
			continue
		}
		existing, ok := folded[s.Type]
		if !ok {
			order = append(order, s.Type)
			folded[s.Type] = s
			continue
		}
		existing.Status = status.Worst(existing.Status, s.Status)
		folded[s.Type] = existing
	}

	for _, t := range order {
		s := folded[t]
		if s.Type != types.ServiceOther {
			s.LogDirectory = p.logDirectory(ctx, cluster, logs, s.Type)
		}
		if err := p.record(acc.Add(s)); err != nil {
			return err
		}
	}
	return nil
}

// record drops duplicate reports; they never abort a pass
func (p *Performer) record(err error) error {
	if err != nil && errors.Is(err, ErrDuplicateService) {
		p.logger.Warn().Err(err).Msg("Duplicate service report ignored")
		return nil
	}
	return err
}
