package snapshot

import (
	"context"
	"fmt"

	"github.com/cuemby/clusterscope/pkg/events"
	"github.com/cuemby/clusterscope/pkg/orchestrator"
	"github.com/cuemby/clusterscope/pkg/types"
)

// Check runs an uncached pass of the given scope. On-demand checks are
// never persisted.
func (c *Coalescer) Check(ctx context.Context, clusterName string, scope orchestrator.Scope) (*orchestrator.Accumulator, error) {
	cluster, err := c.cluster(clusterName)
	if err != nil {
		return nil, err
	}

	acc, err := c.checker.PerformCluster(ctx, cluster, scope)
	if err != nil {
		c.events.Publish(&events.Event{Type: events.EventCheckFailed, Cluster: cluster.Name, Message: err.Error(),
			Metadata: map[string]string{"scope": string(scope)}})
		return nil, err
	}
	c.events.Publish(&events.Event{Type: events.EventCheckCompleted, Cluster: cluster.Name, Message: string(acc.Status()),
		Metadata: map[string]string{"scope": string(scope)}})
	return acc, nil
}

// FullCheck runs every category
func (c *Coalescer) FullCheck(ctx context.Context, clusterName string) (*orchestrator.Accumulator, error) {
	return c.Check(ctx, clusterName, orchestrator.ScopeAll)
}

// YarnCheck runs the YARN category
func (c *Coalescer) YarnCheck(ctx context.Context, clusterName string) (orchestrator.YarnResult, error) {
	acc, err := c.Check(ctx, clusterName, orchestrator.ScopeYarn)
	if err != nil {
		return orchestrator.YarnResult{}, err
	}
	r, ok := acc.Yarn()
	if !ok {
		return orchestrator.YarnResult{}, fmt.Errorf("%w: YARN on cluster %s", orchestrator.ErrNoResult, clusterName)
	}
	return r, nil
}

// HdfsCheck runs the HDFS category
func (c *Coalescer) HdfsCheck(ctx context.Context, clusterName string) (orchestrator.HdfsResult, error) {
	acc, err := c.Check(ctx, clusterName, orchestrator.ScopeHdfs)
	if err != nil {
		return orchestrator.HdfsResult{}, err
	}
	r, ok := acc.Hdfs()
	if !ok {
		return orchestrator.HdfsResult{}, fmt.Errorf("%w: HDFS on cluster %s", orchestrator.ErrNoResult, clusterName)
	}
	return r, nil
}

// OtherServicesCheck runs the category of every other service
func (c *Coalescer) OtherServicesCheck(ctx context.Context, clusterName string) ([]types.ServiceStatus, error) {
	acc, err := c.Check(ctx, clusterName, orchestrator.ScopeOtherServices)
	if err != nil {
		return nil, err
	}
	return acc.ServiceStatuses(), nil
}
