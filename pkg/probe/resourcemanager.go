package probe

import (
	"context"
	"fmt"

	"github.com/cuemby/clusterscope/pkg/types"
)

const resourceManagerDefaultPort = 8088

// ResourceManager reads cluster memory from the YARN ResourceManager REST
// API, which is the same for every vendor
type ResourceManager struct {
	client *RESTClient
	scheme string
}

// NewResourceManager creates a ResourceManager probe
func NewResourceManager(client *RESTClient) *ResourceManager {
	return &ResourceManager{client: client, scheme: "http"}
}

type clusterMetrics struct {
	ClusterMetrics struct {
		AllocatedMB int64 `json:"allocatedMB"`
		TotalMB     int64 `json:"totalMB"`
	} `json:"clusterMetrics"`
}

// Memory returns the allocated and total YARN memory
func (rm *ResourceManager) Memory(ctx context.Context, cluster *types.Cluster) (types.MemoryUsage, error) {
	port := cluster.ResourceManagerPort
	if port == 0 {
		port = resourceManagerDefaultPort
	}
	endpoint := fmt.Sprintf("%s://%s:%d/ws/v1/cluster/metrics", rm.scheme, cluster.Host, port)

	var m clusterMetrics
	if err := rm.client.GetJSON(ctx, cluster, endpoint, &m); err != nil {
		return types.MemoryUsage{}, err
	}
	return types.MemoryUsage{
		UsedMB:  m.ClusterMetrics.AllocatedMB,
		TotalMB: m.ClusterMetrics.TotalMB,
	}, nil
}
