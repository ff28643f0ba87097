package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/clusterscope/pkg/types"
)

var (
	// ErrServiceNotFound means the vendor API does not know the service
	ErrServiceNotFound = errors.New("service not found")

	// ErrUnexpectedResponse means the vendor API answered with an unusable payload
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// StatusReceiver reads service health from a vendor management REST API
type StatusReceiver interface {
	// ServiceStatus returns the live status of one service
	ServiceStatus(ctx context.Context, cluster *types.Cluster, service types.ServiceType) (types.ServiceStatus, error)

	// ServiceStatuses returns the live status of every service of the cluster
	ServiceStatuses(ctx context.Context, cluster *types.Cluster) ([]types.ServiceStatus, error)
}

// LogSearcher discovers where a service writes its logs on the cluster
type LogSearcher interface {
	LogDirectory(ctx context.Context, cluster *types.Cluster, service types.ServiceType) (string, error)
}

// JarSearcher locates a job jar on the cluster. An empty path with a nil
// error means the jar does not exist.
type JarSearcher interface {
	FindJar(ctx context.Context, cluster *types.Cluster, mask string) (string, error)
}

// pickService selects one service from a full listing
func pickService(statuses []types.ServiceStatus, service types.ServiceType, cluster string) (types.ServiceStatus, error) {
	for _, s := range statuses {
		if s.Type == service {
			return s, nil
		}
	}
	return types.ServiceStatus{}, fmt.Errorf("%w: %s on cluster %s", ErrServiceNotFound, service, cluster)
}
