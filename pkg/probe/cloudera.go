package probe

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cuemby/clusterscope/pkg/types"
)

const (
	clouderaDefaultPort = 7180
	clouderaAPIVersion  = "v19"
)

// ClouderaReceiver reads service health summaries from Cloudera Manager
type ClouderaReceiver struct {
	client *RESTClient
	scheme string
}

// NewClouderaReceiver creates a Cloudera Manager status receiver
func NewClouderaReceiver(client *RESTClient) *ClouderaReceiver {
	return &ClouderaReceiver{client: client, scheme: "http"}
}

type cmServiceList struct {
	Items []cmService `json:"items"`
}

type cmService struct {
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	ServiceState  string          `json:"serviceState"`
	HealthSummary string          `json:"healthSummary"`
	HealthChecks  []cmHealthCheck `json:"healthChecks"`
}

type cmHealthCheck struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// ServiceStatus returns the Cloudera Manager health summary of one service
func (r *ClouderaReceiver) ServiceStatus(ctx context.Context, cluster *types.Cluster, service types.ServiceType) (types.ServiceStatus, error) {
	statuses, err := r.ServiceStatuses(ctx, cluster)
	if err != nil {
		return types.ServiceStatus{}, err
	}
	return pickService(statuses, service, cluster.Name)
}

// ServiceStatuses returns the health summary of every service of the cluster
func (r *ClouderaReceiver) ServiceStatuses(ctx context.Context, cluster *types.Cluster) ([]types.ServiceStatus, error) {
	port := cluster.ManagerPort
	if port == 0 {
		port = clouderaDefaultPort
	}
	endpoint := fmt.Sprintf("%s://%s:%d/api/%s/clusters/%s/services?view=full",
		r.scheme, cluster.Host, port, clouderaAPIVersion, url.PathEscape(cluster.Name))

	var list cmServiceList
	if err := r.client.GetJSON(ctx, cluster, endpoint, &list); err != nil {
		return nil, err
	}

	statuses := make([]types.ServiceStatus, 0, len(list.Items))
	for _, item := range list.Items {
		statuses = append(statuses, types.ServiceStatus{
			Type:   types.ParseServiceType(item.Type),
			Status: clouderaStatus(item),
		})
	}
	return statuses, nil
}

// clouderaStatus maps a Cloudera Manager health summary. Summaries without a
// verdict (DISABLED, NOT_AVAILABLE, HISTORY_NOT_AVAILABLE) are CONCERNING;
// a stopped service is BAD whatever its summary.
func clouderaStatus(s cmService) types.Status {
	if state := strings.ToUpper(s.ServiceState); state == "STOPPED" || state == "STOPPING" {
		return types.StatusBad
	}
	switch strings.ToUpper(s.HealthSummary) {
	case "GOOD":
		return types.StatusGood
	case "BAD":
		return types.StatusBad
	default:
		return types.StatusConcerning
	}
}
