package probe

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cuemby/clusterscope/pkg/types"
)

const ambariDefaultPort = 8080

// AmbariReceiver reads service state and alert summaries from Ambari
type AmbariReceiver struct {
	client *RESTClient
	scheme string
}

// NewAmbariReceiver creates an Ambari status receiver
func NewAmbariReceiver(client *RESTClient) *AmbariReceiver {
	return &AmbariReceiver{client: client, scheme: "http"}
}

type ambariServiceList struct {
	Items []ambariService `json:"items"`
}

type ambariService struct {
	ServiceInfo struct {
		ServiceName string `json:"service_name"`
		State       string `json:"state"`
	} `json:"ServiceInfo"`
	AlertsSummary map[string]int `json:"alerts_summary"`
}

// ServiceStatus returns the status of one service
func (r *AmbariReceiver) ServiceStatus(ctx context.Context, cluster *types.Cluster, service types.ServiceType) (types.ServiceStatus, error) {
	statuses, err := r.ServiceStatuses(ctx, cluster)
	if err != nil {
		return types.ServiceStatus{}, err
	}
	return pickService(statuses, service, cluster.Name)
}

// ServiceStatuses returns the status of every service of the cluster
func (r *AmbariReceiver) ServiceStatuses(ctx context.Context, cluster *types.Cluster) ([]types.ServiceStatus, error) {
	port := cluster.ManagerPort
	if port == 0 {
		port = ambariDefaultPort
	}
	endpoint := fmt.Sprintf("%s://%s:%d/api/v1/clusters/%s/services?fields=ServiceInfo/state,alerts_summary",
		r.scheme, cluster.Host, port, url.PathEscape(cluster.Name))

	var list ambariServiceList
	if err := r.client.GetJSON(ctx, cluster, endpoint, &list); err != nil {
		return nil, err
	}

	statuses := make([]types.ServiceStatus, 0, len(list.Items))
	for _, item := range list.Items {
		statuses = append(statuses, types.ServiceStatus{
			Type:   types.ParseServiceType(item.ServiceInfo.ServiceName),
			Status: ambariStatus(item),
		})
	}
	return statuses, nil
}

// ambariStatus maps service state and alerts: anything but STARTED or a
// critical alert is BAD, warnings or unknown alerts are CONCERNING.
func ambariStatus(s ambariService) types.Status {
	if strings.ToUpper(s.ServiceInfo.State) != "STARTED" {
		return types.StatusBad
	}
	switch {
	case s.AlertsSummary["CRITICAL"] > 0:
		return types.StatusBad
	case s.AlertsSummary["WARNING"] > 0, s.AlertsSummary["UNKNOWN"] > 0:
		return types.StatusConcerning
	default:
		return types.StatusGood
	}
}
