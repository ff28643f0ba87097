package storage

import (
	"errors"

	"github.com/cuemby/clusterscope/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// Store defines the interface for clusterscope state storage
type Store interface {
	// Clusters
	CreateCluster(cluster *types.Cluster) error
	GetCluster(id string) (*types.Cluster, error)
	GetClusterByName(name string) (*types.Cluster, error)
	ListClusters() ([]*types.Cluster, error)
	UpdateCluster(cluster *types.Cluster) error
	DeleteCluster(id string) error

	// Service identities
	GetServiceIdentity(clusterID string, service types.ServiceType) (*types.ServiceIdentity, error)
	SaveServiceIdentity(identity *types.ServiceIdentity) error
	ListServiceIdentities(clusterID string) ([]*types.ServiceIdentity, error)

	// Snapshots
	SaveSnapshot(snapshot *types.Snapshot) error
	GetSnapshot(id string) (*types.Snapshot, error)
	FindMostRecentSnapshots(clusterName string, limit int) ([]*types.Snapshot, error)

	// Utility
	Close() error
}
