package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cuemby/clusterscope/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketClusters         = []byte("clusters")
	bucketServices         = []byte("services")
	bucketSnapshots        = []byte("snapshots")
	bucketSnapshotIndex    = []byte("snapshot_index")
	bucketSnapshotNodes    = []byte("snapshot_nodes")
	bucketSnapshotServices = []byte("snapshot_services")
)

// snapshotTimeLayout sorts lexically in time order
const snapshotTimeLayout = "20060102T150405.000000000Z"

// BoltStore implements Store interface using BoltDB
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "clusterscope.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketClusters,
			bucketServices,
			bucketSnapshots,
			bucketSnapshotIndex,
			bucketSnapshotNodes,
			bucketSnapshotServices,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Cluster operations
func (s *BoltStore) CreateCluster(cluster *types.Cluster) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketClusters)
		data, err := json.Marshal(clusterRecord{Cluster: cluster, HTTPPassword: cluster.HTTP.Password,
			SSHPassword: cluster.SSH.Password, KerberosPassword: cluster.Kerberos.Password})
		if err != nil {
			return err
		}
		return b.Put([]byte(cluster.ID), data)
	})
}

func (s *BoltStore) GetCluster(id string) (*types.Cluster, error) {
	var cluster *types.Cluster
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketClusters)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: cluster %s", ErrNotFound, id)
		}
		var err error
		cluster, err = decodeCluster(data)
		return err
	})
	return cluster, err
}

func (s *BoltStore) GetClusterByName(name string) (*types.Cluster, error) {
	var found *types.Cluster
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketClusters)
		return b.ForEach(func(k, v []byte) error {
			if found != nil {
				return nil
			}
			cluster, err := decodeCluster(v)
			if err != nil {
				return err
			}
			if cluster.Name == name {
				found = cluster
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: cluster %s", ErrNotFound, name)
	}
	return found, nil
}

func (s *BoltStore) ListClusters() ([]*types.Cluster, error) {
	var clusters []*types.Cluster
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketClusters)
		return b.ForEach(func(k, v []byte) error {
			cluster, err := decodeCluster(v)
			if err != nil {
				return err
			}
			clusters = append(clusters, cluster)
			return nil
		})
	})
	return clusters, err
}

func (s *BoltStore) UpdateCluster(cluster *types.Cluster) error {
	return s.CreateCluster(cluster) // Same as create (upsert)
}

func (s *BoltStore) DeleteCluster(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketClusters)
		return b.Delete([]byte(id))
	})
}

// clusterRecord keeps the secrets that types.Cluster hides from JSON
type clusterRecord struct {
	*types.Cluster
	HTTPPassword     string `json:"httpPassword,omitempty"`
	SSHPassword      string `json:"sshPassword,omitempty"`
	KerberosPassword string `json:"kerberosPassword,omitempty"`
}

func decodeCluster(data []byte) (*types.Cluster, error) {
	rec := clusterRecord{Cluster: &types.Cluster{}}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	rec.Cluster.HTTP.Password = rec.HTTPPassword
	rec.Cluster.SSH.Password = rec.SSHPassword
	rec.Cluster.Kerberos.Password = rec.KerberosPassword
	return rec.Cluster, nil
}

// Service identity operations
func serviceKey(clusterID string, service types.ServiceType) []byte {
	return []byte(clusterID + "/" + string(service))
}

func (s *BoltStore) GetServiceIdentity(clusterID string, service types.ServiceType) (*types.ServiceIdentity, error) {
	var identity types.ServiceIdentity
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketServices)
		data := b.Get(serviceKey(clusterID, service))
		if data == nil {
			return fmt.Errorf("%w: service %s of cluster %s", ErrNotFound, service, clusterID)
		}
		return json.Unmarshal(data, &identity)
	})
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *BoltStore) SaveServiceIdentity(identity *types.ServiceIdentity) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return putServiceIdentity(tx, identity)
	})
}

func putServiceIdentity(tx *bolt.Tx, identity *types.ServiceIdentity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketServices).Put(serviceKey(identity.ClusterID, identity.Type), data)
}

func (s *BoltStore) ListServiceIdentities(clusterID string) ([]*types.ServiceIdentity, error) {
	var identities []*types.ServiceIdentity
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketServices).Cursor()
		prefix := []byte(clusterID + "/")
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var identity types.ServiceIdentity
			if err := json.Unmarshal(v, &identity); err != nil {
				return err
			}
			identities = append(identities, &identity)
		}
		return nil
	})
	return identities, err
}

// Snapshot operations

// snapshotKey orders snapshots of a cluster by time
func snapshotKey(snapshot *types.Snapshot) []byte {
	return []byte(snapshot.ClusterName + "\x00" + snapshot.TakenAt.UTC().Format(snapshotTimeLayout) + "\x00" + snapshot.ID)
}

func childKey(snapshotID string, index int) []byte {
	return []byte(fmt.Sprintf("%s/%06d", snapshotID, index))
}

// SaveSnapshot writes the snapshot header, its node rows and its service
// rows in a single transaction. The header is marked complete only as part
// of that transaction, so a snapshot read back without Complete was not
// written by this store.
func (s *BoltStore) SaveSnapshot(snapshot *types.Snapshot) error {
	if snapshot.ID == "" || snapshot.ClusterName == "" {
		return fmt.Errorf("snapshot requires an id and a cluster name")
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		nodes := tx.Bucket(bucketSnapshotNodes)
		for i := range snapshot.Nodes {
			data, err := json.Marshal(snapshot.Nodes[i])
			if err != nil {
				return err
			}
			if err := nodes.Put(childKey(snapshot.ID, i), data); err != nil {
				return err
			}
		}

		services := tx.Bucket(bucketSnapshotServices)
		for i := range snapshot.Services {
			data, err := json.Marshal(snapshot.Services[i])
			if err != nil {
				return err
			}
			if err := services.Put(childKey(snapshot.ID, i), data); err != nil {
				return err
			}
		}

		header := *snapshot
		header.Nodes = nil
		header.Services = nil
		header.Complete = true
		data, err := json.Marshal(header)
		if err != nil {
			return err
		}

		key := snapshotKey(snapshot)
		if err := tx.Bucket(bucketSnapshots).Put(key, data); err != nil {
			return err
		}
		return tx.Bucket(bucketSnapshotIndex).Put([]byte(snapshot.ID), key)
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snapshot.ID, err)
	}

	snapshot.Complete = true
	return nil
}

func (s *BoltStore) GetSnapshot(id string) (*types.Snapshot, error) {
	var snapshot *types.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket(bucketSnapshotIndex).Get([]byte(id))
		if key == nil {
			return fmt.Errorf("%w: snapshot %s", ErrNotFound, id)
		}
		data := tx.Bucket(bucketSnapshots).Get(key)
		if data == nil {
			return fmt.Errorf("%w: snapshot %s", ErrNotFound, id)
		}
		var err error
		snapshot, err = readSnapshot(tx, data)
		return err
	})
	return snapshot, err
}

// FindMostRecentSnapshots returns up to limit snapshots of a cluster, newest
// first. A limit of zero or less returns all of them.
func (s *BoltStore) FindMostRecentSnapshots(clusterName string, limit int) ([]*types.Snapshot, error) {
	var snapshots []*types.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketSnapshots).Cursor()
		prefix := []byte(clusterName + "\x00")

		// Timestamps are ASCII, so every key of the cluster sorts below prefix+0xff
		k, v := c.Seek(append(append([]byte{}, prefix...), 0xff))
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}

		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Prev() {
			snapshot, err := readSnapshot(tx, v)
			if err != nil {
				return err
			}
			snapshots = append(snapshots, snapshot)
			if limit > 0 && len(snapshots) >= limit {
				break
			}
		}
		return nil
	})
	return snapshots, err
}

func readSnapshot(tx *bolt.Tx, header []byte) (*types.Snapshot, error) {
	var snapshot types.Snapshot
	if err := json.Unmarshal(header, &snapshot); err != nil {
		return nil, err
	}
	prefix := []byte(snapshot.ID + "/")

	c := tx.Bucket(bucketSnapshotNodes).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var node types.NodeUsage
		if err := json.Unmarshal(v, &node); err != nil {
			return nil, err
		}
		snapshot.Nodes = append(snapshot.Nodes, node)
	}

	c = tx.Bucket(bucketSnapshotServices).Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var service types.ServiceSnapshot
		if err := json.Unmarshal(v, &service); err != nil {
			return nil, err
		}
		snapshot.Services = append(snapshot.Services, service)
	}
	return &snapshot, nil
}
