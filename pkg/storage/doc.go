/*
Package storage provides BoltDB-backed persistence for clusterscope.

The Store interface covers three kinds of records: registered clusters, the
stable identities of the services found on them, and snapshot trees. BoltStore
implements it on top of bbolt with every record serialized as JSON.

# Buckets

	clusters           cluster ID -> cluster record (credentials included)
	services           clusterID/SERVICE -> service identity
	snapshots          snapshot ID -> snapshot header
	snapshot_index     name\x00takenAt\x00ID -> snapshot ID
	snapshot_nodes     snapshotID/000000 -> node usage
	snapshot_services  snapshotID/000000 -> service snapshot

The index key sorts by cluster name and then by the UTC time the snapshot was
taken, formatted with fixed width so byte order matches time order. The most
recent snapshots of a cluster are found with a reverse cursor scan over the
cluster's prefix, without decoding any other cluster's records.

# Atomicity

SaveSnapshot writes the header, the index entry and every node and service
row in a single bbolt transaction, and marks the snapshot Complete. A reader
therefore never observes a partially written tree. Snapshots read back
without the Complete flag are never reused.

# Secrets

types.Cluster hides its passwords from JSON so that API responses never carry
them. The stored record adds them back as separate fields, so a cluster read
from the store can still authenticate against its hosts. The database file is
created with mode 0600.

# Usage

	store, err := storage.NewBoltStore("/var/lib/clusterscope")
	if err != nil {
		return err
	}
	defer store.Close()

	recent, err := store.FindMostRecentSnapshots("prod-a", 1)
*/
package storage
