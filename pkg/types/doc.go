/*
Package types defines the data model shared by every clusterscope package.

# Clusters

A Cluster is an externally managed record describing how to reach a Hadoop
cluster: its vendor (CDH or HDP), management host, HTTP, SSH and Kerberos
credentials. The health check engine only reads clusters.

# Health verdicts

Every probe, job and service is summarized as a Status:

	GOOD        all signals healthy
	CONCERNING  mixed signals, or a live probe reports a problem
	BAD         the service is failing

ServiceStatus carries the verdict for one service together with the
JobResults that produced it and, when discovered, the log directory of the
service on the cluster.

# Snapshots

A Snapshot is the persisted form of a full health check pass: timestamp,
composite cluster status, HDFS and memory usage, per-node filesystem usage and
one ServiceSnapshot per service. Snapshots are never modified after being
written; newer snapshots supersede them.
*/
package types
