/*
Package probe reads live health signals from a Hadoop cluster.

Two kinds of probes exist. REST probes query the vendor management API and
the YARN ResourceManager; command probes run shell commands through a
remote.Executor to discover paths on the cluster hosts.

# Status receivers

A StatusReceiver returns the vendor's own verdict per service:

	ClouderaReceiver   Cloudera Manager  /api/v19/clusters/{name}/services
	AmbariReceiver     Ambari            /api/v1/clusters/{name}/services

Cloudera Manager health summaries map one to one (GOOD, CONCERNING, BAD);
summaries without a verdict become CONCERNING and a stopped service is BAD.
Ambari has no summary, so a service that is not STARTED or carries a
CRITICAL alert is BAD and one with WARNING or UNKNOWN alerts is CONCERNING.

ResourceManager reads allocated and total memory from /ws/v1/cluster/metrics.
It is vendor independent.

All REST calls go through RESTClient, which retries transient failures with
go-retryablehttp and logs through zerolog.

# Searchers

CommandLogSearcher probes a table of candidate log directories and returns
the first one present. CommandJarSearcher runs find(1) under a set of roots
to locate a job jar. Both return an empty string, not an error, when nothing
is found. Vendor tables are exported (ClouderaLogDirs, HortonworksJarRoots,
...) so callers can register one searcher per vendor.

# Usage

	client := probe.NewRESTClient(probe.DefaultHTTPConfig())
	statuses := resolver.NewRegistry[probe.StatusReceiver](resolver.CapabilityServiceStatus).
		Register(types.VendorCloudera, probe.NewClouderaReceiver(client)).
		Register(types.VendorHortonworks, probe.NewAmbariReceiver(client))
*/
package probe
