/*
Package api exposes clusterscope over HTTP.

The router is built with chi and serves read-mostly JSON endpoints backed by
the snapshot coalescer:

	GET /health                              liveness
	GET /ready                               readiness (storage must be healthy)
	GET /metrics                             Prometheus metrics
	GET /api/clusters                        monitored clusters, without credentials
	GET /api/clusters/{name}/snapshot        latest snapshot, taking one if stale
	GET /api/clusters/{name}/history?limit=N newest snapshots first
	GET /api/clusters/{name}/check/{scope}   on-demand check, not persisted

Scopes are ALL, YARN, HDFS and OTHER_SERVICES, matched case-insensitively.

# Errors

Every failure is a JSON body of the form {"error": "..."}. Unknown clusters
and clusters without any snapshot give 404, an unknown scope gives 400, a
vendor without a registered implementation gives 501, and a check where no
service answered gives 502.

# Instrumentation

Each request is counted in clusterscope_api_requests_total by chi route
pattern and status code, so cluster names never become label values.
*/
package api
