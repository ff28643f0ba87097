/*
Package metrics provides Prometheus metrics and health reporting for clusterscope.

All collectors are registered with the default Prometheus registry at package
init and exposed by Handler for scraping. The package also keeps a small
process health model served on /health and /ready.

# Metrics Catalog

Health checks:

	clusterscope_health_checks_total{scope, result}
	  Passes by scope (all, yarn, hdfs, other_services) and result
	  (ok, error). Only a resolution failure counts as error.

	clusterscope_health_check_duration_seconds{scope}
	  Pass duration, from resolution to the merged result.

	clusterscope_service_status{cluster, service}
	  Last observed status of a service: 0 = GOOD, 1 = CONCERNING, 2 = BAD.

Remote commands:

	clusterscope_remote_commands_total{result}
	  Commands sent over SSH by result (ok, auth_error, transport_error,
	  timeout, rate_limited).

	clusterscope_remote_command_duration_seconds
	  Round trip of a single command.

Snapshots and discovery:

	clusterscope_snapshots_total{outcome}
	  Snapshot requests by outcome: created, reused or failed.

	clusterscope_discovery_cache_total{result}
	  Lookups of cached discovery values such as the examples jar path.

API:

	clusterscope_api_requests_total{route, status}
	  Requests by chi route pattern and HTTP status code.

# Usage

	timer := metrics.NewTimer()
	acc, err := performer.PerformCluster(ctx, cluster, scope)
	timer.ObserveDurationVec(metrics.HealthCheckDuration, "all")

	metrics.RecordServiceStatus(cluster.Name, types.ServiceHDFS, types.StatusGood)

# Health and Readiness

Components report their state with UpdateComponent. /health is unhealthy as
soon as any registered component is unhealthy. /ready additionally requires
every critical component to be registered. The default critical set is
"storage"; the serve command widens it to "storage" and "events" and reports
both once the database is open and the event broker runs.

	metrics.SetCriticalComponents("storage", "events")
	metrics.UpdateComponent("storage", true, "")
	http.Handle("/ready", metrics.ReadyHandler())
*/
package metrics
