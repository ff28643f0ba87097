/*
Package snapshot decides when a cluster health snapshot is taken and persists
it.

A full health check pass touches the vendor API and runs a MapReduce job on
the cluster, so it takes minutes. A Coalescer sits in front of the
orchestrator and hands out a stored snapshot while it is recent enough,
running a new pass only when it is not.

# Architecture

	┌────────────────────────────────────────────────────────────┐
	│              Coalescer.Take(ctx, clusterName)              │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	                 ▼
	┌────────────────────────────────────────────────────────────┐
	│  1. Load the cluster                                       │
	│  2. Lock the cluster                                       │
	│  3. Read its newest stored snapshot                        │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	    ┌────────────┴────────────┐
	    │                         │
	    ▼                         ▼
	┌─────────────┐       ┌──────────────┐
	│    FRESH    │       │    STALE     │
	└─────┬───────┘       └──────┬───────┘
	      │                      │
	      ▼                      ▼
	 return it             full pass (ALL)
	 unchanged             build snapshot tree
	                       save, return it

A stored snapshot is classified as:

	FRESH  complete and taken less than the freshness window ago (1 hour)
	STALE  missing, incomplete, or older than the window

A fresh snapshot is returned unchanged: no REST call or remote command runs
and nothing is written. A stale one triggers a full pass whose result becomes
a new snapshot tree: header, one row per DataNode and one row per service,
each service row pointing at a persistent service identity that is created
the first time the service is seen.

# Core Components

Coalescer: the caching front of the orchestrator.

	coalescer := snapshot.NewCoalescer(snapshot.Config{
		Clusters:  store,
		Snapshots: store,
		Services:  store,
		Checker:   performer,
		Events:    broker,
	})

Freshness defaults to DefaultFreshness and HistoryLimit to
DefaultHistoryLimit. Events default to a publisher that drops everything.

Checker: anything running a pass for a loaded cluster. The orchestrator's
Performer satisfies it; tests use a counting fake.

# Usage Examples

## Taking a snapshot

	s, err := coalescer.Take(ctx, "prod-a")
	if err != nil {
		// persistence failure
	}
	if s == nil {
		// the pass failed and was logged; keep showing the previous snapshot
	}

## Always showing something

Latest behaves like Take, but when the new pass fails it returns the newest
stored snapshot however old. ErrNoSnapshot means there has never been one.

	latest, err := coalescer.Latest(ctx, "prod-a")
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		// nothing to show yet
	}
	fmt.Println(latest.ID, latest.Status)

## History

	snapshots, err := coalescer.History("prod-a", 0)
	for _, s := range snapshots {
		fmt.Println(s.TakenAt, s.Status)
	}

Snapshots come newest first. A limit of zero or less uses the configured
history limit.

## On-demand checks

Check runs an uncached pass of any scope. FullCheck, YarnCheck, HdfsCheck and
OtherServicesCheck are views on top of it. They never read or write the
snapshot store.

	yarn, err := coalescer.YarnCheck(ctx, "prod-a")
	if errors.Is(err, orchestrator.ErrNoResult) {
		// YARN was omitted from the pass
	}
	fmt.Println(yarn.Service.Status, yarn.Memory.UsedMB)

The REST API and the check command turn a view into a response with
api.RunCheck, so both report the same status for a scope.

# Concurrency

The check-then-act sequence holds a per-cluster mutex, so concurrent requests
for one cluster run at most one pass; the others wait and then observe the
fresh snapshot. Requests for different clusters do not block each other.

On-demand checks do not take the cluster lock.

# Failures

A pass that fails (no implementation for the vendor, cancelled context, no
service answering) produces no snapshot and a snapshot.failed event. Take
logs it and returns a nil snapshot with a nil error. Errors reading or
writing the snapshot store are returned to the caller.

An empty pass is treated as a failure. Every service being omitted means the
cluster did not answer, and an empty snapshot would read as GOOD.

# Events

	snapshot.created  a new snapshot was saved
	snapshot.reused   a fresh snapshot was returned
	snapshot.failed   the pass failed, nothing was saved
	check.completed   an on-demand check finished, message is the status
	check.failed      an on-demand check failed

Snapshot events carry the snapshot id in their metadata; check events carry
the scope.

# Monitoring Metrics

  - clusterscope_snapshots_total{result}, result is created, reused or failed

# See Also

  - pkg/orchestrator for the passes
  - pkg/storage for the bbolt snapshot store
  - pkg/api for the HTTP views
*/
package snapshot
