/*
Package orchestrator runs health check passes against a cluster.

A pass checks the services of one cluster and collects a status per service
type. It is the only place where vendor REST calls and remote commands are
combined: the vendor API says how the cluster manager sees a service, and
the diagnostic actions of pkg/action say whether the service actually works.

# Architecture

	┌────────────────────────────────────────────────────────────┐
	│            Performer.Perform(ctx, cluster, scope)          │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	                 ▼
	┌────────────────────────────────────────────────────────────┐
	│  1. Look up the cluster by name                            │
	│  2. Pick the categories of the scope                       │
	│  3. Each category resolves its vendor implementations      │
	│  4. Each category writes into its own Accumulator          │
	│  5. Merge the accumulators, record metrics                 │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	    ┌────────────┼──────────────────────┐
	    │            │                      │
	    ▼            ▼                      ▼
	┌─────────┐ ┌─────────┐        ┌────────────────┐
	│  YARN   │ │  HDFS   │        │ OTHER_SERVICES │
	└────┬────┘ └────┬────┘        └───────┬────────┘
	     │           │                     │
	     ▼           ▼                     ▼
	 vendor status  vendor status     vendor statuses
	 pi job         file round trip   folded per type
	 memory         dfsadmin usage
	 log directory  log directory     log directory

# Scopes

A pass has one of four scopes:

	ALL             every category below, run concurrently
	YARN            vendor status, pi job on the examples jar, log directory, memory
	HDFS            vendor status, HDFS file operations, log directory, dfsadmin usage
	OTHER_SERVICES  vendor status of every other service

ParseScope accepts the names above ignoring case, with dashes or
underscores, plus OTHER and OTHERS as aliases of OTHER_SERVICES. Anything
else yields ErrUnknownScope.

# Core Components

Performer: runs passes. It holds one resolver registry per capability, the
action runner and the discovery cache shared by every pass.

	performer := orchestrator.NewPerformer(orchestrator.Config{
		Clusters:  store,
		Statuses:  statuses,
		Logs:      logs,
		Jars:      jars,
		Memory:    memoryReader,
		Runner:    action.NewRunner(executor),
		Discovery: discovery,
	})

Missing registries are created empty, so every check against them fails with
a CheckError.

Accumulator: the result of a pass. It holds at most one status per service
type, plus the HDFS usage and YARN memory figures of the categories that
produced them.

	acc, err := performer.Perform(ctx, "prod-a", orchestrator.ScopeAll)
	if err != nil {
		return err
	}
	fmt.Println(acc.Status())
	for _, s := range acc.ServiceStatuses() {
		fmt.Println(s.Type, s.Status)
	}

Adding a second status for a type returns ErrDuplicateService. Status is the
worst status over every service, or GOOD for an empty accumulator.

# Usage Examples

## Running a single category

	acc, err := performer.Perform(ctx, "prod-a", orchestrator.ScopeHdfs)
	if err != nil {
		return err
	}
	hdfs, ok := acc.Hdfs()
	if !ok {
		// HDFS was omitted from the pass, see the logs
	}
	fmt.Println(hdfs.Service.Status, hdfs.Usage.UsedGB, len(hdfs.Nodes))

## Checking a cluster that is not stored

PerformCluster takes the cluster itself. The snapshot coalescer uses it
after loading the cluster under its own lock.

	acc, err := performer.PerformCluster(ctx, cluster, orchestrator.ScopeYarn)
	if yarn, ok := acc.Yarn(); ok {
		fmt.Println(yarn.Memory.UsedMB, yarn.Memory.TotalMB)
	}

# Failure Handling

Failures are split in two classes.

A missing vendor implementation aborts the whole pass. Each category resolves
the implementations it needs (status receiver, log searcher, jar searcher)
before any remote call is made, and a resolution failure is returned as a
*CheckError naming the cluster and its vendor:

	var checkErr *orchestrator.CheckError
	if errors.As(err, &checkErr) {
		fmt.Println("no implementation for", checkErr.Vendor)
	}
	if errors.Is(err, resolver.ErrUnresolvedImplementation) {
		// same condition, through the wrapped resolver error
	}

Every other failure is local to its service. When the vendor API does not
know a service, or a remote command cannot be delivered or authenticated,
the service is logged and left out of the pass while sibling services are
still checked. A failing memory or dfsadmin read only drops the figures; the
service status is kept.

Statuses combine worst-of: a YARN service reported GOOD by the vendor whose
pi job failed is BAD.

# Design Patterns

## Cell per category

For ALL, every category writes to its own accumulator and the three are
merged once an errgroup has waited for them. Categories never share a map,
and a CheckError from one category cancels the others through the group
context.

## Folding vendor services

The OTHER_SERVICES category maps every vendor service onto a service type.
Services mapping to the same type, or to OTHER, are folded into one status,
the worst of them. YARN and HDFS reported by the vendor are skipped there
since their own categories cover them.

# Monitoring Metrics

  - clusterscope_health_checks_total{scope, result}
  - clusterscope_health_check_duration_seconds{scope}
  - clusterscope_service_status{cluster, service}, set after each successful pass

# Troubleshooting

## A service is missing from the result

Look for "Service omitted from health check" at warn level with the cluster
and service fields. The error names the vendor call or remote command that
failed.

## Every pass fails with CheckError

No implementation is registered for the cluster's vendor. The engine logs the
vendors of each registry at debug level on startup.

# See Also

  - pkg/action for the remote diagnostic actions
  - pkg/probe for the vendor REST clients
  - pkg/resolver for the vendor registries
  - pkg/snapshot for caching passes as snapshots
*/
package orchestrator
