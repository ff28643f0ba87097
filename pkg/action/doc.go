/*
Package action runs single diagnostic operations on a cluster over the remote
executor and classifies their raw output.

The orchestrator never talks to a cluster shell directly. Every command it
needs (HDFS file round trip, Kerberos ticket, MapReduce examples job,
dfsadmin report) is described here as an Action and executed by a Runner,
which turns the remote output into a types.JobResult.

# Architecture

	┌────────────────────────────────────────────────────────────┐
	│                         Runner                             │
	│              (wraps a remote.Executor)                     │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	                 ▼
	┌────────────────────────────────────────────────────────────┐
	│  1. Build the command from the cluster (Action.Command)    │
	│  2. Execute it over SSH or a local shell                   │
	│  3. Optionally run one fallback command (Action.Fallback)  │
	│  4. Decide success from stdout (Action.Succeeded)          │
	│  5. Extract alerts on failure (Action.Alerts)              │
	└────────────────┬───────────────────────────────────────────┘
	                 │
	                 ▼
	            Outcome ──► types.JobResult{Name, Success, Alerts}

# Core Components

Action: a command template plus a content predicate. Remote shells are not
trusted to return meaningful exit codes, so success is decided by looking
for a marker in stdout ("Deleted", "File written", ...).

	a := action.Action{
		Name: "Namenode report",
		Command: func(c *types.Cluster) string {
			return "hdfs dfsadmin -report"
		},
		Succeeded: action.Contains("Live datanodes"),
	}

Runner: executes actions through a remote.Executor and logs every failed
action with the cluster and action name.

	runner := action.NewRunner(executor)
	outcome, err := runner.Run(ctx, cluster, a)

Outcome: the classified result. JobResult converts it into the reported
form used in snapshots.

# HDFS Operations

HdfsOperations returns the file round trip run by the HDFS category, in
order:

	Create directory   hadoop fs -mkdir -p <dir>, then -test -d
	Write file         echo <content> | hadoop fs -put -f - <file>
	Read file          hadoop fs -cat <file>
	Delete file        hadoop fs -rm -skipTrash <file>
	Delete directory   hadoop fs -rm -r -skipTrash <dir>

The working directory is UserDirectory, /user/<ssh user>/clusterscope-check
(the user defaults to hdfs). The file operations fall back to TempFile,
/tmp/clusterscope-check-<cluster>.txt, when the output reports "No such file
or directory". The write also falls back on "Permission denied". An action
runs at most one fallback.

	results, err := runner.RunAll(ctx, cluster, action.HdfsOperations())
	if err != nil {
		// the cluster could not be reached; the service is omitted
	}
	for _, r := range results {
		fmt.Println(r.Name, r.Success, r.Alerts)
	}

RunAll keeps going after a failed action but stops at the first action that
returns an error, returning the results collected so far.

# Usage Examples

## Submitting the examples job

RunExamplesJob submits a job from the MapReduce examples jar. The jar is
located through a probe.JarSearcher once per cluster and the path is kept in
the discovery cache under cache.KeyExamplesJarPath:

	result, err := runner.RunExamplesJob(ctx, cluster, jars, discovery, action.PiJob())
	if err != nil {
		return err
	}
	if !result.Success {
		fmt.Println(result.Alerts)
	}

PiJob runs "yarn jar <jar> pi 5 10". The console output is parsed with
job.ParseOrFail, so a job that never prints its counters is reported as
failed with the captured error output as alerts.

When no jar matches ExamplesJarMask the job is reported as failed with the
alert "Can't find job jar on cluster!" and no command is submitted.

## Secured clusters

On a cluster with Secured set, RunExamplesJob first runs Kinit. A keytab is
preferred over a password:

	kinit -kt <keytab> <principal> && klist
	echo <password> | kinit <principal> && klist

The ticket is accepted when klist prints "Default principal". Otherwise the
job result carries "kinit failed: <alert>" and the job is not submitted.

## Reading HDFS usage

HdfsUsage runs hdfs dfsadmin -report and parses the aggregate capacity and
the per DataNode section:

	report, err := runner.HdfsUsage(ctx, cluster)
	if err != nil {
		return err
	}
	fmt.Printf("%.1f of %.1f GB used on %d nodes\n",
		report.Usage.UsedGB, report.Usage.TotalGB, len(report.Nodes))

ParseUsageReport is exported for callers holding a report from elsewhere.
Output it cannot read yields ErrUnparsableReport.

# Error Handling

Two kinds of failure are kept apart:

  - A command that ran and printed the wrong thing is a failed action. Its
    Outcome has Success false and its alerts carry the error channel, or
    stdout when stderr is empty.
  - A command that could not be delivered (transport failure, rejected
    credentials, cancelled context) returns an error wrapping
    ErrInvalidResponse and the remote error.

	_, err := runner.Run(ctx, cluster, a)
	if errors.Is(err, action.ErrInvalidResponse) {
		// abort this action only
	}
	if errors.Is(err, remote.ErrAuthentication) {
		// the SSH credentials of the cluster are wrong
	}

# Integration Points

  - pkg/remote executes the commands (SSH or local shell, rate limited)
  - pkg/probe provides the vendor JarSearcher
  - pkg/cache keeps the discovered jar path per cluster
  - pkg/job parses the MapReduce console output
  - pkg/orchestrator runs the HDFS and YARN categories on top of this package

Commands are assembled with go-shellquote, so paths and Kerberos principals
are quoted before they reach the remote shell.

# Troubleshooting

## Write file fails with Permission denied

The SSH user has no HDFS home directory. The fallback writes to /tmp; if that
fails too, check the HDFS permissions of /tmp.

## Examples job reports Can't find job jar on cluster!

The vendor jar search found nothing matching hadoop-mapreduce-examples. The
empty result is not cached, so the next pass searches again.

## Examples job reports kinit failed

Check the Kerberos principal and keytab path in the cluster configuration.
The keytab must be readable by the SSH user on the management host.

# See Also

  - pkg/remote for the executors
  - pkg/job for console output parsing
  - pkg/orchestrator for how results are combined into a pass
*/
package action
