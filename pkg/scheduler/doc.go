/*
Package scheduler keeps cluster snapshots current.

The Scheduler walks every known cluster on a fixed interval and asks the
snapshot coalescer for a snapshot. Because the coalescer reuses a snapshot
while it is fresh, the interval bounds how quickly a stale snapshot is
replaced rather than how often clusters are probed. Clusters are visited one
after another so a round never loads several clusters at once.

	sched := scheduler.NewScheduler(coalescer, store, 15*time.Minute)
	sched.Start()
	defer sched.Stop()
*/
package scheduler
