/*
Package events provides an in-process event broker for health check
activity.

The snapshot coalescer publishes one event per request (snapshot.created,
snapshot.reused or snapshot.failed) and the API publishes check.completed
or check.failed for on-demand checks. Subscribers receive events on a
buffered channel; slow subscribers miss events rather than slowing down a
health check, and Publish itself never blocks.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for ev := range sub {
			log.Info().Str("cluster", ev.Cluster).Msg(string(ev.Type))
		}
	}()
*/
package events
