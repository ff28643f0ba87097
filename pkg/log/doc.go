/*
Package log provides structured logging for clusterscope using zerolog.

A single global Logger is configured once with Init, either as JSON lines for
log collectors or as human readable console output:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

Components derive child loggers that carry identifying fields so every line of
a health check pass can be filtered by component, cluster and service:

	logger := log.WithCluster("orchestrator", "prod-a")
	logger.Warn().Err(err).Str("service", "YARN").Msg("service omitted")

Output in JSON mode:

	{"level":"warn","component":"orchestrator","cluster":"prod-a",
	 "service":"YARN","error":"invalid response","time":"...","message":"service omitted"}
*/
package log
