/*
Package remote runs shell commands on cluster hosts.

Executor is the only contract the health check engine depends on. SSHExecutor
implements it over golang.org/x/crypto/ssh, opening one session per command
with password or private key authentication and, when a known_hosts file is
configured, host key verification.

Guard wraps any Executor with a per-command timeout and a per-cluster rate
limit. The cluster under test is untrusted: a command that hangs is cut off
and reported as ErrTimeout, and a burst of checks cannot flood one cluster.

Failures are classified by sentinel errors:

	ErrAuthentication  credentials rejected or missing
	ErrTransport       connection or session failure
	ErrTimeout         command exceeded its time budget

A command that runs and exits non-zero is not an error. Its output is
returned for content-based classification.
*/
package remote
