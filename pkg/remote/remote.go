package remote

import (
	"context"
	"errors"

	"github.com/cuemby/clusterscope/pkg/types"
)

var (
	// ErrAuthentication means the remote session could not be authenticated
	ErrAuthentication = errors.New("remote authentication failed")

	// ErrTransport means the command could not be delivered or its session broke
	ErrTransport = errors.New("remote transport failed")

	// ErrTimeout means the command did not finish within its time budget
	ErrTimeout = errors.New("remote command timed out")
)

// Result is the captured output of one remote command. ExitCode is reported
// for diagnostics only; remote shells are not trusted to set it correctly.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs a shell command on a cluster
type Executor interface {
	Execute(ctx context.Context, cluster *types.Cluster, command string) (Result, error)
}

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(ctx context.Context, cluster *types.Cluster, command string) (Result, error)

// Execute calls f
func (f ExecutorFunc) Execute(ctx context.Context, cluster *types.Cluster, command string) (Result, error) {
	return f(ctx, cluster, command)
}
