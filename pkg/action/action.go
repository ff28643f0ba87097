package action

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cuemby/clusterscope/pkg/log"
	"github.com/cuemby/clusterscope/pkg/remote"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/rs/zerolog"
)

// ErrInvalidResponse means an action could not obtain a usable answer from
// the cluster. It aborts the action only.
var ErrInvalidResponse = errors.New("invalid response from cluster")

// Action is a single remote diagnostic operation
type Action struct {
	// Name is reported as the JobResult name
	Name string

	// Command builds the shell command for a cluster
	Command func(cluster *types.Cluster) string

	// Succeeded inspects the output. Exit codes of remote shells are not
	// trusted, so success is decided on content.
	Succeeded func(res remote.Result) bool

	// Alerts extracts alerts from a failed run. Defaults to the error channel
	// as a single alert.
	Alerts func(res remote.Result) []string

	// Fallback may return a second command to run once after inspecting the
	// first result
	Fallback func(cluster *types.Cluster, res remote.Result) (string, bool)
}

// Outcome is the classified result of running an action
type Outcome struct {
	Name    string
	Result  remote.Result
	Success bool
	Alerts  []string
}

// JobResult converts the outcome into its reported form
func (o Outcome) JobResult() types.JobResult {
	return types.JobResult{
		Name:    o.Name,
		Success: o.Success,
		Alerts:  o.Alerts,
	}
}

// Runner executes actions through a remote executor
type Runner struct {
	executor remote.Executor
	logger   zerolog.Logger
}

// NewRunner creates a runner
func NewRunner(executor remote.Executor) *Runner {
	return &Runner{
		executor: executor,
		logger:   log.WithComponent("action"),
	}
}

// Run executes an action and classifies its output. Transport and
// authentication failures are returned wrapped in ErrInvalidResponse.
func (r *Runner) Run(ctx context.Context, cluster *types.Cluster, a Action) (Outcome, error) {
	logger := r.logger.With().Str("cluster", cluster.Name).Str("action", a.Name).Logger()

	res, err := r.executor.Execute(ctx, cluster, a.Command(cluster))
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %s on cluster %s: %w", ErrInvalidResponse, a.Name, cluster.Name, err)
	}

	if a.Fallback != nil {
		if cmd, ok := a.Fallback(cluster, res); ok {
			logger.Debug().Str("command", cmd).Msg("Running fallback command")
			res, err = r.executor.Execute(ctx, cluster, cmd)
			if err != nil {
				return Outcome{}, fmt.Errorf("%w: %s fallback on cluster %s: %w", ErrInvalidResponse, a.Name, cluster.Name, err)
			}
		}
	}

	outcome := Outcome{
		Name:    a.Name,
		Result:  res,
		Success: a.Succeeded(res),
	}
	if !outcome.Success {
		if a.Alerts != nil {
			outcome.Alerts = a.Alerts(res)
		} else {
			outcome.Alerts = []string{errorMessage(res)}
		}
		logger.Warn().Strs("alerts", outcome.Alerts).Msg("Action failed")
	} else {
		logger.Debug().Msg("Action succeeded")
	}
	return outcome, nil
}

// RunAll runs actions in order and collects their job results. It stops at
// the first action that returns an error.
func (r *Runner) RunAll(ctx context.Context, cluster *types.Cluster, actions []Action) ([]types.JobResult, error) {
	results := make([]types.JobResult, 0, len(actions))
	for _, a := range actions {
		outcome, err := r.Run(ctx, cluster, a)
		if err != nil {
			return results, err
		}
		results = append(results, outcome.JobResult())
	}
	return results, nil
}

// Contains returns a predicate matching marker in stdout
func Contains(marker string) func(remote.Result) bool {
	return func(res remote.Result) bool {
		return strings.Contains(res.Stdout, marker)
	}
}

func errorMessage(res remote.Result) string {
	if msg := strings.TrimSpace(res.Stderr); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(res.Stdout); msg != "" {
		return msg
	}
	return "command produced no output"
}
