package action

import (
	"context"
	"fmt"

	"github.com/cuemby/clusterscope/pkg/cache"
	"github.com/cuemby/clusterscope/pkg/job"
	"github.com/cuemby/clusterscope/pkg/probe"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/kballard/go-shellquote"
)

// ExamplesJarMask is the name prefix of the MapReduce examples jar
const ExamplesJarMask = "hadoop-mapreduce-examples"

// jarNotFoundAlert is reported when the examples jar is not on the cluster
const jarNotFoundAlert = "Can't find job jar on cluster!"

// ExamplesJob submits a job from the MapReduce examples jar
type ExamplesJob struct {
	Name string
	Args []string
}

// PiJob estimates pi with 5 maps of 10 samples each
func PiJob() ExamplesJob {
	return ExamplesJob{Name: "pi", Args: []string{"5", "10"}}
}

// RunExamplesJob submits the job and parses its console output. The jar path
// is located once per cluster and kept in the discovery cache. On a secured
// cluster a Kerberos ticket is obtained first; if that fails the job is
// reported as failed without being submitted.
func (r *Runner) RunExamplesJob(ctx context.Context, cluster *types.Cluster, jars probe.JarSearcher, discovery *cache.Discovery, j ExamplesJob) (types.JobResult, error) {
	if cluster.Secured {
		outcome, err := r.Run(ctx, cluster, Kinit())
		if err != nil {
			return types.JobResult{}, err
		}
		if !outcome.Success {
			return job.Failed(j.Name, fmt.Sprintf("kinit failed: %s", outcome.Alerts[0])), nil
		}
	}

	jar, err := discovery.GetOrLoad(cluster.Name, cache.KeyExamplesJarPath, func() (string, error) {
		return jars.FindJar(ctx, cluster, ExamplesJarMask)
	})
	if err != nil {
		return types.JobResult{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if jar == "" {
		return job.Failed(j.Name, jarNotFoundAlert), nil
	}

	args := append([]string{"jar", jar, j.Name}, j.Args...)
	res, err := r.executor.Execute(ctx, cluster, "yarn "+shellquote.Join(args...))
	if err != nil {
		return types.JobResult{}, fmt.Errorf("%w: job %s on cluster %s: %w", ErrInvalidResponse, j.Name, cluster.Name, err)
	}

	result := job.ParseOrFail(j.Name, res.Stdout, res.Stderr)
	r.logger.Debug().
		Str("cluster", cluster.Name).
		Str("job", j.Name).
		Bool("success", result.Success).
		Int("alerts", len(result.Alerts)).
		Msg("Examples job finished")
	return result, nil
}
