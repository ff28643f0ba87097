// Package status merges health signals into composite verdicts.
package status

import "github.com/cuemby/clusterscope/pkg/types"

// Merge combines the status reported by a live REST probe with the status
// derived from diagnostic job runs. A BAD probe caps the result at
// CONCERNING; a CONCERNING probe is overridden only when the jobs failed
// outright.
func Merge(probe, jobs types.Status) types.Status {
	if probe == types.StatusBad || (probe == types.StatusConcerning && jobs != types.StatusBad) {
		return types.StatusConcerning
	}
	return jobs
}

// FromJobs derives a status from job outcomes: GOOD when every job
// succeeded, BAD when none did, CONCERNING otherwise. No jobs means nothing
// failed, so an empty list is GOOD.
func FromJobs(results []types.JobResult) types.Status {
	if len(results) == 0 {
		return types.StatusGood
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	switch succeeded {
	case len(results):
		return types.StatusGood
	case 0:
		return types.StatusBad
	default:
		return types.StatusConcerning
	}
}

// Cluster folds service statuses into the cluster status: the worst
// service status wins. A cluster without services is GOOD.
func Cluster(services []types.ServiceStatus) types.Status {
	worst := types.StatusGood
	for _, s := range services {
		if s.Status.Severity() > worst.Severity() {
			worst = s.Status
		}
	}
	return worst
}

// Worst returns the more severe of two statuses
func Worst(a, b types.Status) types.Status {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}
