package status

import (
	"fmt"
	"testing"

	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/stretchr/testify/assert"
)

const (
	good       = types.StatusGood
	concerning = types.StatusConcerning
	bad        = types.StatusBad
)

func TestMergePrecedenceTable(t *testing.T) {
	tests := []struct {
		probe types.Status
		jobs  types.Status
		want  types.Status
	}{
		{good, good, good},
		{good, concerning, concerning},
		{good, bad, bad},
		{concerning, good, concerning},
		{concerning, concerning, concerning},
		{concerning, bad, bad},
		{bad, good, concerning},
		{bad, concerning, concerning},
		{bad, bad, concerning},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("probe=%s/jobs=%s", tt.probe, tt.jobs), func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.probe, tt.jobs))
		})
	}
}

func TestMergeIsStableForFixedInputs(t *testing.T) {
	for _, s := range []types.Status{good, concerning, bad} {
		first := Merge(s, s)
		assert.Equal(t, first, Merge(s, s), "merging %s with itself must be repeatable", s)
		assert.Equal(t, first, Merge(s, first), "merging %s with its own result must not drift", s)
	}
}

func TestFromJobs(t *testing.T) {
	ok := types.JobResult{Name: "ok", Success: true}
	failed := types.JobResult{Name: "failed", Success: false}

	tests := []struct {
		name string
		jobs []types.JobResult
		want types.Status
	}{
		// No job ran, so no job failed.
		{name: "empty", jobs: nil, want: good},
		{name: "all succeeded", jobs: []types.JobResult{ok, ok}, want: good},
		{name: "none succeeded", jobs: []types.JobResult{failed, failed}, want: bad},
		{name: "mixed", jobs: []types.JobResult{ok, failed}, want: concerning},
		{name: "single failure", jobs: []types.JobResult{failed}, want: bad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromJobs(tt.jobs))
		})
	}
}

func TestCluster(t *testing.T) {
	svc := func(s types.Status) types.ServiceStatus { return types.ServiceStatus{Status: s} }

	assert.Equal(t, good, Cluster(nil))
	assert.Equal(t, good, Cluster([]types.ServiceStatus{svc(good), svc(good)}))
	assert.Equal(t, concerning, Cluster([]types.ServiceStatus{svc(good), svc(concerning)}))
	assert.Equal(t, bad, Cluster([]types.ServiceStatus{svc(bad), svc(concerning), svc(good)}))
}

func TestWorst(t *testing.T) {
	assert.Equal(t, bad, Worst(good, bad))
	assert.Equal(t, concerning, Worst(concerning, good))
}
