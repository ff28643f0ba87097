package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cuemby/clusterscope/pkg/action"
	"github.com/cuemby/clusterscope/pkg/probe"
	"github.com/cuemby/clusterscope/pkg/remote"
	"github.com/cuemby/clusterscope/pkg/resolver"
	"github.com/cuemby/clusterscope/pkg/storage"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClusters map[string]*types.Cluster

func (f fakeClusters) GetClusterByName(name string) (*types.Cluster, error) {
	c, ok := f[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return c, nil
}

type fakeReceiver struct {
	statuses []types.ServiceStatus
	err      error
}

func (f *fakeReceiver) ServiceStatus(ctx context.Context, c *types.Cluster, service types.ServiceType) (types.ServiceStatus, error) {
	if f.err != nil {
		return types.ServiceStatus{}, f.err
	}
	for _, s := range f.statuses {
		if s.Type == service {
			return s, nil
		}
	}
	return types.ServiceStatus{}, probe.ErrServiceNotFound
}

func (f *fakeReceiver) ServiceStatuses(ctx context.Context, c *types.Cluster) ([]types.ServiceStatus, error) {
	return f.statuses, f.err
}

type fakeLogs struct{}

func (fakeLogs) LogDirectory(ctx context.Context, c *types.Cluster, s types.ServiceType) (string, error) {
	return "/var/log/" + strings.ToLower(string(s)), nil
}

type fakeJars struct{ path string }

func (f fakeJars) FindJar(ctx context.Context, c *types.Cluster, mask string) (string, error) {
	return f.path, nil
}

type fakeMemory struct{}

func (fakeMemory) Memory(ctx context.Context, c *types.Cluster) (types.MemoryUsage, error) {
	return types.MemoryUsage{UsedMB: 1024, TotalMB: 4096}, nil
}

// shell answers commands by substring and counts them
type shell struct {
	mu       sync.Mutex
	answers  map[string]remote.Result
	failing  map[string]error
	commands []string
}

func (s *shell) Execute(ctx context.Context, c *types.Cluster, cmd string) (remote.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	for marker, err := range s.failing {
		if strings.Contains(cmd, marker) {
			return remote.Result{}, err
		}
	}
	for marker, res := range s.answers {
		if strings.Contains(cmd, marker) {
			return res, nil
		}
	}
	return remote.Result{}, nil
}

func (s *shell) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commands)
}

const piSuccess = "INFO mapreduce.Job: Job job_1_0001 completed successfully\n"

func healthyShell() *shell {
	return &shell{answers: map[string]remote.Result{
		"yarn jar":  {Stdout: piSuccess},
		"-mkdir":    {Stdout: "Directory created"},
		"-put":      {Stdout: "File written"},
		"-cat":      {Stdout: "clusterscope hdfs check"},
		"-rm":       {Stdout: "Deleted"},
		"dfsadmin":  {Stdout: "Configured Capacity: 107374182400 (100 GB)\nDFS Used: 10737418240 (10 GB)\n\nName: 10.0.0.1:50010 (dn1)\nConfigured Capacity: 107374182400 (100 GB)\nDFS Used: 10737418240 (10 GB)\n"},
	}}
}

var prodA = &types.Cluster{ID: "c1", Name: "prod-a", Vendor: types.VendorCloudera, Host: "cm.prod-a"}

func newPerformer(receiver probe.StatusReceiver, exec remote.Executor) *Performer {
	return NewPerformer(Config{
		Clusters: fakeClusters{"prod-a": prodA},
		Statuses: resolver.NewRegistry[probe.StatusReceiver](resolver.CapabilityServiceStatus).
			Register(types.VendorCloudera, receiver),
		Logs: resolver.NewRegistry[probe.LogSearcher](resolver.CapabilityLogSearch).
			Register(types.VendorCloudera, fakeLogs{}),
		Jars: resolver.NewRegistry[probe.JarSearcher](resolver.CapabilityJarSearch).
			Register(types.VendorCloudera, fakeJars{path: "/opt/examples.jar"}),
		Memory: fakeMemory{},
		Runner: action.NewRunner(exec),
	})
}

func TestPerformAllProdA(t *testing.T) {
	receiver := &fakeReceiver{statuses: []types.ServiceStatus{
		{Type: types.ServiceYARN, Status: types.StatusGood},
	}}
	p := newPerformer(receiver, healthyShell())

	acc, err := p.Perform(context.Background(), "prod-a", ScopeAll)
	require.NoError(t, err)

	assert.Equal(t, types.StatusGood, acc.Status())
	services := acc.ServiceStatuses()
	require.Len(t, services, 1, "HDFS is unknown to the vendor API and is omitted")
	assert.Equal(t, types.ServiceYARN, services[0].Type)
	assert.Equal(t, types.StatusGood, services[0].Status)
	assert.Equal(t, "/var/log/yarn", services[0].LogDirectory)
	require.Len(t, services[0].JobResults, 1)
	assert.True(t, services[0].JobResults[0].Success)

	yarn, ok := acc.Yarn()
	require.True(t, ok)
	assert.Equal(t, types.MemoryUsage{UsedMB: 1024, TotalMB: 4096}, yarn.Memory)
}

func TestPerformAllCategories(t *testing.T) {
	receiver := &fakeReceiver{statuses: []types.ServiceStatus{
		{Type: types.ServiceYARN, Status: types.StatusBad},
		{Type: types.ServiceHDFS, Status: types.StatusGood},
		{Type: types.ServiceHive, Status: types.StatusConcerning},
		{Type: types.ServiceSpark, Status: types.StatusGood},
		{Type: types.ServiceSpark, Status: types.StatusBad},
	}}
	p := newPerformer(receiver, healthyShell())

	acc, err := p.Perform(context.Background(), "prod-a", ScopeAll)
	require.NoError(t, err)

	yarn, _ := acc.Service(types.ServiceYARN)
	assert.Equal(t, types.StatusConcerning, yarn.Status, "BAD probe caps a successful job at CONCERNING")

	hdfs, ok := acc.Hdfs()
	require.True(t, ok)
	assert.Equal(t, types.StatusGood, hdfs.Service.Status)
	assert.Len(t, hdfs.Service.JobResults, 5)
	assert.InDelta(t, 10.0, hdfs.Usage.UsedGB, 0.001)
	assert.Len(t, hdfs.Nodes, 1)

	spark, _ := acc.Service(types.ServiceSpark)
	assert.Equal(t, types.StatusBad, spark.Status, "duplicate vendor services fold worst-of")

	assert.Equal(t, 4, acc.Len())
	assert.Equal(t, types.StatusBad, acc.Status())
}

func TestPerformSingleCategory(t *testing.T) {
	receiver := &fakeReceiver{statuses: []types.ServiceStatus{
		{Type: types.ServiceYARN, Status: types.StatusGood},
		{Type: types.ServiceHDFS, Status: types.StatusGood},
		{Type: types.ServiceHive, Status: types.StatusGood},
	}}
	exec := healthyShell()
	p := newPerformer(receiver, exec)

	acc, err := p.Perform(context.Background(), "prod-a", ScopeHdfs)
	require.NoError(t, err)
	hdfs, ok := acc.Hdfs()
	require.True(t, ok)
	assert.Equal(t, types.ServiceHDFS, hdfs.Service.Type)
	assert.Equal(t, 1, acc.Len())
	for _, cmd := range exec.commands {
		assert.NotContains(t, cmd, "yarn jar")
	}

	acc, err = p.Perform(context.Background(), "prod-a", ScopeOtherServices)
	require.NoError(t, err)
	others := acc.ServiceStatuses()
	require.Len(t, others, 1)
	assert.Equal(t, types.ServiceHive, others[0].Type)

	acc, err = p.Perform(context.Background(), "prod-a", ScopeYarn)
	require.NoError(t, err)
	yarn, ok := acc.Yarn()
	require.True(t, ok)
	assert.Equal(t, types.StatusGood, yarn.Service.Status)
	_, ok = acc.Hdfs()
	assert.False(t, ok)
}

func TestPerformUnresolvedVendor(t *testing.T) {
	hdp := &types.Cluster{Name: "hdp-1", Vendor: types.VendorHortonworks}
	exec := healthyShell()
	p := newPerformer(&fakeReceiver{}, exec)
	p.clusters = fakeClusters{"hdp-1": hdp}

	for _, scope := range []Scope{ScopeAll, ScopeYarn, ScopeHdfs, ScopeOtherServices} {
		t.Run(string(scope), func(t *testing.T) {
			acc, err := p.Perform(context.Background(), "hdp-1", scope)
			assert.Nil(t, acc)

			var checkErr *CheckError
			require.True(t, errors.As(err, &checkErr))
			assert.Equal(t, "hdp-1", checkErr.Cluster)
			assert.Equal(t, types.VendorHortonworks, checkErr.Vendor)
			assert.ErrorIs(t, err, resolver.ErrUnresolvedImplementation)
			assert.Contains(t, err.Error(), `"HDP"`)
		})
	}
	assert.Zero(t, exec.count(), "no remote call before resolution")
}

func TestPerformOmitsServiceOnAuthFailure(t *testing.T) {
	receiver := &fakeReceiver{statuses: []types.ServiceStatus{
		{Type: types.ServiceYARN, Status: types.StatusGood},
		{Type: types.ServiceHDFS, Status: types.StatusGood},
		{Type: types.ServiceHive, Status: types.StatusGood},
	}}
	exec := healthyShell()
	exec.failing = map[string]error{"yarn jar": remote.ErrAuthentication}
	p := newPerformer(receiver, exec)

	acc, err := p.Perform(context.Background(), "prod-a", ScopeAll)
	require.NoError(t, err)

	_, ok := acc.Service(types.ServiceYARN)
	assert.False(t, ok)
	_, ok = acc.Service(types.ServiceHDFS)
	assert.True(t, ok, "sibling categories are not aborted")
	_, ok = acc.Service(types.ServiceHive)
	assert.True(t, ok)

	yarnOnly, err := p.Perform(context.Background(), "prod-a", ScopeYarn)
	require.NoError(t, err)
	_, ok = yarnOnly.Yarn()
	assert.False(t, ok)
	assert.Zero(t, yarnOnly.Len())
}

func TestPerformOmitsEverythingWhenVendorAPIIsDown(t *testing.T) {
	p := newPerformer(&fakeReceiver{err: probe.ErrUnexpectedResponse}, healthyShell())

	acc, err := p.Perform(context.Background(), "prod-a", ScopeAll)
	require.NoError(t, err)
	assert.Zero(t, acc.Len())
	assert.Equal(t, types.StatusGood, acc.Status())
}

func TestPerformUnknownCluster(t *testing.T) {
	p := newPerformer(&fakeReceiver{}, healthyShell())
	_, err := p.Perform(context.Background(), "nope", ScopeAll)
	assert.ErrorIs(t, err, ErrClusterNotFound)
}

func TestPerformUnknownScope(t *testing.T) {
	p := newPerformer(&fakeReceiver{}, healthyShell())
	_, err := p.PerformCluster(context.Background(), prodA, Scope("IMPALA"))
	assert.ErrorIs(t, err, ErrUnknownScope)
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		in      string
		want    Scope
		wantErr bool
	}{
		{"all", ScopeAll, false},
		{"YARN", ScopeYarn, false},
		{"hdfs", ScopeHdfs, false},
		{"other-services", ScopeOtherServices, false},
		{"OTHER_SERVICES", ScopeOtherServices, false},
		{"others", ScopeOtherServices, false},
		{"hive", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScope(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownScope)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
