package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cuemby/clusterscope/pkg/orchestrator"
	"github.com/cuemby/clusterscope/pkg/resolver"
	"github.com/cuemby/clusterscope/pkg/snapshot"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshots struct {
	latest    map[string]*types.Snapshot
	history   []*types.Snapshot
	lastLimit int
	checkErr  error
	checked   orchestrator.Scope
}

func (f *fakeSnapshots) Latest(ctx context.Context, name string) (*types.Snapshot, error) {
	if name == "missing" {
		return nil, fmt.Errorf("%w: %s", orchestrator.ErrClusterNotFound, name)
	}
	s, ok := f.latest[name]
	if !ok {
		return nil, snapshot.ErrNoSnapshot
	}
	return s, nil
}

func (f *fakeSnapshots) History(name string, limit int) ([]*types.Snapshot, error) {
	f.lastLimit = limit
	return f.history, nil
}

func (f *fakeSnapshots) FullCheck(ctx context.Context, name string) (*orchestrator.Accumulator, error) {
	f.checked = orchestrator.ScopeAll
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	acc := orchestrator.NewAccumulator()
	if err := acc.SetHdfs(f.hdfs()); err != nil {
		return nil, err
	}
	if err := acc.SetYarn(f.yarn()); err != nil {
		return nil, err
	}
	if err := acc.Add(types.ServiceStatus{Type: types.ServiceHive, Status: types.StatusBad}); err != nil {
		return nil, err
	}
	return acc, nil
}

func (f *fakeSnapshots) YarnCheck(ctx context.Context, name string) (orchestrator.YarnResult, error) {
	f.checked = orchestrator.ScopeYarn
	if f.checkErr != nil {
		return orchestrator.YarnResult{}, f.checkErr
	}
	return f.yarn(), nil
}

func (f *fakeSnapshots) HdfsCheck(ctx context.Context, name string) (orchestrator.HdfsResult, error) {
	f.checked = orchestrator.ScopeHdfs
	if f.checkErr != nil {
		return orchestrator.HdfsResult{}, f.checkErr
	}
	return f.hdfs(), nil
}

func (f *fakeSnapshots) OtherServicesCheck(ctx context.Context, name string) ([]types.ServiceStatus, error) {
	f.checked = orchestrator.ScopeOtherServices
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	return []types.ServiceStatus{
		{Type: types.ServiceHive, Status: types.StatusBad},
		{Type: types.ServiceZooKeeper, Status: types.StatusGood},
	}, nil
}

func (f *fakeSnapshots) hdfs() orchestrator.HdfsResult {
	return orchestrator.HdfsResult{
		Service: types.ServiceStatus{Type: types.ServiceHDFS, Status: types.StatusGood},
		Usage:   types.HdfsUsage{UsedGB: 10, TotalGB: 100},
	}
}

func (f *fakeSnapshots) yarn() orchestrator.YarnResult {
	return orchestrator.YarnResult{
		Service: types.ServiceStatus{Type: types.ServiceYARN, Status: types.StatusConcerning},
		Memory:  types.MemoryUsage{UsedMB: 2048, TotalMB: 8192},
	}
}

type fakeClusters []*types.Cluster

func (f fakeClusters) ListClusters() ([]*types.Cluster, error) {
	return f, nil
}

func newTestServer(snaps *fakeSnapshots) *httptest.Server {
	clusters := fakeClusters{{
		ID:     "c1",
		Name:   "prod-a",
		Vendor: types.VendorCloudera,
		Host:   "cm.example.com",
		HTTP:   types.Credentials{Username: "admin", Password: "hunter2"},
	}}
	return httptest.NewServer(NewServer(snaps, clusters).Handler())
}

func get(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestListClustersHidesCredentials(t *testing.T) {
	srv := newTestServer(&fakeSnapshots{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/clusters")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "prod-a", raw[0]["name"])
	assert.NotContains(t, raw[0], "http")
	assert.NotContains(t, raw[0], "ssh")
}

func TestGetSnapshot(t *testing.T) {
	snaps := &fakeSnapshots{latest: map[string]*types.Snapshot{
		"prod-a": {ID: "s1", ClusterName: "prod-a", Status: types.StatusGood, TakenAt: time.Now().UTC()},
	}}
	srv := newTestServer(snaps)
	defer srv.Close()

	tests := []struct {
		name     string
		cluster  string
		wantCode int
	}{
		{"existing snapshot", "prod-a", http.StatusOK},
		{"no snapshot yet", "prod-b", http.StatusNotFound},
		{"unknown cluster", "missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := get(t, srv.URL+"/api/clusters/"+tt.cluster+"/snapshot", nil)
			assert.Equal(t, tt.wantCode, code)
		})
	}

	var got types.Snapshot
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/api/clusters/prod-a/snapshot", &got))
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, types.StatusGood, got.Status)
}

func TestGetHistoryLimit(t *testing.T) {
	snaps := &fakeSnapshots{}
	srv := newTestServer(snaps)
	defer srv.Close()

	var history []*types.Snapshot
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/api/clusters/prod-a/history?limit=5", &history))
	assert.Equal(t, 5, snaps.lastLimit)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/api/clusters/prod-a/history?limit=abc", &errResp))
	assert.NotEmpty(t, errResp.Error)
}

func TestRunCheck(t *testing.T) {
	snaps := &fakeSnapshots{}
	srv := newTestServer(snaps)
	defer srv.Close()

	var got CheckResponse
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/api/clusters/prod-a/check/hdfs", &got))
	assert.Equal(t, orchestrator.ScopeHdfs, snaps.checked)
	assert.Equal(t, types.StatusGood, got.Status)
	require.NotNil(t, got.Hdfs)
	assert.Equal(t, 100.0, got.Hdfs.Usage.TotalGB)
	assert.Nil(t, got.Memory)
	require.Len(t, got.Services, 1)
	assert.Equal(t, types.ServiceHDFS, got.Services[0].Type)
}

func TestRunCheckViews(t *testing.T) {
	tests := []struct {
		scope        orchestrator.Scope
		wantStatus   types.Status
		wantServices []types.ServiceType
		wantHdfs     bool
		wantMemory   bool
	}{
		{orchestrator.ScopeYarn, types.StatusConcerning, []types.ServiceType{types.ServiceYARN}, false, true},
		{orchestrator.ScopeHdfs, types.StatusGood, []types.ServiceType{types.ServiceHDFS}, true, false},
		{orchestrator.ScopeOtherServices, types.StatusBad, []types.ServiceType{types.ServiceHive, types.ServiceZooKeeper}, false, false},
		{orchestrator.ScopeAll, types.StatusBad, []types.ServiceType{types.ServiceHDFS, types.ServiceHive, types.ServiceYARN}, true, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.scope), func(t *testing.T) {
			snaps := &fakeSnapshots{}
			resp, err := RunCheck(context.Background(), snaps, "prod-a", tt.scope)
			require.NoError(t, err)
			assert.Equal(t, tt.scope, snaps.checked)
			assert.Equal(t, tt.wantStatus, resp.Status)

			var got []types.ServiceType
			for _, s := range resp.Services {
				got = append(got, s.Type)
			}
			assert.ElementsMatch(t, tt.wantServices, got)
			assert.Equal(t, tt.wantHdfs, resp.Hdfs != nil)
			assert.Equal(t, tt.wantMemory, resp.Memory != nil)
		})
	}
}

func TestRunCheckUnknownScope(t *testing.T) {
	_, err := RunCheck(context.Background(), &fakeSnapshots{}, "prod-a", orchestrator.Scope("NETWORK"))
	assert.ErrorIs(t, err, orchestrator.ErrUnknownScope)
}

func TestRunCheckErrors(t *testing.T) {
	tests := []struct {
		name     string
		scope    string
		err      error
		wantCode int
	}{
		{"unknown scope", "network", nil, http.StatusBadRequest},
		{"unknown cluster", "all", fmt.Errorf("%w: prod-z", orchestrator.ErrClusterNotFound), http.StatusNotFound},
		{
			"unresolved vendor",
			"yarn",
			&orchestrator.CheckError{
				Cluster: "prod-a",
				Vendor:  types.VendorHortonworks,
				Err:     &resolver.UnresolvedImplementationError{Capability: resolver.CapabilityServiceStatus, Vendor: types.VendorHortonworks},
			},
			http.StatusNotImplemented,
		},
		{"no service answered", "yarn", orchestrator.ErrNoResult, http.StatusBadGateway},
		{"anything else", "all", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakeSnapshots{checkErr: tt.err})
			defer srv.Close()

			var errResp ErrorResponse
			assert.Equal(t, tt.wantCode, get(t, srv.URL+"/api/clusters/prod-a/check/"+tt.scope, &errResp))
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(&fakeSnapshots{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
