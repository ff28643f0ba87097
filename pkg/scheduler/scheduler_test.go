package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTaker struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
	empty map[string]bool
}

func newFakeTaker() *fakeTaker {
	return &fakeTaker{calls: map[string]int{}, fail: map[string]error{}, empty: map[string]bool{}}
}

func (f *fakeTaker) Take(ctx context.Context, name string) (*types.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if err := f.fail[name]; err != nil {
		return nil, err
	}
	if f.empty[name] {
		return nil, nil
	}
	return &types.Snapshot{ClusterName: name}, nil
}

func (f *fakeTaker) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

type fakeLister struct {
	clusters []*types.Cluster
	err      error
}

func (f fakeLister) ListClusters() ([]*types.Cluster, error) {
	return f.clusters, f.err
}

func TestSnapshotAll(t *testing.T) {
	tests := []struct {
		name     string
		clusters []string
		failing  string
		empty    string
		expected int
	}{
		{name: "all clusters", clusters: []string{"prod-a", "prod-b"}, expected: 2},
		{name: "failure does not stop the round", clusters: []string{"prod-a", "prod-b", "prod-c"}, failing: "prod-a", expected: 2},
		{name: "failed pass", clusters: []string{"prod-a", "prod-b"}, empty: "prod-b", expected: 1},
		{name: "no clusters", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taker := newFakeTaker()
			if tt.failing != "" {
				taker.fail[tt.failing] = errors.New("disk full")
			}
			if tt.empty != "" {
				taker.empty[tt.empty] = true
			}
			var clusters []*types.Cluster
			for _, name := range tt.clusters {
				clusters = append(clusters, &types.Cluster{Name: name})
			}

			s := NewScheduler(taker, fakeLister{clusters: clusters}, time.Hour)
			taken, err := s.SnapshotAll(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, taken)
			for _, name := range tt.clusters {
				assert.Equal(t, 1, taker.count(name), name)
			}
		})
	}
}

func TestSnapshotAllListError(t *testing.T) {
	s := NewScheduler(newFakeTaker(), fakeLister{err: errors.New("closed")}, time.Hour)
	_, err := s.SnapshotAll(context.Background())
	assert.Error(t, err)
}

func TestSnapshotAllStopsOnCancel(t *testing.T) {
	taker := newFakeTaker()
	s := NewScheduler(taker, fakeLister{clusters: []*types.Cluster{{Name: "prod-a"}}}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.SnapshotAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, taker.count("prod-a"))
}

func TestSchedulerLoop(t *testing.T) {
	taker := newFakeTaker()
	s := NewScheduler(taker, fakeLister{clusters: []*types.Cluster{{Name: "prod-a"}}}, 10*time.Millisecond)

	s.Start()
	s.Start() // second start is a no-op
	assert.Eventually(t, func() bool { return taker.count("prod-a") >= 3 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	after := taker.count("prod-a")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, taker.count("prod-a"), "no rounds after Stop")
	s.Stop()
}
