package orchestrator

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cuemby/clusterscope/pkg/status"
	"github.com/cuemby/clusterscope/pkg/types"
)

// ErrDuplicateService means a service was already reported in this pass
var ErrDuplicateService = errors.New("service already reported")

// HdfsResult is the HDFS part of a health check pass
type HdfsResult struct {
	Service types.ServiceStatus
	Usage   types.HdfsUsage
	Nodes   []types.NodeUsage
}

// YarnResult is the YARN part of a health check pass
type YarnResult struct {
	Service types.ServiceStatus
	Memory  types.MemoryUsage
}

// Accumulator collects the results of one health check pass. It holds at
// most one status per service type and is safe for concurrent use.
type Accumulator struct {
	mu       sync.Mutex
	services map[types.ServiceType]types.ServiceStatus
	hdfs     *HdfsResult
	yarn     *YarnResult
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{services: make(map[types.ServiceType]types.ServiceStatus)}
}

// Add records a service status. A second status for the same service is
// rejected and the first one kept.
func (a *Accumulator) Add(s types.ServiceStatus) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addLocked(s)
}

func (a *Accumulator) addLocked(s types.ServiceStatus) error {
	if _, exists := a.services[s.Type]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateService, s.Type)
	}
	a.services[s.Type] = s
	return nil
}

// SetHdfs records the HDFS result and its service status
func (a *Accumulator) SetHdfs(r HdfsResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.addLocked(r.Service); err != nil {
		return err
	}
	a.hdfs = &r
	return nil
}

// SetYarn records the YARN result and its service status
func (a *Accumulator) SetYarn(r YarnResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.addLocked(r.Service); err != nil {
		return err
	}
	a.yarn = &r
	return nil
}

// Hdfs returns the HDFS result when HDFS was checked
func (a *Accumulator) Hdfs() (HdfsResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.hdfs == nil {
		return HdfsResult{}, false
	}
	return *a.hdfs, true
}

// Yarn returns the YARN result when YARN was checked
func (a *Accumulator) Yarn() (YarnResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.yarn == nil {
		return YarnResult{}, false
	}
	return *a.yarn, true
}

// Service returns the status of one service
func (a *Accumulator) Service(t types.ServiceType) (types.ServiceStatus, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.services[t]
	return s, ok
}

// ServiceStatuses returns every recorded status ordered by service type
func (a *Accumulator) ServiceStatuses() []types.ServiceStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	statuses := make([]types.ServiceStatus, 0, len(a.services))
	for _, s := range a.services {
		statuses = append(statuses, s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Type < statuses[j].Type })
	return statuses
}

// Len returns the number of recorded services
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.services)
}

// Status is the composite cluster status of the pass
func (a *Accumulator) Status() types.Status {
	return status.Cluster(a.ServiceStatuses())
}

// Merge folds another accumulator into this one. Services present in both
// are reported as ErrDuplicateService after every other entry was merged.
func (a *Accumulator) Merge(other *Accumulator) error {
	if other == nil || other == a {
		return nil
	}

	other.mu.Lock()
	services := make([]types.ServiceStatus, 0, len(other.services))
	for _, s := range other.services {
		services = append(services, s)
	}
	hdfs, yarn := other.hdfs, other.yarn
	other.mu.Unlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for _, s := range services {
		if err := a.addLocked(s); err != nil {
			errs = append(errs, err)
		}
	}
	if hdfs != nil && a.hdfs == nil {
		a.hdfs = hdfs
	}
	if yarn != nil && a.yarn == nil {
		a.yarn = yarn
	}
	return errors.Join(errs...)
}
