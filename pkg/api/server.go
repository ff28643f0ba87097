package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cuemby/clusterscope/pkg/log"
	"github.com/cuemby/clusterscope/pkg/metrics"
	"github.com/cuemby/clusterscope/pkg/orchestrator"
	"github.com/cuemby/clusterscope/pkg/resolver"
	"github.com/cuemby/clusterscope/pkg/snapshot"
	"github.com/cuemby/clusterscope/pkg/status"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Checks runs uncached checks, one view per scope
type Checks interface {
	FullCheck(ctx context.Context, clusterName string) (*orchestrator.Accumulator, error)
	YarnCheck(ctx context.Context, clusterName string) (orchestrator.YarnResult, error)
	HdfsCheck(ctx context.Context, clusterName string) (orchestrator.HdfsResult, error)
	OtherServicesCheck(ctx context.Context, clusterName string) ([]types.ServiceStatus, error)
}

// Snapshots serves snapshots and on-demand checks
type Snapshots interface {
	Checks
	Latest(ctx context.Context, clusterName string) (*types.Snapshot, error)
	History(clusterName string, limit int) ([]*types.Snapshot, error)
}

// ClusterLister lists the monitored clusters
type ClusterLister interface {
	ListClusters() ([]*types.Cluster, error)
}

// Server exposes snapshots, checks, health and metrics over HTTP
type Server struct {
	snapshots Snapshots
	clusters  ClusterLister
	router    *chi.Mux
	logger    zerolog.Logger

	mu  sync.Mutex
	srv *http.Server
}

// NewServer creates a new API server
func NewServer(snapshots Snapshots, clusters ClusterLister) *Server {
	s := &Server{
		snapshots: snapshots,
		clusters:  clusters,
		logger:    log.WithComponent("api"),
	}
	s.router = s.Routes()
	return s
}

// Routes builds the router
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(s.instrument)

	r.Get("/health", metrics.HealthHandler())
	r.Get("/ready", metrics.ReadyHandler())
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/clusters", func(r chi.Router) {
		r.Get("/", s.listClusters)
		r.Get("/{name}/snapshot", s.getSnapshot)
		r.Get("/{name}/history", s.getHistory)
		r.Get("/{name}/check/{scope}", s.runCheck)
	})
	return r
}

// Handler returns the HTTP handler for embedding in other servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Stop is called
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.srv = srv
	s.mu.Unlock()

	s.logger.Info().Str("addr", addr).Msg("API listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// ClusterSummary is a cluster without its credentials
type ClusterSummary struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Vendor  types.Vendor `json:"vendor"`
	Host    string       `json:"host"`
	Secured bool         `json:"secured"`
}

// CheckResponse is the result of an on-demand check
type CheckResponse struct {
	Cluster  string                `json:"cluster"`
	Scope    orchestrator.Scope    `json:"scope"`
	Status   types.Status          `json:"status"`
	Services []types.ServiceStatus `json:"services"`
	Hdfs     *HdfsView             `json:"hdfs,omitempty"`
	Memory   *types.MemoryUsage    `json:"memory,omitempty"`
}

// HdfsView is the usage part of an HDFS check
type HdfsView struct {
	Usage types.HdfsUsage   `json:"usage"`
	Nodes []types.NodeUsage `json:"nodes,omitempty"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) listClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := s.clusters.ListClusters()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	summaries := make([]ClusterSummary, 0, len(clusters))
	for _, c := range clusters {
		summaries = append(summaries, ClusterSummary{ID: c.ID, Name: c.Name, Vendor: c.Vendor, Host: c.Host, Secured: c.Secured})
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshots.Latest(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	history, err := s.snapshots.History(chi.URLParam(r, "name"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if history == nil {
		history = []*types.Snapshot{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) runCheck(w http.ResponseWriter, r *http.Request) {
	scope, err := orchestrator.ParseScope(chi.URLParam(r, "scope"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp, err := RunCheck(r.Context(), s.snapshots, chi.URLParam(r, "name"), scope)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RunCheck runs the view of scope and shapes its result. YARN and HDFS
// return only their category's sub-result and fail with
// orchestrator.ErrNoResult when the service was omitted.
func RunCheck(ctx context.Context, checks Checks, clusterName string, scope orchestrator.Scope) (*CheckResponse, error) {
	resp := &CheckResponse{Cluster: clusterName, Scope: scope}

	switch scope {
	case orchestrator.ScopeYarn:
		yarn, err := checks.YarnCheck(ctx, clusterName)
		if err != nil {
			return nil, err
		}
		resp.Status = yarn.Service.Status
		resp.Services = []types.ServiceStatus{yarn.Service}
		resp.Memory = &yarn.Memory
	case orchestrator.ScopeHdfs:
		hdfs, err := checks.HdfsCheck(ctx, clusterName)
		if err != nil {
			return nil, err
		}
		resp.Status = hdfs.Service.Status
		resp.Services = []types.ServiceStatus{hdfs.Service}
		resp.Hdfs = &HdfsView{Usage: hdfs.Usage, Nodes: hdfs.Nodes}
	case orchestrator.ScopeOtherServices:
		services, err := checks.OtherServicesCheck(ctx, clusterName)
		if err != nil {
			return nil, err
		}
		resp.Status = status.Cluster(services)
		resp.Services = services
	case orchestrator.ScopeAll:
		acc, err := checks.FullCheck(ctx, clusterName)
		if err != nil {
			return nil, err
		}
		resp.Status = acc.Status()
		resp.Services = acc.ServiceStatuses()
		if hdfs, ok := acc.Hdfs(); ok {
			resp.Hdfs = &HdfsView{Usage: hdfs.Usage, Nodes: hdfs.Nodes}
		}
		if yarn, ok := acc.Yarn(); ok {
			resp.Memory = &yarn.Memory
		}
	default:
		return nil, fmt.Errorf("%w: %q", orchestrator.ErrUnknownScope, scope)
	}

	if resp.Services == nil {
		resp.Services = []types.ServiceStatus{}
	}
	return resp, nil
}

// fail maps engine errors to HTTP status codes
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, orchestrator.ErrClusterNotFound), errors.Is(err, snapshot.ErrNoSnapshot):
		code = http.StatusNotFound
	case errors.Is(err, orchestrator.ErrUnknownScope):
		code = http.StatusBadRequest
	case errors.Is(err, resolver.ErrUnresolvedImplementation):
		code = http.StatusNotImplemented
	case errors.Is(err, orchestrator.ErrNoResult):
		code = http.StatusBadGateway
	}

	if code == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
