// Package service exposes an operator-facing HTTP surface alongside the
// sync protocol's own TCP connections: health, version, a snapshot of
// every table-sync job's state, and a Prometheus scrape endpoint. It is
// grounded on pkg/service/http_service.go's HttpService shape (a
// *http.ServeMux wrapped in a *http.Server, a RegisterHandlers/Start/Stop
// lifecycle) generalized from CCR-job CRUD to the read-only status
// surface this spec calls for.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rowsync/rowsync/pkg/version"
	"github.com/rowsync/rowsync/pkg/xerror"
)

// JobStatus is one table-sync job's reportable state.
type JobStatus struct {
	Table         string `json:"table"`
	State         string `json:"state"`
	RowsConverged int    `json:"rows_converged"`
}

// Registry is everything the HTTP service needs to know about currently
// running jobs; *syncjob.Job satisfies the per-job half of this directly
// via its State/TableName/RowsConverged methods, while the process
// entrypoint owns the actual registry of them.
type Registry interface {
	Jobs() []JobStatus
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	if encoded, err := json.Marshal(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.Write(encoded)
	}
}

// HttpService is the operator-facing HTTP server: health, version,
// job-status listing, and a Prometheus scrape endpoint.
type HttpService struct {
	port     int
	server   *http.Server
	mux      *http.ServeMux
	registry Registry
}

// NewHttpServer prepares (but does not start) an HttpService listening
// on port, reporting status from registry.
func NewHttpServer(port int, registry Registry) *HttpService {
	return &HttpService{
		port:     port,
		mux:      http.NewServeMux(),
		registry: registry,
	}
}

func (s *HttpService) versionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"version": version.GetVersion()})
}

func (s *HttpService) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

func (s *HttpService) jobsHandler(w http.ResponseWriter, r *http.Request) {
	logrus.Debug("list job status")
	writeJSON(w, s.registry.Jobs())
}

func (s *HttpService) RegisterHandlers() {
	s.mux.HandleFunc("/version", s.versionHandler)
	s.mux.HandleFunc("/health", s.healthHandler)
	s.mux.HandleFunc("/jobs", s.jobsHandler)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *HttpService) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	logrus.Infof("http service listening on %s", addr)

	s.RegisterHandlers()

	s.server = &http.Server{Addr: addr, Handler: s.mux}
	err := s.server.ListenAndServe()
	if err == nil {
		return nil
	} else if err == http.ErrServerClosed {
		logrus.Info("http service closed")
		return nil
	}
	return xerror.Wrapf(err, xerror.Normal, "http service start on %s failed", addr)
}

// Stop stops the HTTP server gracefully, returning an error if shutdown
// fails.
func (s *HttpService) Stop() error {
	if err := s.server.Shutdown(context.TODO()); err != nil {
		return xerror.Wrapf(err, xerror.Normal, "http service close failed")
	}
	return nil
}
