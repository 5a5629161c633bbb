package service

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeRegistry struct {
	jobs []JobStatus
}

func (f *fakeRegistry) Jobs() []JobStatus { return f.jobs }

func TestHttpService_HealthHandler(t *testing.T) {
	s := NewHttpServer(0, &fakeRegistry{})
	s.RegisterHandlers()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestHttpService_VersionHandler(t *testing.T) {
	s := NewHttpServer(0, &fakeRegistry{})
	s.RegisterHandlers()

	req := httptest.NewRequest("GET", "/version", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var body map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["version"])
}

func TestHttpService_JobsHandler(t *testing.T) {
	registry := &fakeRegistry{jobs: []JobStatus{
		{Table: "orders", State: "hash", RowsConverged: 12},
	}}
	s := NewHttpServer(0, registry)
	s.RegisterHandlers()

	req := httptest.NewRequest("GET", "/jobs", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var body []JobStatus
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, registry.jobs, body)
}

func TestHttpService_MetricsHandler(t *testing.T) {
	s := NewHttpServer(0, &fakeRegistry{})
	s.RegisterHandlers()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.NotEmpty(t, w.Body.String())
}
