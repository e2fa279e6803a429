package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}

	if Gatherer != prometheus.DefaultGatherer {
		t.Error("Gatherer should be the default Prometheus gatherer")
	}
}

func TestPush(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   int64
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, r.ContentLength
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "sync_runs_total", Help: "runs"})
	reg.MustRegister(runs)
	runs.Inc()

	require.NoError(t, Push(context.Background(), server.URL, JobName, reg))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/"+JobName, path)
	assert.NotZero(t, body)
}

func TestPush_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	err := Push(context.Background(), server.URL, JobName, prometheus.NewRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
}

func TestPush_MissingURL(t *testing.T) {
	err := Push(context.Background(), "", JobName, prometheus.NewRegistry())
	assert.Error(t, err)
}
