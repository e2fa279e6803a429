// Package job runs one character sync: read credentials, fetch the whole
// catalog, compute the delta against the stored dataset and append it.
package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/comics-character-sync/pkg/catalog"
	"github.com/Sternrassler/comics-character-sync/pkg/dataset"
	"github.com/Sternrassler/comics-character-sync/pkg/dedup"
	"github.com/Sternrassler/comics-character-sync/pkg/logging"
	"github.com/Sternrassler/comics-character-sync/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const (
	// StatusSuccess is the status of every completed run.
	StatusSuccess = "success"

	// MessageUploaded is reported when a delta was written.
	MessageUploaded = "File uploaded to s3 successfully!!!"

	// MessageUpToDate is reported when the dataset already held every record.
	MessageUpToDate = "No new characters, dataset is up to date"
)

// Prometheus metrics for sync runs.
var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_runs_total",
		Help: "Total sync runs by result",
	}, []string{"result"}) // "success", "secret_error", "client_error", "fetch_error", "read_error", "write_error"

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_run_duration_seconds",
		Help:    "Sync run duration in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})

	recordsFetched = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_records_fetched",
		Help: "Records fetched from the catalog in the last run",
	})

	recordsAppended = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_records_appended",
		Help: "Records appended to the dataset in the last run",
	})

	lastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sync_last_success_timestamp_seconds",
		Help: "Unix time of the last successful run",
	})
)

// CredentialSource looks up a named secret and decodes it into v.
type CredentialSource interface {
	Lookup(ctx context.Context, name string, v any) error
}

// Dataset is the stored character dataset.
type Dataset interface {
	Read(ctx context.Context) ([]dataset.Record, error)
	Append(ctx context.Context, records []dataset.Record) error
	Location() string
}

// FetcherFactory builds the page fetcher for one run from its credentials.
type FetcherFactory func(creds catalog.Credentials) (pagination.PageFetcher, error)

// Config holds the job configuration.
type Config struct {
	// SecretName is the id of the secret holding the catalog key pair
	SecretName string

	// Pagination controls page size and fan-out
	Pagination pagination.Config
}

// Response is returned to the invoker of a successful run.
type Response struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Fetched  int    `json:"fetched"`
	Appended int    `json:"appended"`
}

// Job wires the sync steps together.
type Job struct {
	secrets    CredentialSource
	store      Dataset
	newFetcher FetcherFactory
	config     Config
	logger     zerolog.Logger
}

// New creates a job.
func New(secrets CredentialSource, store Dataset, newFetcher FetcherFactory, cfg Config, logger zerolog.Logger) *Job {
	if secrets == nil || store == nil || newFetcher == nil {
		panic("job dependencies cannot be nil")
	}
	return &Job{
		secrets:    secrets,
		store:      store,
		newFetcher: newFetcher,
		config:     cfg,
		logger:     logger,
	}
}

// Run performs one sync. Nothing is written unless every page was fetched
// and the existing dataset was read (or does not exist yet). A logger
// attached to ctx replaces the job logger for this run.
func (j *Job) Run(ctx context.Context) (*Response, error) {
	start := time.Now()
	defer func() {
		runDuration.Observe(time.Since(start).Seconds())
	}()
	logger := logging.FromContext(ctx, j.logger)

	var creds catalog.Credentials
	if err := j.secrets.Lookup(ctx, j.config.SecretName, &creds); err != nil {
		runsTotal.WithLabelValues("secret_error").Inc()
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	fetcher, err := j.newFetcher(creds)
	if err != nil {
		runsTotal.WithLabelValues("client_error").Inc()
		return nil, fmt.Errorf("create catalog client: %w", err)
	}

	fresh, err := pagination.NewBatchFetcher(fetcher, j.config.Pagination).FetchAll(ctx)
	if err != nil {
		runsTotal.WithLabelValues("fetch_error").Inc()
		return nil, fmt.Errorf("fetch characters: %w", err)
	}
	recordsFetched.Set(float64(len(fresh)))

	existing, err := j.store.Read(ctx)
	switch {
	case errors.Is(err, dataset.ErrNotFound):
		logger.Info().
			Str("location", j.store.Location()).
			Msg("No existing dataset, treating run as first run")
	case err != nil:
		runsTotal.WithLabelValues("read_error").Inc()
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	delta := dedup.Delta(fresh, existing)

	if err := j.store.Append(ctx, delta); err != nil {
		runsTotal.WithLabelValues("write_error").Inc()
		return nil, fmt.Errorf("append dataset: %w", err)
	}
	recordsAppended.Set(float64(len(delta)))

	runsTotal.WithLabelValues("success").Inc()
	lastSuccess.SetToCurrentTime()

	logger.Info().
		Int("fetched", len(fresh)).
		Int("existing", len(existing)).
		Int("appended", len(delta)).
		Dur("duration", time.Since(start)).
		Msg("Sync complete")

	message := MessageUploaded
	if len(delta) == 0 {
		message = MessageUpToDate
	}

	return &Response{
		Status:   StatusSuccess,
		Message:  message,
		Fetched:  len(fresh),
		Appended: len(delta),
	}, nil
}
