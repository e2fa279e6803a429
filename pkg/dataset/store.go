package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// partitionSuffix marks objects under the prefix that belong to the dataset.
const partitionSuffix = ".csv"

var (
	// ErrNotFound indicates no partition exists under the dataset prefix.
	ErrNotFound = errors.New("dataset not found")
)

// Prometheus metrics for dataset operations.
var (
	datasetRecordsRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dataset_records_read_total",
		Help: "Total records read from existing dataset partitions",
	})

	datasetRecordsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dataset_records_written_total",
		Help: "Total records appended to the dataset",
	})

	datasetPartitionsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dataset_partitions_written_total",
		Help: "Total partitions appended to the dataset",
	})

	datasetErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_errors_total",
		Help: "Total dataset operation errors",
	}, []string{"operation"}) // "list", "get", "decode", "put"
)

// ObjectAPI is the subset of the S3 client used by Store.
type ObjectAPI interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store reads and appends a dataset addressed by bucket and prefix.
type Store struct {
	api     ObjectAPI
	bucket  string
	prefix  string
	logger  zerolog.Logger
	newName func() string
}

// NewStore creates a dataset store.
func NewStore(api ObjectAPI, bucket, prefix string, logger zerolog.Logger) *Store {
	if api == nil {
		panic("object api cannot be nil")
	}
	return &Store{
		api:     api,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		logger:  logger.With().Str("bucket", bucket).Str("prefix", prefix).Logger(),
		newName: uuid.NewString,
	}
}

// Location returns the s3:// URI of the dataset.
func (s *Store) Location() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
}

// Read loads every partition of the dataset.
// Returns ErrNotFound if the prefix holds no partition.
func (s *Store) Read(ctx context.Context) ([]Record, error) {
	keys, err := s.partitions(ctx)
	if err != nil {
		datasetErrorsTotal.WithLabelValues("list").Inc()
		return nil, fmt.Errorf("list partitions: %w", err)
	}
	if len(keys) == 0 {
		return nil, ErrNotFound
	}

	var records []Record
	for _, key := range keys {
		part, err := s.readPartition(ctx, key)
		if err != nil {
			return nil, err
		}
		records = append(records, part...)
	}

	datasetRecordsRead.Add(float64(len(records)))
	s.logger.Debug().
		Int("partitions", len(keys)).
		Int("records", len(records)).
		Msg("Dataset read")

	return records, nil
}

// Append writes records as a new partition. An empty slice writes nothing.
func (s *Store) Append(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		s.logger.Info().Msg("No new records, skipping upload")
		return nil
	}

	body, err := EncodeCSV(records)
	if err != nil {
		return fmt.Errorf("encode partition: %w", err)
	}

	key := path.Join(s.prefix, s.newName()+partitionSuffix)
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		datasetErrorsTotal.WithLabelValues("put").Inc()
		return fmt.Errorf("put partition %s: %w", key, err)
	}

	datasetPartitionsWritten.Inc()
	datasetRecordsWritten.Add(float64(len(records)))
	s.logger.Info().
		Str("key", key).
		Int("records", len(records)).
		Int("bytes", len(body)).
		Msg("Partition uploaded")

	return nil
}

// partitions lists the object keys of all partitions under the prefix.
func (s *Store) partitions(ctx context.Context) ([]string, error) {
	listPrefix := s.prefix
	if listPrefix != "" {
		listPrefix += "/"
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(listPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, partitionSuffix) {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func (s *Store) readPartition(ctx context.Context, key string) ([]Record, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		datasetErrorsTotal.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("get partition %s: %w", key, err)
	}
	defer out.Body.Close()

	records, err := DecodeCSV(out.Body)
	if err != nil {
		datasetErrorsTotal.WithLabelValues("decode").Inc()
		return nil, fmt.Errorf("decode partition %s: %w", key, err)
	}
	return records, nil
}
