package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/comics-character-sync/pkg/dataset"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Config holds batch fetcher configuration
type Config struct {
	// PageSize is the limit sent with every request (catalog maximum: 100)
	PageSize int
	// MaxConcurrency is the maximum number of parallel requests
	MaxConcurrency int
}

// DefaultConfig returns the default configuration for the catalog
func DefaultConfig() Config {
	return Config{
		PageSize:       100,
		MaxConcurrency: 10,
	}
}

// PageFetcher is the interface the catalog client implements for single-page fetching
type PageFetcher interface {
	// FetchPage fetches the records at offset and returns them with the total record count
	FetchPage(ctx context.Context, offset, limit int) (records []dataset.Record, total int, err error)
}

// BatchFetcher fetches every page of an endpoint
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// Offsets returns the offsets of the pages following the first one.
func Offsets(total, pageSize int) []int {
	var offsets []int
	for offset := pageSize; offset < total; offset += pageSize {
		offsets = append(offsets, offset)
	}
	return offsets
}

// FetchAll fetches the first page to learn the total, then the remaining
// pages in parallel. The first page's records come first, followed by the
// other pages in offset order. Any failed page fails the whole fetch and
// cancels the requests still in flight.
func (bf *BatchFetcher) FetchAll(ctx context.Context) ([]dataset.Record, error) {
	start := time.Now()

	// Fetch first page to get the total
	first, total, err := bf.fetcher.FetchPage(ctx, 0, bf.config.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	offsets := Offsets(total, bf.config.PageSize)

	log.Info().
		Int("total", total).
		Int("pages", len(offsets)+1).
		Msg("Starting parallel page fetch")

	// Single page optimization
	if len(offsets) == 0 {
		log.Info().
			Int("records", len(first)).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return first, nil
	}

	// Each goroutine owns one slot, no locking needed.
	pages := make([][]dataset.Record, len(offsets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bf.config.MaxConcurrency)
	for i, offset := range offsets {
		g.Go(func() error {
			records, _, err := bf.fetcher.FetchPage(gctx, offset, bf.config.PageSize)
			if err != nil {
				log.Warn().
					Err(err).
					Int("offset", offset).
					Msg("Page fetch failed")
				return fmt.Errorf("fetch page at offset %d: %w", offset, err)
			}
			pages[i] = records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]dataset.Record, 0, total)
	records = append(records, first...)
	for _, page := range pages {
		records = append(records, page...)
	}

	log.Info().
		Int("pages", len(offsets)+1).
		Int("records", len(records)).
		Int("total", total).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return records, nil
}
