package pagination

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/comics-character-sync/internal/testutil"
	"github.com/Sternrassler/comics-character-sync/pkg/catalog"
	"github.com/Sternrassler/comics-character-sync/pkg/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeFetcher serves total synthetic records and records the offsets asked for.
type fakeFetcher struct {
	total    int
	failAt   map[int]error
	delay    time.Duration
	mu       sync.Mutex
	offsets  []int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeFetcher) FetchPage(ctx context.Context, offset, limit int) ([]dataset.Record, int, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}

	if err := f.failAt[offset]; err != nil {
		return nil, 0, err
	}

	var records []dataset.Record
	for i := offset; i < offset+limit && i < f.total; i++ {
		records = append(records, dataset.Record{ID: i, Name: "C", ComicCount: 1})
	}
	return records, f.total, nil
}

func TestNewBatchFetcher_Defaults(t *testing.T) {
	bf := NewBatchFetcher(&fakeFetcher{}, Config{})

	assert.Equal(t, 100, bf.config.PageSize)
	assert.Equal(t, 10, bf.config.MaxConcurrency)
}

func TestOffsets(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		pageSize int
		want     []int
	}{
		{name: "empty catalog", total: 0, pageSize: 100, want: nil},
		{name: "single page", total: 100, pageSize: 100, want: nil},
		{name: "two pages", total: 200, pageSize: 100, want: []int{100}},
		{name: "partial last page", total: 250, pageSize: 100, want: []int{100, 200}},
		{name: "small pages", total: 7, pageSize: 3, want: []int{3, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Offsets(tt.total, tt.pageSize))
		})
	}
}

func TestFetchAll_TwoPages(t *testing.T) {
	f := &fakeFetcher{total: 200}
	bf := NewBatchFetcher(f, DefaultConfig())

	records, err := bf.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Len(t, records, 200)
	assert.ElementsMatch(t, []int{0, 100}, f.offsets)
}

func TestFetchAll_SinglePage(t *testing.T) {
	f := &fakeFetcher{total: 42}
	bf := NewBatchFetcher(f, DefaultConfig())

	records, err := bf.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Len(t, records, 42)
	assert.Equal(t, []int{0}, f.offsets)
}

func TestFetchAll_EmptyCatalog(t *testing.T) {
	bf := NewBatchFetcher(&fakeFetcher{total: 0}, DefaultConfig())

	records, err := bf.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchAll_FirstPageThenOffsetOrder(t *testing.T) {
	f := &fakeFetcher{total: 1000, delay: 5 * time.Millisecond}
	bf := NewBatchFetcher(f, DefaultConfig())

	records, err := bf.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1000)

	for i, r := range records {
		if r.ID != i {
			t.Fatalf("record %d has ID %d", i, r.ID)
		}
	}
}

func TestFetchAll_Concurrent(t *testing.T) {
	f := &fakeFetcher{total: 1000, delay: 20 * time.Millisecond}
	bf := NewBatchFetcher(f, Config{PageSize: 100, MaxConcurrency: 4})

	_, err := bf.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Greater(t, f.maxSeen.Load(), int32(1), "remaining pages should be fetched concurrently")
	assert.LessOrEqual(t, f.maxSeen.Load(), int32(4), "concurrency must stay bounded")
}

func TestFetchAll_FirstPageError(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeFetcher{total: 500, failAt: map[int]error{0: boom}}
	bf := NewBatchFetcher(f, DefaultConfig())

	records, err := bf.FetchAll(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, records)
	assert.Equal(t, []int{0}, f.offsets)
}

func TestFetchAll_LaterPageErrorFailsRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	boom := errors.New("page failed")
	f := &fakeFetcher{total: 500, delay: 10 * time.Millisecond, failAt: map[int]error{300: boom}}
	bf := NewBatchFetcher(f, DefaultConfig())

	records, err := bf.FetchAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "offset 300")
	assert.Nil(t, records, "no partial results")
}

func TestFetchAll_WithCatalogClient(t *testing.T) {
	mock := testutil.NewMockCatalog(testutil.GenerateCharacters(200))
	defer mock.Close()

	cfg := catalog.DefaultConfig()
	cfg.BaseURL = mock.URL()
	client, err := catalog.New(catalog.Credentials{PublicKey: "pub", PrivateKey: "priv"}, cfg)
	require.NoError(t, err)

	records, err := NewBatchFetcher(client, DefaultConfig()).FetchAll(context.Background())
	require.NoError(t, err)

	assert.Len(t, records, 200)
	assert.Equal(t, 2, mock.GetRequestCount())
	assert.ElementsMatch(t, []int{0, 100}, mock.GetOffsets())
	assert.Equal(t, 1, mock.GetSignatureCount(), "all pages share one signature")
}

func TestFetchAll_WithCatalogClient_PageFailure(t *testing.T) {
	mock := testutil.NewMockCatalog(testutil.GenerateCharacters(300))
	defer mock.Close()
	mock.SetResponse(200, testutil.MockResponse{StatusCode: 500, Body: `{"code": 500, "status": "boom"}`})

	cfg := catalog.DefaultConfig()
	cfg.BaseURL = mock.URL()
	client, err := catalog.New(catalog.Credentials{PublicKey: "pub", PrivateKey: "priv"}, cfg)
	require.NoError(t, err)

	_, err = NewBatchFetcher(client, DefaultConfig()).FetchAll(context.Background())
	require.Error(t, err)

	var apiErr *catalog.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, catalog.ErrorClassServer, apiErr.ErrorClass)
}
