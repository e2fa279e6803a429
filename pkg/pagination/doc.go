// Package pagination provides parallel batch fetching for offset-paginated
// catalog endpoints.
//
// The catalog reports the total number of matching records in every page
// and accepts at most 100 records per request. The batch fetcher:
//   - Fetches the page at offset 0 to learn the total
//   - Requests every remaining offset concurrently (bounded by MaxConcurrency)
//   - Waits for all of them and concatenates the records
//   - Fails the whole fetch on the first failed page (no partial data, no retry)
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(catalogClient, pagination.DefaultConfig())
//	records, err := fetcher.FetchAll(ctx)
package pagination
