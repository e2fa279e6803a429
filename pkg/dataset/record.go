// Package dataset persists catalog character records as CSV partitions in S3.
package dataset

import "fmt"

// Record is a single character fact as fetched from the catalog.
type Record struct {
	ID         int
	Name       string
	ComicCount int
}

// Key is the natural key of a record. Two records with the same key are
// the same fact.
type Key struct {
	ID         int
	Name       string
	ComicCount int
}

// Key returns the natural key of the record.
func (r Record) Key() Key {
	return Key{ID: r.ID, Name: r.Name, ComicCount: r.ComicCount}
}

// String renders the record for logs.
func (r Record) String() string {
	return fmt.Sprintf("%d:%s:%d", r.ID, r.Name, r.ComicCount)
}
