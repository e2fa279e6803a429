// Package dedup computes the delta between freshly fetched records and the
// records already persisted in the dataset.
package dedup

import (
	"github.com/Sternrassler/comics-character-sync/pkg/dataset"
)

// Delta returns the records of fresh whose natural key is absent from
// existing. Order of fresh is preserved and a key repeated within fresh is
// kept once.
func Delta(fresh, existing []dataset.Record) []dataset.Record {
	seen := make(map[dataset.Key]struct{}, len(existing)+len(fresh))
	for _, r := range existing {
		seen[r.Key()] = struct{}{}
	}

	delta := make([]dataset.Record, 0)
	for _, r := range fresh {
		key := r.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		delta = append(delta, r)
	}
	return delta
}
