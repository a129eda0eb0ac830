package aggregate

import "github.com/abelbrown/wallfeed/internal/store"

// Dedup filters candidates down to those whose content URL is absent both
// from the known set and from earlier candidates in the same batch. The
// first occurrence of a URL wins; provider order is preserved. Candidates
// with an empty content URL are dropped outright.
//
// The known set is global, not per source: two providers emitting the same
// URL are offering the same image, and the second offer is a duplicate.
func Dedup(candidates []store.Item, known map[string]struct{}) []store.Item {
	if len(candidates) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(known)+len(candidates))
	for u := range known {
		seen[u] = struct{}{}
	}

	unique := make([]store.Item, 0, len(candidates))
	for _, item := range candidates {
		if item.ContentURL == "" {
			continue
		}
		if _, dup := seen[item.ContentURL]; dup {
			continue
		}
		seen[item.ContentURL] = struct{}{}
		unique = append(unique, item)
	}
	return unique
}
