package transform

import (
	"sort"
	"sync"

	"github.com/spaolacci/murmur3"
)

// survivor is the row kept for one key and the input position where the key first appeared.
type survivor[T any] struct {
	first int
	row   T
}

// bucketOf maps a key to one of n shuffle buckets.
func bucketOf(key string, n int) int {
	return int(murmur3.Sum32([]byte(key)) % uint32(n))
}

// reduceByKey keeps one row per key. Rows are shuffled into partitions
// buckets by key hash and each bucket is reduced concurrently. When replace
// is non-nil and reports true for (candidate, current), the candidate
// replaces the current row; otherwise the first row seen wins. The result is
// ordered by the first appearance of each key.
func reduceByKey[T any](rows []T, partitions int, key func(T) string, replace func(candidate, current T) bool) []T {
	if len(rows) == 0 {
		return []T{}
	}
	if partitions <= 0 {
		partitions = 1
	}

	keys := make([]string, len(rows))
	buckets := make([][]int, partitions)
	for i, row := range rows {
		k := key(row)
		keys[i] = k
		b := bucketOf(k, partitions)
		buckets[b] = append(buckets[b], i)
	}

	reduced := make([][]survivor[T], partitions)
	var wg sync.WaitGroup
	for b := range buckets {
		if len(buckets[b]) == 0 {
			continue
		}
		wg.Add(1)
		go func(b int) {
			defer wg.Done()
			seen := make(map[string]int, len(buckets[b]))
			var out []survivor[T]
			for _, i := range buckets[b] {
				pos, ok := seen[keys[i]]
				if !ok {
					seen[keys[i]] = len(out)
					out = append(out, survivor[T]{first: i, row: rows[i]})
					continue
				}
				if replace != nil && replace(rows[i], out[pos].row) {
					out[pos].row = rows[i]
				}
			}
			reduced[b] = out
		}(b)
	}
	wg.Wait()

	var merged []survivor[T]
	for _, part := range reduced {
		merged = append(merged, part...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].first < merged[j].first })

	result := make([]T, len(merged))
	for i, s := range merged {
		result[i] = s.row
	}
	return result
}

// dedupByKey keeps the first row seen for each key.
func dedupByKey[T any](rows []T, partitions int, key func(T) string) []T {
	return reduceByKey(rows, partitions, key, nil)
}
