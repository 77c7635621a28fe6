package transform

import (
	"reflect"
	"testing"
)

type pair struct {
	key string
	val int
}

func pairKey(p pair) string { return p.key }

func TestDedupByKey_FirstSeenWins(t *testing.T) {
	rows := []pair{{"b", 1}, {"a", 2}, {"b", 3}, {"c", 4}, {"a", 5}}

	for _, partitions := range []int{0, 1, 2, 8, 64} {
		got := dedupByKey(rows, partitions, pairKey)
		want := []pair{{"b", 1}, {"a", 2}, {"c", 4}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("partitions=%d: got %v, want %v", partitions, got, want)
		}
	}
}

func TestReduceByKey_Replace(t *testing.T) {
	rows := []pair{{"u1", 10}, {"u2", 7}, {"u1", 30}, {"u1", 30}, {"u2", 3}}
	larger := func(candidate, current pair) bool { return candidate.val > current.val }

	got := reduceByKey(rows, 4, pairKey, larger)
	want := []pair{{"u1", 30}, {"u2", 7}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDedupByKey_Empty(t *testing.T) {
	got := dedupByKey([]pair(nil), 4, pairKey)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestBucketOf_InRange(t *testing.T) {
	for _, key := range []string{"", "SOBLFFE12AF72AA5BA", "ARJNIUY12298900C91", "39"} {
		for _, n := range []int{1, 3, 8} {
			b := bucketOf(key, n)
			if b < 0 || b >= n {
				t.Errorf("bucketOf(%q, %d) = %d out of range", key, n, b)
			}
			if b != bucketOf(key, n) {
				t.Errorf("bucketOf(%q, %d) not stable", key, n)
			}
		}
	}
}
