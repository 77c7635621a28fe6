// Package transform builds the analytical tables from raw song and event records.
//
// Builders are pure functions over in-memory slices. Deduplication shuffles
// rows into hash buckets that are reduced in parallel; output keeps the order
// in which each key was first seen, so results do not depend on scheduling.
package transform

// Options tunes the parallelism of the builders.
type Options struct {
	// ShufflePartitions is the number of hash buckets used for deduplication.
	ShufflePartitions int
	// IDPartitions is the number of surrogate id generators for songplays.
	// Each generator owns a distinct node id, so it must not exceed MaxIDPartitions.
	IDPartitions int
}

// DefaultOptions returns the default builder options.
func DefaultOptions() Options {
	return Options{
		ShufflePartitions: 8,
		IDPartitions:      4,
	}
}

func (o Options) shufflePartitions() int {
	if o.ShufflePartitions <= 0 {
		return 1
	}
	return o.ShufflePartitions
}

func (o Options) idPartitions() int {
	if o.IDPartitions <= 0 {
		return 1
	}
	return o.IDPartitions
}
