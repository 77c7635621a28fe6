package transform

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/arkilian/songlake/pkg/types"
)

// genRecords builds song records with heavily colliding ids.
func genRecords() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, 15)).Map(func(ids []int) []types.SongRecord {
		records := make([]types.SongRecord, len(ids))
		for i, id := range ids {
			records[i] = types.SongRecord{
				SongID:     fmt.Sprintf("SO%02d", id),
				ArtistID:   fmt.Sprintf("AR%02d", id%5),
				ArtistName: fmt.Sprintf("artist-%d", id%5),
				Title:      fmt.Sprintf("title-%d", i),
				Year:       1990 + i%20,
			}
		}
		return records
	})
}

// genEvents builds events with colliding users, seconds and artists.
func genEvents() gopter.Gen {
	return gen.SliceOf(gen.Int64Range(1541000000000, 1541000020000)).Map(func(stamps []int64) []types.LogEvent {
		events := make([]types.LogEvent, len(stamps))
		for i, ts := range stamps {
			events[i] = types.LogEvent{
				Page:      types.PageNextSong,
				UserID:    fmt.Sprintf("%d", ts%7),
				Level:     []string{"free", "paid"}[i%2],
				Artist:    fmt.Sprintf("artist-%d", ts%6),
				SessionID: ts % 11,
				Ts:        ts,
			}
		}
		return events
	})
}

// TestProperty_DedupIdempotent checks that deduplicating a table twice
// changes nothing and leaves each key exactly once.
func TestProperty_DedupIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	opts := DefaultOptions()
	cal := NewCalendar(nil)

	properties.Property("songs dedup is idempotent", prop.ForAll(
		func(records []types.SongRecord) bool {
			once := BuildSongs(records, opts)
			twice := dedupByKey(once, 3, func(s types.Song) string { return s.SongID })
			return reflect.DeepEqual(once, twice) && uniqueKeys(once, func(s types.Song) string { return s.SongID })
		},
		genRecords(),
	))

	properties.Property("artists dedup is idempotent", prop.ForAll(
		func(records []types.SongRecord) bool {
			once := BuildArtists(records, opts)
			twice := dedupByKey(once, 5, func(a types.Artist) string { return a.ArtistID })
			return reflect.DeepEqual(once, twice) && uniqueKeys(once, func(a types.Artist) string { return a.ArtistID })
		},
		genRecords(),
	))

	properties.Property("users dedup is idempotent", prop.ForAll(
		func(events []types.LogEvent) bool {
			once := BuildUsers(events, opts)
			again := make([]types.LogEvent, len(once))
			for i, u := range once {
				again[i] = types.LogEvent{UserID: u.UserID, FirstName: u.FirstName, LastName: u.LastName, Gender: u.Gender, Level: u.Level}
			}
			twice := BuildUsers(again, Options{ShufflePartitions: 2})
			return reflect.DeepEqual(once, twice) && uniqueKeys(once, func(u types.User) string { return u.UserID })
		},
		genEvents(),
	))

	properties.Property("time dedup is idempotent", prop.ForAll(
		func(events []types.LogEvent) bool {
			once := BuildTime(events, cal, opts)
			twice := dedupByKey(once, 1, func(r types.TimeRow) string { return fmt.Sprint(r.StartTime) })
			return reflect.DeepEqual(once, twice) && uniqueKeys(once, func(r types.TimeRow) string { return fmt.Sprint(r.StartTime) })
		},
		genEvents(),
	))

	properties.Property("dedup result does not depend on shuffle partitions", prop.ForAll(
		func(records []types.SongRecord, partitions int) bool {
			return reflect.DeepEqual(
				BuildSongs(records, Options{ShufflePartitions: 1}),
				BuildSongs(records, Options{ShufflePartitions: partitions}))
		},
		genRecords(),
		gen.IntRange(1, 32),
	))

	properties.TestingRun(t)
}

// TestProperty_SongplayIDsDistinct checks that every songplay row gets its own id.
func TestProperty_SongplayIDsDistinct(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("songplay ids are pairwise distinct", prop.ForAll(
		func(events []types.LogEvent, records []types.SongRecord, idPartitions int) bool {
			plays, err := BuildSongplays(events, records, NewCalendar(nil), Options{ShufflePartitions: 4, IDPartitions: idPartitions})
			if err != nil {
				return false
			}
			return uniqueKeys(plays, func(p types.Songplay) string { return fmt.Sprint(p.SongplayID) })
		},
		genEvents(),
		genRecords(),
		gen.IntRange(1, 16),
	))

	properties.TestingRun(t)
}

func uniqueKeys[T any](rows []T, key func(T) string) bool {
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		k := key(r)
		if seen[k] {
			return false
		}
		seen[k] = true
	}
	return true
}
