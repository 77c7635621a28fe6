package source

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/arkilian/songlake/pkg/types"
)

var pageValues = []string{"NextSong", "Home", "Login", "Logout", "Settings", "Help", "nextsong"}

// TestProperty_LogReaderKeepsOnlySongPlays checks that every event returned by
// ReadLogs is a NextSong event and none is lost.
func TestProperty_LogReaderKeepsOnlySongPlays(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	store := newStore(t)

	properties.Property("ReadLogs returns exactly the NextSong events", prop.ForAll(
		func(pages []string) bool {
			var records []interface{}
			want := 0
			for i, page := range pages {
				if page == types.PageNextSong {
					want++
				}
				records = append(records, types.LogEvent{Page: page, ItemInSession: i})
			}
			// An empty object still matches and yields no rows.
			putObject(t, store, "log_data/events.json", jsonLines(t, records...))

			events, err := ReadLogs(context.Background(), store, logPattern)
			if err != nil {
				return false
			}
			if len(events) != want {
				return false
			}
			for _, e := range events {
				if e.Page != types.PageNextSong {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(pageValues)-1).Map(func(i int) string { return pageValues[i] })),
	))

	properties.TestingRun(t)
}
