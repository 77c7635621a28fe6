package transform

import (
	"strconv"

	"github.com/arkilian/songlake/pkg/types"
)

// BuildSongs projects song records to the songs table, one row per song id.
func BuildSongs(records []types.SongRecord, opts Options) []types.Song {
	songs := make([]types.Song, len(records))
	for i, r := range records {
		songs[i] = types.Song{
			SongID:   r.SongID,
			Title:    r.Title,
			ArtistID: r.ArtistID,
			Year:     int32(r.Year),
			Duration: r.Duration,
		}
	}
	return dedupByKey(songs, opts.shufflePartitions(), func(s types.Song) string { return s.SongID })
}

// BuildArtists projects song records to the artists table, one row per artist id.
func BuildArtists(records []types.SongRecord, opts Options) []types.Artist {
	artists := make([]types.Artist, len(records))
	for i, r := range records {
		artists[i] = types.Artist{
			ArtistID:  r.ArtistID,
			Name:      r.ArtistName,
			Location:  r.ArtistLocation,
			Latitude:  r.ArtistLatitude,
			Longitude: r.ArtistLongitude,
		}
	}
	return dedupByKey(artists, opts.shufflePartitions(), func(a types.Artist) string { return a.ArtistID })
}

// BuildUsers returns one row per user id, taken from the user's latest event.
// Events with equal timestamps resolve to the first one seen.
func BuildUsers(events []types.LogEvent, opts Options) []types.User {
	latest := reduceByKey(events, opts.shufflePartitions(),
		func(e types.LogEvent) string { return e.UserID },
		func(candidate, current types.LogEvent) bool { return candidate.Ts > current.Ts })

	users := make([]types.User, len(latest))
	for i, e := range latest {
		users[i] = types.User{
			UserID:    e.UserID,
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Gender:    e.Gender,
			Level:     e.Level,
		}
	}
	return users
}

// BuildTime returns one time dimension row per distinct event second.
func BuildTime(events []types.LogEvent, cal Calendar, opts Options) []types.TimeRow {
	rows := make([]types.TimeRow, len(events))
	for i, e := range events {
		rows[i] = cal.TimeRow(e.Ts)
	}
	return dedupByKey(rows, opts.shufflePartitions(), func(r types.TimeRow) string {
		return strconv.FormatInt(r.StartTime, 10)
	})
}
