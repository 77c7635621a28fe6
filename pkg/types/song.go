// Package types provides the record and table row types of the songlake pipeline.
package types

// SongRecord is one raw song-metadata object as it appears in song_data.
type SongRecord struct {
	NumSongs        int      `json:"num_songs"`
	ArtistID        string   `json:"artist_id"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistName      string   `json:"artist_name"`
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	Duration        float64  `json:"duration"`
	Year            int      `json:"year"`
}

// Song is a row of the songs table.
type Song struct {
	SongID   string  `json:"song_id" parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Title    string  `json:"title" parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8"`
	ArtistID string  `json:"artist_id" parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year     int32   `json:"year" parquet:"name=year, type=INT32"`
	Duration float64 `json:"duration" parquet:"name=duration, type=DOUBLE"`
}

// Artist is a row of the artists table.
type Artist struct {
	ArtistID  string   `json:"artist_id" parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name      string   `json:"name" parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Location  string   `json:"location" parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8"`
	Latitude  *float64 `json:"latitude" parquet:"name=latitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	Longitude *float64 `json:"longitude" parquet:"name=longitude, type=DOUBLE, repetitiontype=OPTIONAL"`
}
