package types

// PageNextSong is the page value of a song play event.
const PageNextSong = "NextSong"

// LogEvent is one raw application event from log_data.
type LogEvent struct {
	Artist        string  `json:"artist"`
	Auth          string  `json:"auth"`
	FirstName     string  `json:"firstName"`
	Gender        string  `json:"gender"`
	ItemInSession int     `json:"itemInSession"`
	LastName      string  `json:"lastName"`
	Length        float64 `json:"length"`
	Level         string  `json:"level"`
	Location      string  `json:"location"`
	Method        string  `json:"method"`
	Page          string  `json:"page"`
	Registration  float64 `json:"registration"`
	SessionID     int64   `json:"sessionId"`
	Song          string  `json:"song"`
	Status        int     `json:"status"`
	Ts            int64   `json:"ts"`
	UserAgent     string  `json:"userAgent"`
	UserID        string  `json:"userId"`
}

// IsSongPlay reports whether the event is a song play.
func (e LogEvent) IsSongPlay() bool {
	return e.Page == PageNextSong
}

// User is a row of the users table.
type User struct {
	UserID    string `json:"user_id" parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	FirstName string `json:"first_name" parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	LastName  string `json:"last_name" parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Gender    string `json:"gender" parquet:"name=gender, type=BYTE_ARRAY, convertedtype=UTF8"`
	Level     string `json:"level" parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// TimeRow is a row of the time dimension table.
// StartTime holds Unix milliseconds of a whole second.
type TimeRow struct {
	StartTime int64 `json:"start_time" parquet:"name=start_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Hour      int32 `json:"hour" parquet:"name=hour, type=INT32"`
	Day       int32 `json:"day" parquet:"name=day, type=INT32"`
	Week      int32 `json:"week" parquet:"name=week, type=INT32"`
	Month     int32 `json:"month" parquet:"name=month, type=INT32"`
	Year      int32 `json:"year" parquet:"name=year, type=INT32"`
	Weekday   int32 `json:"weekday" parquet:"name=weekday, type=INT32"`
}

// Songplay is a row of the songplays fact table.
type Songplay struct {
	SongplayID int64  `json:"songplay_id" parquet:"name=songplay_id, type=INT64"`
	StartTime  int64  `json:"start_time" parquet:"name=start_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	UserID     string `json:"user_id" parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Level      string `json:"level" parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8"`
	SongID     string `json:"song_id" parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ArtistID   string `json:"artist_id" parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	SessionID  int64  `json:"session_id" parquet:"name=session_id, type=INT64"`
	Location   string `json:"location" parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8"`
	UserAgent  string `json:"user_agent" parquet:"name=user_agent, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year       int32  `json:"year" parquet:"name=year, type=INT32"`
	Month      int32  `json:"month" parquet:"name=month, type=INT32"`
}
