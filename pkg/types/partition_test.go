package types

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseTableName(t *testing.T) {
	for _, name := range AllTables() {
		got, err := ParseTableName(string(name))
		if err != nil {
			t.Fatalf("ParseTableName(%q) failed: %v", name, err)
		}
		if got != name {
			t.Errorf("got %q, want %q", got, name)
		}
	}

	if _, err := ParseTableName("plays"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("expected ErrUnknownTable, got %v", err)
	}
}

func TestTableName_PartitionColumns(t *testing.T) {
	tests := []struct {
		table TableName
		want  []string
	}{
		{TableSongs, []string{"year", "artist_id"}},
		{TableArtists, nil},
		{TableUsers, nil},
		{TableTime, []string{"year", "month"}},
		{TableSongplays, []string{"year", "month"}},
	}

	for _, tt := range tests {
		got := tt.table.PartitionColumns()
		if len(got) != len(tt.want) {
			t.Fatalf("%s: got %v, want %v", tt.table, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: column %d got %q, want %q", tt.table, i, got[i], tt.want[i])
			}
		}
	}
}

func TestLogEvent_IsSongPlay(t *testing.T) {
	if !(LogEvent{Page: "NextSong"}).IsSongPlay() {
		t.Error("NextSong should be a song play")
	}
	if (LogEvent{Page: "Home"}).IsSongPlay() {
		t.Error("Home should not be a song play")
	}
}

func TestRow_PartitionValues(t *testing.T) {
	tests := []struct {
		table TableName
		row   Row
		want  []string
	}{
		{TableSongs, Song{Year: 2009, ArtistID: "ARJNIUY12298900C91"}, []string{"2009", "ARJNIUY12298900C91"}},
		{TableArtists, Artist{ArtistID: "AR1"}, nil},
		{TableUsers, User{UserID: "8"}, nil},
		{TableTime, TimeRow{Year: 2018, Month: 11}, []string{"2018", "11"}},
		{TableSongplays, Songplay{Year: 2018, Month: 1}, []string{"2018", "1"}},
	}
	for _, tt := range tests {
		got := tt.row.PartitionValues()
		if len(got) != len(tt.table.PartitionColumns()) {
			t.Errorf("%s: %d values for %d partition columns", tt.table, len(got), len(tt.table.PartitionColumns()))
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: PartitionValues() = %v, want %v", tt.table, got, tt.want)
		}
	}
}
