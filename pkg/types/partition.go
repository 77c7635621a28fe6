package types

import (
	"fmt"
	"strconv"
)

// TableName identifies one of the output tables.
type TableName string

const (
	TableSongs     TableName = "songs"
	TableArtists   TableName = "artists"
	TableUsers     TableName = "users"
	TableTime      TableName = "time"
	TableSongplays TableName = "songplays"
)

// AllTables lists the output tables in write order.
func AllTables() []TableName {
	return []TableName{TableSongs, TableArtists, TableUsers, TableTime, TableSongplays}
}

// PartitionColumns returns the Hive partition columns of the table, outermost first.
// Unpartitioned tables return nil.
func (t TableName) PartitionColumns() []string {
	switch t {
	case TableSongs:
		return []string{"year", "artist_id"}
	case TableTime, TableSongplays:
		return []string{"year", "month"}
	default:
		return nil
	}
}

// ParseTableName validates a table name.
func ParseTableName(s string) (TableName, error) {
	for _, t := range AllTables() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTable, s)
}

// Row is implemented by every output row type.
type Row interface {
	// PartitionValues returns the row's values for its table's partition
	// columns, in PartitionColumns order.
	PartitionValues() []string
}

func (s Song) PartitionValues() []string {
	return []string{strconv.Itoa(int(s.Year)), s.ArtistID}
}

func (Artist) PartitionValues() []string { return nil }

func (User) PartitionValues() []string { return nil }

func (r TimeRow) PartitionValues() []string {
	return []string{strconv.Itoa(int(r.Year)), strconv.Itoa(int(r.Month))}
}

func (p Songplay) PartitionValues() []string {
	return []string{strconv.Itoa(int(p.Year)), strconv.Itoa(int(p.Month))}
}
