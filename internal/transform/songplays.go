package transform

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"

	perrors "github.com/arkilian/songlake/internal/errors"
	"github.com/arkilian/songlake/pkg/types"
)

// MaxIDPartitions is the number of distinct snowflake node ids.
const MaxIDPartitions = 1 << 10

// BuildSongplays joins song-play events to song records on artist name.
// Every (event, song) pair with equal non-empty artist names yields one row;
// identical rows are collapsed before each row receives a unique songplay id.
func BuildSongplays(events []types.LogEvent, records []types.SongRecord, cal Calendar, opts Options) ([]types.Songplay, error) {
	byArtist := make(map[string][]int)
	for i, r := range records {
		if r.ArtistName == "" {
			continue
		}
		byArtist[r.ArtistName] = append(byArtist[r.ArtistName], i)
	}

	var joined []types.Songplay
	for _, e := range events {
		if e.Artist == "" {
			continue
		}
		matches := byArtist[e.Artist]
		if len(matches) == 0 {
			continue
		}
		start := cal.StartTime(e.Ts)
		for _, i := range matches {
			joined = append(joined, types.Songplay{
				StartTime: start.UnixMilli(),
				UserID:    e.UserID,
				Level:     e.Level,
				SongID:    records[i].SongID,
				ArtistID:  records[i].ArtistID,
				SessionID: e.SessionID,
				Location:  e.Location,
				UserAgent: e.UserAgent,
				Year:      int32(start.Year()),
				Month:     int32(start.Month()),
			})
		}
	}

	plays := dedupByKey(joined, opts.shufflePartitions(), songplayKey)
	if err := assignSongplayIDs(plays, opts.idPartitions()); err != nil {
		return nil, err
	}
	return plays, nil
}

// songplayKey identifies a songplay by every column except its id.
func songplayKey(p types.Songplay) string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(p.StartTime, 10))
	for _, s := range []string{p.UserID, p.Level, p.SongID, p.ArtistID} {
		b.WriteByte(0x1f)
		b.WriteString(s)
	}
	b.WriteByte(0x1f)
	b.WriteString(strconv.FormatInt(p.SessionID, 10))
	for _, s := range []string{p.Location, p.UserAgent} {
		b.WriteByte(0x1f)
		b.WriteString(s)
	}
	return b.String()
}

// assignSongplayIDs splits plays into contiguous id partitions and numbers
// each with its own snowflake node, whose node id is the partition index.
// Ids are unique across partitions and increasing within one.
func assignSongplayIDs(plays []types.Songplay, partitions int) error {
	if partitions > MaxIDPartitions {
		return perrors.NewTransformError(perrors.CodeIDAssignment,
			fmt.Sprintf("%d id partitions exceed the limit of %d", partitions, MaxIDPartitions), nil)
	}
	if len(plays) == 0 {
		return nil
	}
	if partitions > len(plays) {
		partitions = len(plays)
	}

	nodes := make([]*snowflake.Node, partitions)
	for p := range nodes {
		node, err := snowflake.NewNode(int64(p))
		if err != nil {
			return perrors.NewTransformError(perrors.CodeIDAssignment,
				fmt.Sprintf("create id generator %d", p), err)
		}
		nodes[p] = node
	}

	chunk := (len(plays) + partitions - 1) / partitions
	var wg sync.WaitGroup
	for p, node := range nodes {
		lo := p * chunk
		if lo >= len(plays) {
			break
		}
		hi := min(lo+chunk, len(plays))
		wg.Add(1)
		go func(node *snowflake.Node, part []types.Songplay) {
			defer wg.Done()
			for i := range part {
				part[i].SongplayID = node.Generate().Int64()
			}
		}(node, plays[lo:hi])
	}
	wg.Wait()
	return nil
}
