package partition

import (
	"fmt"
	"strings"

	"github.com/arkilian/songlake/pkg/types"
)

// DefaultPartitionName is the directory value used for empty partition values.
const DefaultPartitionName = "__HIVE_DEFAULT_PARTITION__"

// Group is the set of rows that share one partition directory.
type Group[T types.Row] struct {
	// Path is the Hive-style partition path, e.g. "year=2018/month=11".
	// Unpartitioned tables use an empty path.
	Path string
	Rows []T
}

// Router maps rows of one table to their partition directories.
type Router struct {
	table   types.TableName
	columns []string
}

// NewRouter creates a router for table.
func NewRouter(table types.TableName) *Router {
	return &Router{table: table, columns: table.PartitionColumns()}
}

// PathFor computes the partition path of a single row.
func (r *Router) PathFor(row types.Row) (string, error) {
	if len(r.columns) == 0 {
		return "", nil
	}
	values := row.PartitionValues()
	if len(values) != len(r.columns) {
		return "", fmt.Errorf("routing: %s row has %d partition values, want %d", r.table, len(values), len(r.columns))
	}
	segments := make([]string, len(values))
	for i, v := range values {
		segments[i] = r.columns[i] + "=" + EscapeValue(v)
	}
	return strings.Join(segments, "/"), nil
}

// RouteRows groups rows by partition path. Groups appear in the order their
// first row was seen and keep the input order of their rows.
func RouteRows[T types.Row](r *Router, rows []T) ([]Group[T], error) {
	index := make(map[string]int)
	var groups []Group[T]
	for _, row := range rows {
		p, err := r.PathFor(row)
		if err != nil {
			return nil, err
		}
		i, ok := index[p]
		if !ok {
			i = len(groups)
			index[p] = i
			groups = append(groups, Group[T]{Path: p})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}
	return groups, nil
}

// EscapeValue escapes a partition value the way Hive does for directory
// names. Empty values map to DefaultPartitionName.
func EscapeValue(v string) string {
	if v == "" {
		return DefaultPartitionName
	}
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		if needsEscape(c) {
			fmt.Fprintf(&b, "%%%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// UnescapeValue reverses EscapeValue.
func UnescapeValue(v string) string {
	if v == DefaultPartitionName {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] == '%' && i+2 < len(v) {
			if h, ok := unhex(v[i+1]); ok {
				if l, ok := unhex(v[i+2]); ok {
					b.WriteByte(h<<4 | l)
					i += 2
					continue
				}
			}
		}
		b.WriteByte(v[i])
	}
	return b.String()
}

// ParsePath splits a partition path into column/value pairs.
func ParsePath(p string) (map[string]string, error) {
	values := make(map[string]string)
	if p == "" {
		return values, nil
	}
	for _, seg := range strings.Split(p, "/") {
		col, val, ok := strings.Cut(seg, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("routing: invalid partition segment %q", seg)
		}
		values[col] = UnescapeValue(val)
	}
	return values, nil
}

func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7F {
		return true
	}
	switch c {
	case '"', '#', '%', '\'', '*', '/', ':', '=', '?', '\\', '{', '[', ']', '^':
		return true
	}
	return false
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
