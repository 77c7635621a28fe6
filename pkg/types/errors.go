package types

import "errors"

// ErrUnknownTable is returned when a table name is not one of the output tables.
var ErrUnknownTable = errors.New("unknown table")
