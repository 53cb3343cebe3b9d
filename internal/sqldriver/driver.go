// Package sqldriver implements the tabular/query pathway: submitted SQL is
// wrapped into a driver file that names a transient store, and the driver is
// later interpreted by `opencompiler sql-exec`, which executes the script
// against an in-memory SQLite database and prints any resulting rows.
package sqldriver

import (
	"bytes"
	"errors"
	"strings"
)

const (
	header         = "-- opencompiler sql driver v1"
	databasePrefix = "-- database: "

	// MemoryDatabase is the transient store every generated driver opens.
	MemoryDatabase = ":memory:"
)

// Driver is a parsed driver file.
type Driver struct {
	Database string
	Script   string
}

// Generate embeds script verbatim into a driver that opens a fresh
// in-memory database.
func Generate(script string) []byte {
	var b bytes.Buffer
	b.WriteString(header)
	b.WriteByte('\n')
	b.WriteString(databasePrefix)
	b.WriteString(MemoryDatabase)
	b.WriteByte('\n')
	b.WriteString(script)
	return b.Bytes()
}

// Parse reads a driver produced by Generate.
func Parse(data []byte) (Driver, error) {
	parts := bytes.SplitN(data, []byte("\n"), 3)
	if len(parts) < 2 || strings.TrimRight(string(parts[0]), "\r") != header {
		return Driver{}, errors.New("not an opencompiler sql driver")
	}

	line := strings.TrimRight(string(parts[1]), "\r")
	if !strings.HasPrefix(line, databasePrefix) {
		return Driver{}, errors.New("sql driver: missing database line")
	}
	db := strings.TrimSpace(strings.TrimPrefix(line, databasePrefix))
	if db == "" {
		return Driver{}, errors.New("sql driver: empty database name")
	}

	d := Driver{Database: db}
	if len(parts) == 3 {
		d.Script = string(parts[2])
	}
	return d, nil
}
