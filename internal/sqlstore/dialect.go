package sqlstore

import (
	"net/url"
	"strconv"

	"github.com/mesh-intelligence/recordkit/pkg/types"
)

// sqlitePragmas are applied to every SQLite connection.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

// dialect captures the per-engine differences: driver name, placeholder
// syntax and column type mapping.
type dialect struct {
	name        string
	driver      string
	placeholder func(n int) string
	columnTypes map[string]string
}

var sqliteDialect = dialect{
	name:        types.BackendSQLite,
	driver:      "sqlite",
	placeholder: func(int) string { return "?" },
	columnTypes: map[string]string{
		"string":  "TEXT",
		"integer": "INTEGER",
		"number":  "REAL",
		"boolean": "INTEGER",
		"date":    "TEXT",
		"json":    "TEXT",
	},
}

var postgresDialect = dialect{
	name:        types.BackendPostgres,
	driver:      "pgx",
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	columnTypes: map[string]string{
		"string":  "TEXT",
		"integer": "BIGINT",
		"number":  "DOUBLE PRECISION",
		"boolean": "BOOLEAN",
		"date":    "TEXT",
		"json":    "TEXT",
	},
}

func dialectFor(backend string) dialect {
	if backend == types.BackendPostgres {
		return postgresDialect
	}
	return sqliteDialect
}

// sqliteDSN builds a modernc.org/sqlite URI for path with the standard pragmas.
func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}
