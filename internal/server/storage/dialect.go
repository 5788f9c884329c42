package storage

import (
	"fmt"
	"strconv"
	"strings"

	"kbodata/internal/server/config"
)

// dialect captures the few places SQLite and Postgres disagree
type dialect struct {
	driver string
	schema []string
	// resetSequence sets the next auto-increment value of match_schedule to next
	resetSequence string
	positional    bool
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case config.DriverSQLite:
		return dialect{
			driver:        config.DriverSQLite,
			schema:        renderSchema("INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER", "REAL"),
			resetSequence: `UPDATE sqlite_sequence SET seq = ? - 1 WHERE name = 'match_schedule'`,
		}, nil
	case config.DriverPostgres:
		return dialect{
			driver:        config.DriverPostgres,
			schema:        renderSchema("BIGSERIAL PRIMARY KEY", "BIGINT", "DOUBLE PRECISION"),
			resetSequence: `SELECT setval(pg_get_serial_sequence('match_schedule', 'id'), ?, false)`,
			positional:    true,
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver: %q", driver)
	}
}

// rebind rewrites ? placeholders to $N for drivers that need positional parameters
func (d dialect) rebind(query string) string {
	if !d.positional {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func renderSchema(idType, intType, realType string) []string {
	r := strings.NewReplacer("{{ID}}", idType, "{{INT}}", intType, "{{REAL}}", realType)
	stmts := make([]string, 0, len(schemaTemplate))
	for _, stmt := range schemaTemplate {
		stmts = append(stmts, r.Replace(stmt))
	}
	return stmts
}
