package storage

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Dialect identifies the SQL flavour a driver talks to.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Table names shared by every SQL driver.
const (
	TableStreamEntries = "memorykeep_stream_entries"
	TableExperiences   = "memorykeep_experiences"
	TableDomainFacts   = "memorykeep_domain_facts"
)

// SchemaStatements returns the idempotent DDL statements for the dialect,
// in the order they must run.
func SchemaStatements(d Dialect) ([]string, error) {
	var file string
	switch d {
	case DialectPostgres:
		file = "schema/postgres.sql"
	case DialectSQLite:
		file = "schema/sqlite.sql"
	default:
		return nil, fmt.Errorf("unknown dialect %q", d)
	}

	raw, err := schemaFS.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", file, err)
	}

	var stmts []string
	for _, stmt := range strings.Split(string(raw), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, nil
}
