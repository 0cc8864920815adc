package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	"docverify/internal/common/config"
)

// Dialect holds what differs between the two backends. Queries are written
// with ? placeholders and rebound per dialect.
type Dialect struct {
	Name         string
	numbered     bool
	upsertRecord string
	schema       []string
}

var Postgres = Dialect{
	Name:     config.DriverPostgres,
	numbered: true,
	upsertRecord: `INSERT INTO registry_records (id, citizen_id, document_type, issued_date, source_file_ref, metadata)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (citizen_id, document_type) DO UPDATE SET
id = EXCLUDED.id, issued_date = EXCLUDED.issued_date, source_file_ref = EXCLUDED.source_file_ref, metadata = EXCLUDED.metadata`,
	schema: postgresSchema,
}

var MySQL = Dialect{
	Name: config.DriverMySQL,
	upsertRecord: `INSERT INTO registry_records (id, citizen_id, document_type, issued_date, source_file_ref, metadata)
VALUES (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
id = VALUES(id), issued_date = VALUES(issued_date), source_file_ref = VALUES(source_file_ref), metadata = VALUES(metadata)`,
	schema: mysqlSchema,
}

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverPostgres:
		return Postgres, nil
	case config.DriverMySQL:
		return MySQL, nil
	default:
		return Dialect{}, fmt.Errorf("no SQL dialect for driver %q", driver)
	}
}

// Rebind rewrites ? placeholders to $1, $2, ... for numbered dialects.
func (d Dialect) Rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
