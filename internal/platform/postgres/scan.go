package postgres

import (
	"database/sql"
	"time"

	"github.com/phrazzld/tahfidz-api/internal/domain"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// normalizeTime matches what a timestamptz column returns: UTC with
// microsecond precision.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func familyArg(f *domain.ContentFamily) sql.NullString {
	if f == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*f), Valid: true}
}
