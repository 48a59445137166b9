package postgres

import "embed"

// Migrations holds the goose SQL migrations. The files live in the
// migrations directory of this package.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose reads.
const MigrationsDir = "migrations"
