// Package postgres provides PostgreSQL implementations of the storage
// interfaces defined in internal/store: review states, submissions and the
// content catalog. It also embeds the goose migrations that create the
// schema and maps driver errors onto store sentinel errors.
//
// Stores accept a store.DBTX so the same code runs against a pooled
// *sql.DB or inside a transaction opened with store.TxRunner.
package postgres
