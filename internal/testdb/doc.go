//go:build integration

// Package testdb provides helpers for database integration tests.
//
// Tests get a migrated connection from GetTestDBWithT and run inside a
// transaction with WithTx. The transaction is always rolled back, so tests
// can share one database and run in parallel.
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        states := postgres.NewPostgresReviewStateStore(tx, nil)
//	        ...
//	    })
//	}
//
// Tests are skipped when neither DATABASE_URL nor TAHFIDZ_DATABASE_URL is set.
package testdb
