// Package database provides SQLite database connectivity for Gray Logic Edge.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Additive-only schema migrations from embedded SQL files
//   - Connection lifecycle management and health checks
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files live in the top-level migrations/ package and are named
// YYYYMMDD_HHMMSS_description.up.sql. Migrations are additive-only: new
// columns must be NULLABLE or carry DEFAULT values, and columns are never
// dropped or renamed.
package database
