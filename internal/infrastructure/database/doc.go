// Package database provides SQLite storage for the Blink bridge.
//
// The bridge keeps a small local store: the audit trail of logins and
// arm/disarm commands. This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations loaded from an fs.FS (embedded by package migrations)
//   - Connection lifecycle and health checks
//
// All queries use parameterised statements. The database file is created
// with 0600 permissions since it records account activity.
//
// Usage:
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	applied, err := db.Migrate(ctx)
//
// Schema files are named YYYYMMDD_HHMMSS_description.sql and only move
// forward; new columns must be nullable or carry a default.
package database
