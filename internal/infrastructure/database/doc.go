// Package database provides the SQLite store used by Gray Logic IoT to
// remember hub assignments between runs.
//
// A device that has been provisioned once can reconnect straight to its
// assigned hub on the next boot instead of repeating the registration
// exchange.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are forward-only embedded SQL files named
// YYYYMMDD_HHMMSS_description.up.sql and registered through [MigrationsFS]
// by the migrations package.
package database
