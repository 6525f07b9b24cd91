// Package database opens SQL connections and inspects table schemas.
//
// Connect wraps GORM and supports MySQL and SQLite. The inspector reads table
// columns through SHOW COLUMNS or PRAGMA table_info, so callers can verify
// that a table matches the layout they expect.
//
// # Usage
//
//	db, err := database.Connect(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//
//	missing, err := database.MissingColumns(db, "records", "type", "key", "data")
package database
