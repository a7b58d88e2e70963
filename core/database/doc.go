// Package database handles database connections, schema inspection and the
// relational seed store.
//
// # Connect
//
// Connect opens a MySQL or SQLite database through GORM based on the
// application's configuration and pings it before returning.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns read column definitions straight from the
// server (SHOW COLUMNS on MySQL, PRAGMA table_info on SQLite). The store uses
// them to decide whether a table can take seed rows at all.
//
// # Store
//
// Store implements reconcile.Store. Entity types map to tables by GORM's naming
// strategy; a type is accepted when its table exists and has the primary key
// column. Rows are looked up by primary key, inserted with Create and
// overwritten with Save. Associations are never written.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", zap.Error(err))
//	}
//
//	store := database.NewStore(db, database.WithStoreLogger(log))
//	plan, err := s.ApplyToStore(ctx, store)
package database
