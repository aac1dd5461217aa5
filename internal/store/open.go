package store

import (
	"context"
	"database/sql"

	"github.com/mind-engage/mindengage-quiz/internal/db"
)

// Open returns the store for driver: "memory", "sqlite" or "postgres". The
// *sql.DB is nil for the memory store.
func Open(ctx context.Context, driver, dsn string) (Store, *sql.DB, error) {
	if driver == "memory" {
		return NewMemoryStore(), nil, nil
	}
	dbh, err := db.Open(ctx, db.Driver(driver), dsn)
	if err != nil {
		return nil, nil, err
	}
	return NewSQLStore(dbh, driver), dbh, nil
}
