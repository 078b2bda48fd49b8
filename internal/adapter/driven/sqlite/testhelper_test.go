package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
)

// setupTestDB opens a named shared in-memory database with the same dual
// reader/writer shape as NewDB and applies the migrations. The name comes
// from t.Name() so parallel tests never share state; cache=shared makes both
// pools see the same database. WAL does not apply in-memory, so the
// journal_mode pragma is omitted.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// t.Name() may contain '/' for subtests; escape it so the DSN filename
	// part cannot leak into the query string.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)",
		url.PathEscape(t.Name()),
	)

	db := &DB{path: dsn}
	for _, pool := range []struct {
		dest     **sql.DB
		maxConns int
	}{
		{&db.Writer, 1},
		{&db.Reader, 4},
	} {
		conn, err := sql.Open("sqlite", dsn)
		if err != nil {
			t.Fatalf("open test db: %v", err)
		}
		conn.SetMaxOpenConns(pool.maxConns)
		if err := conn.PingContext(context.Background()); err != nil {
			t.Fatalf("ping test db: %v", err)
		}
		*pool.dest = conn
		t.Cleanup(func() { _ = conn.Close() })
	}

	if err := RunMigrations(db.Writer); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	return db
}
