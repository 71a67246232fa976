package storage

import (
	"context"
	"errors"
	"testing"
)

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		url    string
		driver string
		dsn    string
	}{
		{":memory:", DriverSQLite, ":memory:"},
		{"sqlite://inspector.db", DriverSQLite, "inspector.db"},
		{"sqlite:///./inspector.db", DriverSQLite, "./inspector.db"},
		{"sqlite+aiosqlite:///./inspector.db", DriverSQLite, "./inspector.db"},
		{"sqlite:////var/lib/inspector.db", DriverSQLite, "/var/lib/inspector.db"},
		{"file:test.db?mode=memory", DriverSQLite, "file:test.db?mode=memory"},
		{"postgres://u:p@localhost:5432/inspector", DriverPostgres, "postgres://u:p@localhost:5432/inspector"},
		{"postgresql://localhost/inspector", DriverPostgres, "postgresql://localhost/inspector"},
	}

	for _, tt := range tests {
		driver, dsn, err := ParseDatabaseURL(tt.url)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.url, err)
		}
		if driver != tt.driver || dsn != tt.dsn {
			t.Fatalf("%s: expected (%s, %s), got (%s, %s)", tt.url, tt.driver, tt.dsn, driver, dsn)
		}
	}

	for _, bad := range []string{"", "mysql://localhost/x", "sqlite://"} {
		if _, _, err := ParseDatabaseURL(bad); !errors.Is(err, ErrUnsupportedDatabase) {
			t.Fatalf("%q: expected ErrUnsupportedDatabase, got %v", bad, err)
		}
	}
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	db, err := OpenDatabase(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	// Second run is a no-op.
	if err := Migrate(db); err != nil {
		t.Fatalf("Failed to re-run migrations: %v", err)
	}

	for _, table := range []string{"registros", "usuarios", "historial_cambios", "historial_usuarios"} {
		var n int
		if err := db.Get(&n, "SELECT COUNT(*) FROM "+table); err != nil {
			t.Fatalf("table %s not created: %v", table, err)
		}
	}
}
