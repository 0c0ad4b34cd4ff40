package database

import (
	"context"
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
)

// useMigrations swaps the registered migrations for the duration of a test.
func useMigrations(t *testing.T, fsys fs.FS) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	MigrationsFS, MigrationsDir = fsys, "."
	t.Cleanup(func() { MigrationsFS, MigrationsDir = origFS, origDir })
}

var testMigrations = fstest.MapFS{
	"20261001_090000_create_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY) STRICT;")},
	"20261001_090000_create_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
	"20261002_090000_add_gadgets.up.sql":      {Data: []byte("CREATE TABLE gadgets (id TEXT PRIMARY KEY) STRICT;")},
	"README.md":                               {Data: []byte("not a migration")},
}

func TestMigrate(t *testing.T) {
	useMigrations(t, testMigrations)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	for _, table := range []string{"widgets", "gadgets"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s not created", table)
		}
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2 and 0", len(applied), len(pending))
	}
	if applied[0].Version != "20261001_090000" {
		t.Errorf("applied[0].Version = %q", applied[0].Version)
	}
	if applied[0].AppliedAt.IsZero() {
		t.Error("applied[0].AppliedAt is zero")
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureKeepsEarlier(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20261001_090000_ok.up.sql":     {Data: []byte("CREATE TABLE ok (id INTEGER);")},
		"20261002_090000_broken.up.sql": {Data: []byte("CREATE TABLE;")},
	})
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() expected error for broken migration")
	}
	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 1 and 1", len(applied), len(pending))
	}
}

func TestMigrate_DuplicateVersion(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20261001_090000_one.up.sql": {Data: []byte("CREATE TABLE one (id INTEGER);")},
		"20261001_090000_two.up.sql": {Data: []byte("CREATE TABLE two (id INTEGER);")},
	})
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); !errors.Is(err, ErrDuplicateMigration) {
		t.Errorf("Migrate() error = %v, want ErrDuplicateMigration", err)
	}
}

func TestMigrate_NoMigrations(t *testing.T) {
	useMigrations(t, nil)
	db := openTestDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() with no migrations error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		version  string
		name     string
		ok       bool
	}{
		{"20261014_120000_create_assignments.up.sql", "20261014_120000", "create_assignments", true},
		{"20261014_120000.up.sql", "20261014_120000", "20261014_120000", true},
		{"20261014_120000_create_assignments.down.sql", "", "", false},
		{"20261014_120000_x.sql", "", "", false},
		{"20261014_120000_x.up.txt", "", "", false},
		{"2026_1200_x.up.sql", "", "", false},
		{"create.up.sql", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseMigrationFilename(tt.filename)
			if ok != tt.ok || version != tt.version || name != tt.name {
				t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.filename, version, name, ok, tt.version, tt.name, tt.ok)
			}
		})
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&n)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	return n == 1
}
