package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitDB(t *testing.T) {
	testDBPath := filepath.Join(t.TempDir(), "test.db")

	db, err := InitDBWithPath(testDBPath)
	if err != nil {
		t.Fatalf("InitDBWithPath failed: %v", err)
	}
	defer db.Close()

	if _, statErr := os.Stat(testDBPath); os.IsNotExist(statErr) {
		t.Fatalf("Database file was not created at %s", testDBPath)
	}

	for _, table := range []string{"global_vars", "store_meta", "goose_db_version"} {
		var name string
		scanErr := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if scanErr != nil {
			t.Errorf("Table %s was not created: %v", table, scanErr)
		}
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}

	var busy int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatalf("Failed to query busy_timeout: %v", err)
	}
	if busy != defaultBusyTimeoutMS {
		t.Errorf("Expected busy_timeout=%d, got %d", defaultBusyTimeoutMS, busy)
	}
}

func TestInitDB_BusyTimeoutFromEnv(t *testing.T) {
	t.Setenv("TBOTCORE_BUSY_TIMEOUT_MS", "1234")

	db, err := InitDBWithPath(filepath.Join(t.TempDir(), "busy.db"))
	if err != nil {
		t.Fatalf("InitDBWithPath failed: %v", err)
	}
	defer db.Close()

	var busy int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busy); err != nil {
		t.Fatalf("Failed to query busy_timeout: %v", err)
	}
	if busy != 1234 {
		t.Errorf("Expected busy_timeout=1234, got %d", busy)
	}
}

func TestInitDB_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	for i := 0; i < 2; i++ {
		db, err := InitDBWithPath(path)
		if err != nil {
			t.Fatalf("open #%d failed: %v", i+1, err)
		}
		_ = db.Close()
	}
}

func TestNormalizeSQLiteDSN(t *testing.T) {
	cases := map[string]string{
		"/tmp/x.db":          "file:/tmp/x.db?mode=rwc",
		":memory:":           "file::memory:?cache=shared",
		"file:/tmp/y.db?x=1": "file:/tmp/y.db?x=1",
	}
	for in, want := range cases {
		if got := normalizeSQLiteDSN(in); got != want {
			t.Errorf("normalizeSQLiteDSN(%q) = %q, want %q", in, got, want)
		}
	}
}
