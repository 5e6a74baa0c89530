package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// setupTestDB creates a database in a temporary directory.
func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(context.Background(), dbPath, Options{BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}
}

// seedMedia inserts n media rows owned by the first seed account.
func seedMedia(t *testing.T, db *Database, n int, fileType string) []int64 {
	t.Helper()

	owner, err := db.GetUserByUsername(context.Background(), SeedUsernames[0])
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}

	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		id, err := db.CreateMedia(context.Background(), NewMedia{
			UserID:       owner.ID,
			Filename:     "file.jpg",
			OriginalName: "file.jpg",
			FilePath:     "/uploads/file.jpg",
			FileType:     fileType,
			MimeType:     "image/jpeg",
			FileSize:     int64(1000 + i),
		})
		if err != nil {
			t.Fatalf("CreateMedia() error = %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

// =============================================================================
// Bootstrap
// =============================================================================

func TestOpenCreatesSchema(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	for _, table := range []string{"users", "media", "tags", "media_tags", "memos", "comments"} {
		row, err := db.Prepare(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`).Get(ctx, table)
		if err != nil {
			t.Fatalf("query sqlite_master: %v", err)
		}
		if row == nil {
			t.Errorf("table %s was not created", table)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "album.db")
	opts := Options{BcryptCost: bcrypt.MinCost}

	db, err := Open(context.Background(), dbPath, opts)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	if _, err := db.CreateTag(context.Background(), "旅游", ""); err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	db, err = Open(context.Background(), dbPath, opts)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer db.Close()

	tags, err := db.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "旅游" {
		t.Errorf("tags after reopen = %+v, want the one created tag", tags)
	}

	users, err := db.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != len(SeedUsernames) {
		t.Errorf("len(users) = %d, want %d (no duplicate seeding)", len(users), len(SeedUsernames))
	}
}

func TestSeedUsers(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	for _, name := range SeedUsernames {
		u, err := db.Authenticate(ctx, name, DefaultSeedPassword)
		if err != nil {
			t.Errorf("Authenticate(%s) error = %v", name, err)
			continue
		}
		if u.Nickname != name {
			t.Errorf("Nickname = %q, want %q", u.Nickname, name)
		}
		if u.PasswordHash == DefaultSeedPassword {
			t.Errorf("seed password for %s stored in plaintext", name)
		}
	}
}

func TestSeedResetsChangedPassword(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "album.db")
	opts := Options{BcryptCost: bcrypt.MinCost}
	ctx := context.Background()

	db, err := Open(ctx, dbPath, opts)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.UpdatePassword(ctx, SeedUsernames[0], "something-else"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	// Plaintext values from older databases must be replaced as well.
	if _, err := db.Prepare(`UPDATE users SET password = ? WHERE username = ?`).Run(ctx, "plain", SeedUsernames[1]); err != nil {
		t.Fatalf("overwrite password: %v", err)
	}
	db.Close()

	db, err = Open(ctx, dbPath, opts)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()

	for _, name := range SeedUsernames {
		if _, err := db.Authenticate(ctx, name, DefaultSeedPassword); err != nil {
			t.Errorf("Authenticate(%s) after reopen error = %v", name, err)
		}
	}
}

func TestCustomSeedPassword(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "album.db")
	db, err := Open(context.Background(), dbPath, Options{SeedPassword: "family-2024", BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if _, err := db.Authenticate(context.Background(), SeedUsernames[0], "family-2024"); err != nil {
		t.Errorf("Authenticate with custom seed password error = %v", err)
	}
	if _, err := db.Authenticate(context.Background(), SeedUsernames[0], DefaultSeedPassword); err != ErrInvalidCredentials {
		t.Errorf("Authenticate with default password error = %v, want ErrInvalidCredentials", err)
	}
}

func TestNewUsesDefaults(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "album.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Close()

	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}
	if _, err := db.Authenticate(context.Background(), SeedUsernames[1], DefaultSeedPassword); err != nil {
		t.Errorf("Authenticate with default seed password error = %v", err)
	}
}

func TestOpenRecoversFromCorruptFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "album.db")
	garbage := []byte(strings.Repeat("this is not a sqlite database ", 200))
	if err := os.WriteFile(dbPath, garbage, 0o600); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	db, err := Open(context.Background(), dbPath, Options{BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("Open() on corrupt file error = %v", err)
	}
	defer db.Close()

	users, err := db.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != len(SeedUsernames) {
		t.Errorf("len(users) = %d, want %d on the fresh database", len(users), len(SeedUsernames))
	}

	matches, err := filepath.Glob(dbPath + ".corrupt-*")
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("found %d quarantined files, want 1", len(matches))
	}
	kept, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read quarantined file: %v", err)
	}
	if string(kept) != string(garbage) {
		t.Error("quarantined file content differs from the original")
	}
}

func TestSnapshot(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := db.CreateTag(ctx, "花花", "#E74C3C"); err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}

	dest := filepath.Join(t.TempDir(), "backup", "album.db")
	if err := db.Snapshot(ctx, dest); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	copyDB, err := Open(ctx, dest, Options{BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("Open(snapshot) error = %v", err)
	}
	defer copyDB.Close()

	tags, err := copyDB.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "花花" {
		t.Errorf("snapshot tags = %+v, want [花花]", tags)
	}

	if err := db.Snapshot(ctx, dest); err == nil {
		t.Error("Snapshot() onto an existing file should fail")
	}
}

// =============================================================================
// Statement wrapper
// =============================================================================

func TestPrepareCachesStatements(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	a := db.Prepare(`SELECT id FROM tags WHERE id = ?`)
	b := db.Prepare(`SELECT id FROM tags WHERE id = ?`)
	if a != b {
		t.Error("Prepare() returned different handles for the same SQL")
	}

	if a.prepared != nil {
		t.Error("statement compiled before first use")
	}
	if _, err := a.Get(context.Background(), 1); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if a.prepared == nil {
		t.Error("statement not compiled after first use")
	}
}

func TestPrepareInvalidSQLIsRetried(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	stmt := db.Prepare(`SELECT * FROM table_that_does_not_exist_yet`)
	if _, err := stmt.All(context.Background()); err == nil {
		t.Fatal("All() on missing table should fail")
	}

	if err := db.Exec(context.Background(), `CREATE TABLE table_that_does_not_exist_yet (x INTEGER)`); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if _, err := stmt.All(context.Background()); err != nil {
		t.Errorf("All() after table creation error = %v", err)
	}
}

func TestRunReportsTrueChanges(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		res, err := db.Prepare(`INSERT INTO tags (name) VALUES (?)`).Run(ctx, name)
		if err != nil {
			t.Fatalf("insert %s: %v", name, err)
		}
		if res.Changes != 1 || res.LastInsertID == 0 {
			t.Errorf("insert result = %+v, want Changes=1 and an id", res)
		}
	}

	tests := []struct {
		name string
		sql  string
		args []any
		want int64
	}{
		{"multi-row update", `UPDATE tags SET color = ?`, []any{"#000000"}, 3},
		{"no-match update", `UPDATE tags SET color = ? WHERE id = ?`, []any{"#111111", 999}, 0},
		{"single delete", `DELETE FROM tags WHERE name = ?`, []any{"a"}, 1},
		{"no-match delete", `DELETE FROM tags WHERE name = ?`, []any{"zzz"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := db.Prepare(tt.sql).Run(ctx, tt.args...)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Changes != tt.want {
				t.Errorf("Changes = %d, want %d", res.Changes, tt.want)
			}
		})
	}
}

func TestGetAndAll(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	row, err := db.Prepare(`SELECT id FROM users WHERE username = ?`).Get(ctx, "nobody")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if row != nil {
		t.Errorf("Get() = %v, want nil for no match", row)
	}

	rows, err := db.Prepare(`SELECT username FROM users WHERE username = ?`).All(ctx, "nobody")
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("All() = %v, want empty non-nil slice", rows)
	}

	rows, err = db.Prepare(`SELECT username FROM users ORDER BY id`).All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(rows) != 2 || rows[0].String("username") != SeedUsernames[0] {
		t.Errorf("All() = %v, want both seed users in id order", rows)
	}
}

func TestRowAccessors(t *testing.T) {
	stamp := time.Date(2025, 11, 5, 8, 30, 0, 0, time.UTC)
	row := Row{
		"int":      int64(42),
		"float":    float64(7),
		"text":     "hello",
		"numtext":  "15",
		"bytes":    []byte("raw"),
		"null":     nil,
		"time":     stamp,
		"timetext": "2025-11-05 08:30:00",
	}

	if got := row.Int64("int"); got != 42 {
		t.Errorf("Int64(int) = %d, want 42", got)
	}
	if got := row.Int64("float"); got != 7 {
		t.Errorf("Int64(float) = %d, want 7", got)
	}
	if got := row.Int64("numtext"); got != 15 {
		t.Errorf("Int64(numtext) = %d, want 15", got)
	}
	if got := row.NullInt64("null"); got != nil {
		t.Errorf("NullInt64(null) = %v, want nil", *got)
	}
	if got := row.NullInt64("int"); got == nil || *got != 42 {
		t.Errorf("NullInt64(int) = %v, want 42", got)
	}
	if got := row.String("bytes"); got != "raw" {
		t.Errorf("String(bytes) = %q, want %q", got, "raw")
	}
	if got := row.String("missing"); got != "" {
		t.Errorf("String(missing) = %q, want empty", got)
	}
	if got := row.NullString("null"); got != nil {
		t.Errorf("NullString(null) = %q, want nil", *got)
	}
	if got := row.Time("time"); !got.Equal(stamp) {
		t.Errorf("Time(time) = %v, want %v", got, stamp)
	}
	if got := row.Time("timetext"); !got.Equal(stamp) {
		t.Errorf("Time(timetext) = %v, want %v", got, stamp)
	}
}

func TestGetStats(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	seedMedia(t, db, 3, FileTypeImage)
	seedMedia(t, db, 2, FileTypeVideo)

	stats, err := db.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.TotalImages != 3 || stats.TotalVideos != 2 {
		t.Errorf("images/videos = %d/%d, want 3/2", stats.TotalImages, stats.TotalVideos)
	}
	if stats.TotalUsers != 2 {
		t.Errorf("TotalUsers = %d, want 2", stats.TotalUsers)
	}
	if stats.DBFileSizes["main"] == 0 {
		t.Error("main database file size not reported")
	}
}
