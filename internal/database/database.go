package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/logging"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Options tunes database bootstrap.
type Options struct {
	// SeedPassword is the password kept valid for the seed accounts.
	// Defaults to DefaultSeedPassword.
	SeedPassword string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Database manages all database operations for the family album.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex

	stmtMu sync.Mutex
	stmts  map[string]*Stmt

	bcryptCost int
}

// New opens the database at dbPath with default options.
func New(ctx context.Context, dbPath string) (*Database, error) {
	return Open(ctx, dbPath, Options{})
}

// Open opens (or creates) the SQLite database file at dbPath, bootstraps the
// schema and makes sure the seed accounts exist.
//
// If the existing file cannot be read as a database it is moved aside to
// <dbPath>.corrupt-<unix time> and a fresh database is created in its place.
func Open(ctx context.Context, dbPath string, opts Options) (*Database, error) {
	if opts.SeedPassword == "" {
		opts.SeedPassword = DefaultSeedPassword
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	logging.Info("Database path: %s", dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	d, err := openAndInitialize(ctx, dbPath, opts)
	if err != nil && isUnreadable(err) {
		logging.Error("Database file %s is unreadable: %v", dbPath, err)

		moved, qErr := quarantine(dbPath)
		if qErr != nil {
			return nil, fmt.Errorf("failed to move unreadable database aside: %w", qErr)
		}
		metrics.DBRecoveriesTotal.Inc()
		logging.Warn("Moved unreadable database to %s, starting with an empty database", moved)

		d, err = openAndInitialize(ctx, dbPath, opts)
	}
	if err != nil {
		return nil, err
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func openAndInitialize(ctx context.Context, dbPath string, opts Options) (*Database, error) {
	// synchronous=FULL makes every committed statement durable before Run
	// returns. foreign_keys drives the media cascades.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Reading the schema forces SQLite to parse the file header.
	var n int
	if err := db.QueryRowContext(pingCtx, "SELECT COUNT(*) FROM sqlite_master").Scan(&n); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to read database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:         db,
		dbPath:     dbPath,
		stmts:      make(map[string]*Stmt),
		bcryptCost: opts.BcryptCost,
	}

	if err := d.initialize(ctx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	if err := d.seedUsers(ctx, opts.SeedPassword); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}

	return d, nil
}

func closeQuietly(db *sql.DB) {
	if err := db.Close(); err != nil {
		logging.Error("failed to close database: %v", err)
	}
}

// isUnreadable reports whether err means the file is not a usable SQLite
// database.
func isUnreadable(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrNotADB || sqliteErr.Code == sqlite3.ErrCorrupt
}

// quarantine renames the database file and removes its WAL side files.
func quarantine(dbPath string) (string, error) {
	dest := fmt.Sprintf("%s.corrupt-%d", dbPath, time.Now().Unix())
	if err := os.Rename(dbPath, dest); err != nil {
		return "", err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			logging.Warn("Failed to remove %s%s: %v", dbPath, suffix, err)
		}
	}
	return dest, nil
}

// Exec runs a multi-statement script under the write lock.
func (d *Database) Exec(ctx context.Context, script string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, script)
	return err
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// Ping verifies the database is reachable.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

// Close checkpoints the WAL into the main file and closes the connection.
func (d *Database) Close() error {
	d.stmtMu.Lock()
	for _, s := range d.stmts {
		if err := s.close(); err != nil {
			logging.Warn("failed to close statement: %v", err)
		}
	}
	d.stmts = make(map[string]*Stmt)
	d.stmtMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if _, err := d.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logging.Warn("WAL checkpoint on close failed: %v", err)
	}
	return d.db.Close()
}

// Snapshot writes a consistent copy of the whole database to dest.
// dest must not exist yet.
func (d *Database) Snapshot(ctx context.Context, dest string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("snapshot", start, err) }()

	if _, statErr := os.Stat(dest); statErr == nil {
		err = fmt.Errorf("snapshot destination %s already exists", dest)
		return err
	}
	if err = os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "VACUUM INTO ?", dest)
	return err
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil && !errors.Is(err, ErrNotFound) {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// fileSizes returns the sizes of the main database file and its WAL side
// files. Missing files are skipped.
func (d *Database) fileSizes() map[string]int64 {
	sizes := make(map[string]int64, 3)
	for label, path := range map[string]string{
		"main": d.dbPath,
		"wal":  d.dbPath + "-wal",
		"shm":  d.dbPath + "-shm",
	} {
		if info, err := os.Stat(path); err == nil {
			sizes[label] = info.Size()
		}
	}
	return sizes
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}
	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("%s is read-only! Mode: %v - this will cause write failures", path, info.Mode())
			if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
				logging.Error("Failed to fix permissions on %s: %v", path, chmodErr)
			}
		}
	}

	return nil
}
