package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/database"
	"github.com/betterMessi/feifeimeimeiwebsite-20251105-02/internal/startup"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second

	minPasswordLength = 6
)

// defaultTags is the tag set created by init-tags.
var defaultTags = []struct {
	Name  string
	Color string
}{
	{"肥肥美美", "#FF6B9D"},
	{"狗娃儿之家", "#4ECDC4"},
	{"证件照", "#95E1D3"},
	{"旅游", "#4A90E2"},
	{"吃吃喝喝", "#F39C12"},
	{"花花", "#E74C3C"},
	{"公主的眼影", "#9B59B6"},
	{"日常", "#3F51B5"},
}

// cli carries what the commands read and write so tests can swap them.
type cli struct {
	stdout       io.Writer
	stderr       io.Writer
	dbPath       string
	uploadDir    string
	seedPassword string
	bcryptCost   int
	readPassword func(prompt string) ([]byte, error)
}

func main() {
	// Resolve paths exactly as the server does: .env, config.yaml, environment
	config, err := startup.ReadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	c := newCLI(config)
	c.readPassword = terminalPassword
	os.Exit(c.run(ctx, os.Args[1:]))
}

// newCLI binds the commands to the configured database and upload directory.
func newCLI(config *startup.Config) *cli {
	return &cli{
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		dbPath:       config.DatabasePath,
		uploadDir:    config.UploadDir,
		seedPassword: config.SeedPassword,
	}
}

func terminalPassword(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	return password, err
}

// run executes one command and returns the process exit code.
func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) < 1 {
		c.printUsage()
		return 1
	}

	command, rest := args[0], args[1:]

	// clear-data must not create the database it is about to remove
	if command == "clear-data" {
		if len(rest) == 0 || rest[0] != "--yes" {
			fmt.Fprintln(c.stderr, "Error: clear-data deletes every photo and record; pass --yes to confirm")
			return 1
		}
		if err := c.clearData(); err != nil {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if !knownCommand(command) {
		fmt.Fprintf(c.stderr, "Unknown command: %s\n", sanitizeCommand(command))
		c.printUsage()
		return 1
	}

	db, err := database.Open(ctx, c.dbPath, database.Options{
		SeedPassword: c.seedPassword,
		BcryptCost:   c.bcryptCost,
	})
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: Failed to open database: %v\n", err)
		fmt.Fprintf(c.stderr, "Make sure DATABASE_PATH is set correctly (current: %s)\n", c.dbPath)
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(c.stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	switch command {
	case "reset":
		if len(rest) != 1 {
			fmt.Fprintln(c.stderr, "Usage: albumctl reset <username>")
			return 1
		}
		err = c.resetPassword(ctx, db, rest[0])
	case "status":
		err = c.showStatus(ctx, db)
	case "init-tags":
		err = c.initTags(ctx, db)
	case "backup":
		if len(rest) != 1 {
			fmt.Fprintln(c.stderr, "Usage: albumctl backup <destination>")
			return 1
		}
		err = c.backup(ctx, db, rest[0])
	}

	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func knownCommand(command string) bool {
	switch command {
	case "reset", "status", "init-tags", "backup":
		return true
	}
	return false
}

// sanitizeCommand returns a safe representation of a command string for display.
// It uses an allowlist approach, replacing any character that is not alphanumeric,
// a hyphen, or an underscore with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (c *cli) printUsage() {
	fmt.Fprintln(c.stdout, "Family Album Maintenance")
	fmt.Fprintln(c.stdout, "")
	fmt.Fprintln(c.stdout, "Usage: albumctl <command> [arguments]")
	fmt.Fprintln(c.stdout, "")
	fmt.Fprintln(c.stdout, "Commands:")
	fmt.Fprintln(c.stdout, "  reset <username>   - Set a new password for an account")
	fmt.Fprintln(c.stdout, "  status             - List accounts and album totals")
	fmt.Fprintln(c.stdout, "  init-tags          - Create the default tags if missing")
	fmt.Fprintln(c.stdout, "  backup <dest>      - Write a consistent copy of the database")
	fmt.Fprintln(c.stdout, "  clear-data --yes   - Delete the database and all uploads")
	fmt.Fprintln(c.stdout, "")
	fmt.Fprintln(c.stdout, "Configuration is read like the server's (.env, CONFIG_DIR/config.yaml, environment):")
	fmt.Fprintf(c.stdout, "  DATABASE_PATH - Path to the SQLite file (current: %s)\n", c.dbPath)
	fmt.Fprintf(c.stdout, "  UPLOAD_DIR    - Upload directory (current: %s)\n", c.uploadDir)
	fmt.Fprintln(c.stdout, "  SEED_PASSWORD - Password kept on the seed accounts")
}

func (c *cli) resetPassword(ctx context.Context, db *database.Database, username string) error {
	for _, seed := range database.SeedUsernames {
		if username == seed {
			return fmt.Errorf("%s is a seed account; its password follows SEED_PASSWORD", username)
		}
	}

	if _, err := db.GetUserByUsername(ctx, username); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("no account named %q", username)
		}
		return err
	}

	password, err := c.readPassword("New Password: ")
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	confirm, err := c.readPassword("Confirm Password: ")
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	if !bytes.Equal(password, confirm) {
		return errors.New("passwords do not match")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	if err := db.UpdatePassword(ctx, username, string(password)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	fmt.Fprintf(c.stdout, "Password for %s updated successfully.\n", username)
	return nil
}

func (c *cli) showStatus(ctx context.Context, db *database.Database) error {
	users, err := db.ListUsers(ctx)
	if err != nil {
		return err
	}
	stats, err := db.GetStats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "Database: %s\n", db.Path())
	fmt.Fprintf(c.stdout, "Accounts (%d):\n", len(users))
	for _, u := range users {
		fmt.Fprintf(c.stdout, "  %-4d %-16s %s\n", u.ID, u.Username, u.Nickname)
	}
	fmt.Fprintf(c.stdout, "Images: %d  Videos: %d  Tags: %d  Memos: %d  Comments: %d\n",
		stats.TotalImages, stats.TotalVideos, stats.TotalTags, stats.TotalMemos, stats.TotalComments)
	return nil
}

func (c *cli) initTags(ctx context.Context, db *database.Database) error {
	created := 0
	for _, tag := range defaultTags {
		ok, err := db.EnsureTag(ctx, tag.Name, tag.Color)
		if err != nil {
			return fmt.Errorf("creating tag %s: %w", tag.Name, err)
		}
		if ok {
			created++
			fmt.Fprintf(c.stdout, "  + %s\n", tag.Name)
		}
	}
	fmt.Fprintf(c.stdout, "Created %d of %d default tags.\n", created, len(defaultTags))
	return nil
}

func (c *cli) backup(ctx context.Context, db *database.Database, dest string) error {
	if err := db.Snapshot(ctx, dest); err != nil {
		return fmt.Errorf("snapshot failed: %w", err)
	}
	fmt.Fprintf(c.stdout, "Backup written to %s\n", dest)
	return nil
}

// clearData removes the database with its WAL side files and the uploads
// directory.
func (c *cli) clearData() error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		path := c.dbPath + suffix
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	fmt.Fprintf(c.stdout, "Removed database %s\n", c.dbPath)

	if err := os.RemoveAll(c.uploadDir); err != nil {
		return fmt.Errorf("removing %s: %w", c.uploadDir, err)
	}
	fmt.Fprintf(c.stdout, "Removed uploads %s\n", c.uploadDir)
	return nil
}
