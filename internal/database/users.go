package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const userColumns = `SELECT id, username, password, nickname, created_at FROM users`

func userFromRow(row Row) User {
	u := User{
		ID:           row.Int64("id"),
		Username:     row.String("username"),
		Nickname:     row.String("nickname"),
		PasswordHash: row.String("password"),
		CreatedAt:    row.Time("created_at"),
	}
	if u.Nickname == "" {
		u.Nickname = u.Username
	}
	return u
}

// GetUserByID returns the user with the given id.
func (d *Database) GetUserByID(ctx context.Context, id int64) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_user", start, err) }()

	row, err := d.Prepare(userColumns+` WHERE id = ?`).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		err = ErrNotFound
		return nil, err
	}
	u := userFromRow(row)
	return &u, nil
}

// GetUserByUsername returns the user with the given username.
func (d *Database) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_user_by_username", start, err) }()

	row, err := d.Prepare(userColumns+` WHERE username = ?`).Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if row == nil {
		err = ErrNotFound
		return nil, err
	}
	u := userFromRow(row)
	return &u, nil
}

// ListUsers returns every user, newest first.
func (d *Database) ListUsers(ctx context.Context) ([]User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_users", start, err) }()

	rows, err := d.Prepare(userColumns+` ORDER BY created_at DESC, id DESC`).All(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]User, 0, len(rows))
	for _, row := range rows {
		users = append(users, userFromRow(row))
	}
	return users, nil
}

// CreateUser registers a new account. An empty nickname defaults to the
// username. Returns ErrAlreadyExists when the username is taken.
func (d *Database) CreateUser(ctx context.Context, username, password, nickname string) (*User, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_user", start, err) }()

	username = strings.TrimSpace(username)
	if strings.TrimSpace(nickname) == "" {
		nickname = username
	}

	hash, err := d.hashPassword(password)
	if err != nil {
		return nil, err
	}

	res, err := d.Prepare(`INSERT INTO users (username, password, nickname) VALUES (?, ?, ?)`).
		Run(ctx, username, hash, nickname)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrAlreadyExists
		}
		return nil, err
	}

	return d.GetUserByID(ctx, res.LastInsertID)
}

// Authenticate checks a username/password pair and returns the user on
// success, or ErrInvalidCredentials.
func (d *Database) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := d.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// UpdatePassword replaces the password of the named user.
func (d *Database) UpdatePassword(ctx context.Context, username, password string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_password", start, err) }()

	hash, err := d.hashPassword(password)
	if err != nil {
		return err
	}

	res, err := d.Prepare(`UPDATE users SET password = ? WHERE username = ?`).Run(ctx, hash, username)
	if err != nil {
		return err
	}
	if res.Changes == 0 {
		err = ErrNotFound
	}
	return err
}

func (d *Database) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
