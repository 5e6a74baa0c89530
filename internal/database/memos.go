package database

import (
	"context"
	"time"
)

const memoColumns = `
SELECT mo.id, mo.user_id, mo.title, mo.content, mo.created_at, mo.updated_at,
	u.nickname AS user_nickname, u.username AS user_username
FROM memos mo
LEFT JOIN users u ON u.id = mo.user_id`

func memoFromRow(row Row) Memo {
	m := Memo{
		ID:        row.Int64("id"),
		UserID:    row.Int64("user_id"),
		Title:     row.String("title"),
		Content:   row.String("content"),
		CreatedAt: row.Time("created_at"),
		UpdatedAt: row.Time("updated_at"),
	}
	m.User = owner(&m.UserID, row.String("user_nickname"), row.String("user_username"))
	return m
}

// ListMemos returns every memo, most recently edited first.
func (d *Database) ListMemos(ctx context.Context) ([]Memo, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_memos", start, err) }()

	rows, err := d.Prepare(memoColumns + ` ORDER BY mo.updated_at DESC, mo.id DESC`).All(ctx)
	if err != nil {
		return nil, err
	}

	memos := make([]Memo, 0, len(rows))
	for _, row := range rows {
		memos = append(memos, memoFromRow(row))
	}
	return memos, nil
}

// GetMemo returns a single memo.
func (d *Database) GetMemo(ctx context.Context, id int64) (*Memo, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_memo", start, err) }()

	row, err := d.Prepare(memoColumns+` WHERE mo.id = ?`).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		err = ErrNotFound
		return nil, err
	}
	m := memoFromRow(row)
	return &m, nil
}

// CreateMemo writes a new memo for userID.
func (d *Database) CreateMemo(ctx context.Context, userID int64, title, content string) (*Memo, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_memo", start, err) }()

	res, err := d.Prepare(`INSERT INTO memos (user_id, title, content) VALUES (?, ?, ?)`).
		Run(ctx, userID, title, content)
	if err != nil {
		return nil, err
	}
	return d.GetMemo(ctx, res.LastInsertID)
}

// UpdateMemo replaces title and content and refreshes updated_at.
func (d *Database) UpdateMemo(ctx context.Context, id int64, title, content string) (*Memo, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_memo", start, err) }()

	res, err := d.Prepare(`UPDATE memos SET title = ?, content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`).
		Run(ctx, title, content, id)
	if err != nil {
		return nil, err
	}
	if res.Changes == 0 {
		err = ErrNotFound
		return nil, err
	}
	return d.GetMemo(ctx, id)
}

// DeleteMemo removes a memo.
func (d *Database) DeleteMemo(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_memo", start, err) }()

	res, err := d.Prepare(`DELETE FROM memos WHERE id = ?`).Run(ctx, id)
	if err != nil {
		return err
	}
	if res.Changes == 0 {
		err = ErrNotFound
	}
	return err
}
