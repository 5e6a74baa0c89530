package database

import (
	"context"
	"time"
)

const commentColumns = `
SELECT c.id, c.media_id, c.user_id, c.content, c.created_at,
	u.nickname AS user_nickname, u.username AS username
FROM comments c
LEFT JOIN users u ON u.id = c.user_id`

func commentFromRow(row Row) Comment {
	c := Comment{
		ID:           row.Int64("id"),
		MediaID:      row.Int64("media_id"),
		UserID:       row.Int64("user_id"),
		Content:      row.String("content"),
		CreatedAt:    row.Time("created_at"),
		UserNickname: row.String("user_nickname"),
		Username:     row.String("username"),
	}
	if c.UserNickname == "" {
		c.UserNickname = c.Username
	}
	return c
}

// ListComments returns the comments on a media item, oldest first.
func (d *Database) ListComments(ctx context.Context, mediaID int64) ([]Comment, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_comments", start, err) }()

	rows, err := d.Prepare(commentColumns+` WHERE c.media_id = ? ORDER BY c.created_at ASC, c.id ASC`).
		All(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	comments := make([]Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, commentFromRow(row))
	}
	return comments, nil
}

// GetComment returns a single comment.
func (d *Database) GetComment(ctx context.Context, id int64) (*Comment, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_comment", start, err) }()

	row, err := d.Prepare(commentColumns+` WHERE c.id = ?`).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		err = ErrNotFound
		return nil, err
	}
	c := commentFromRow(row)
	return &c, nil
}

// CreateComment adds a comment to a media item. Returns ErrNotFound when
// the media item does not exist.
func (d *Database) CreateComment(ctx context.Context, mediaID, userID int64, content string) (*Comment, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_comment", start, err) }()

	res, err := d.Prepare(`INSERT INTO comments (media_id, user_id, content) VALUES (?, ?, ?)`).
		Run(ctx, mediaID, userID, content)
	if err != nil {
		if isForeignKeyViolation(err) {
			err = ErrNotFound
		}
		return nil, err
	}
	return d.GetComment(ctx, res.LastInsertID)
}

// DeleteComment removes a comment.
func (d *Database) DeleteComment(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_comment", start, err) }()

	res, err := d.Prepare(`DELETE FROM comments WHERE id = ?`).Run(ctx, id)
	if err != nil {
		return err
	}
	if res.Changes == 0 {
		err = ErrNotFound
	}
	return err
}
