package database

import (
	"context"
	"errors"
	"strings"
	"time"
)

const tagSummaryColumns = `
SELECT t.id, t.name, t.color, t.created_at, COUNT(mt.id) AS media_count
FROM tags t
LEFT JOIN media_tags mt ON mt.tag_id = t.id`

func tagSummaryFromRow(row Row) TagSummary {
	return TagSummary{
		Tag: Tag{
			ID:    row.Int64("id"),
			Name:  row.String("name"),
			Color: row.String("color"),
		},
		CreatedAt:  row.Time("created_at"),
		MediaCount: row.Int64("media_count"),
	}
}

// ListTags returns every tag with its media count, ordered by name.
func (d *Database) ListTags(ctx context.Context) ([]TagSummary, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_tags", start, err) }()

	rows, err := d.Prepare(tagSummaryColumns + ` GROUP BY t.id ORDER BY t.name`).All(ctx)
	if err != nil {
		return nil, err
	}

	tags := make([]TagSummary, 0, len(rows))
	for _, row := range rows {
		tags = append(tags, tagSummaryFromRow(row))
	}
	return tags, nil
}

// GetTag returns a single tag with its media count.
func (d *Database) GetTag(ctx context.Context, id int64) (*TagSummary, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_tag", start, err) }()

	row, err := d.Prepare(tagSummaryColumns+` WHERE t.id = ? GROUP BY t.id`).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		err = ErrNotFound
		return nil, err
	}
	tag := tagSummaryFromRow(row)
	return &tag, nil
}

// CreateTag creates a tag. An empty color falls back to DefaultTagColor.
// Returns ErrAlreadyExists when the name is taken.
func (d *Database) CreateTag(ctx context.Context, name, color string) (*TagSummary, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_tag", start, err) }()

	name = strings.TrimSpace(name)
	if color == "" {
		color = DefaultTagColor
	}

	res, err := d.Prepare(`INSERT INTO tags (name, color) VALUES (?, ?)`).Run(ctx, name, color)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrAlreadyExists
		}
		return nil, err
	}

	return d.GetTag(ctx, res.LastInsertID)
}

// EnsureTag creates the tag if no tag with that name exists and reports
// whether it was created.
func (d *Database) EnsureTag(ctx context.Context, name, color string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("ensure_tag", start, err) }()

	res, err := d.Prepare(`INSERT OR IGNORE INTO tags (name, color) VALUES (?, ?)`).Run(ctx, name, color)
	if err != nil {
		return false, err
	}
	return res.Changes > 0, nil
}

// UpdateTag changes the name and/or color of a tag; nil fields are left
// as they are. Returns ErrAlreadyExists when another tag has the new name
// and ErrNotFound when the tag does not exist.
func (d *Database) UpdateTag(ctx context.Context, id int64, name, color *string) (*TagSummary, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_tag", start, err) }()

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		name = &trimmed

		var conflict Row
		conflict, err = d.Prepare(`SELECT id FROM tags WHERE name = ? AND id != ?`).Get(ctx, trimmed, id)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			err = ErrAlreadyExists
			return nil, err
		}
	}

	res, err := d.Prepare(`UPDATE tags SET name = COALESCE(?, name), color = COALESCE(?, color) WHERE id = ?`).
		Run(ctx, name, color, id)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrAlreadyExists
		}
		return nil, err
	}
	if res.Changes == 0 {
		err = ErrNotFound
		return nil, err
	}

	return d.GetTag(ctx, id)
}

// DeleteTag removes a tag and, through the cascade, its media associations.
func (d *Database) DeleteTag(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_tag", start, err) }()

	res, err := d.Prepare(`DELETE FROM tags WHERE id = ?`).Run(ctx, id)
	if err != nil {
		return err
	}
	if res.Changes == 0 {
		err = ErrNotFound
	}
	return err
}

// AddTagsToMedia attaches tags to a media item and returns how many new
// associations were created. Tags that are already attached or do not
// exist are skipped.
func (d *Database) AddTagsToMedia(ctx context.Context, mediaID int64, tagIDs []int64) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("add_media_tags", start, err) }()

	stmt := d.Prepare(`
		INSERT OR IGNORE INTO media_tags (media_id, tag_id)
		SELECT ?, id FROM tags WHERE id = ?`)

	var added int64
	for _, tagID := range tagIDs {
		var res Result
		res, err = stmt.Run(ctx, mediaID, tagID)
		if err != nil {
			if isForeignKeyViolation(err) {
				err = ErrNotFound
			}
			return added, err
		}
		added += res.Changes
	}
	return added, nil
}

// RemoveTagFromMedia detaches a tag from a media item. Returns ErrNotFound
// when the association does not exist.
func (d *Database) RemoveTagFromMedia(ctx context.Context, mediaID, tagID int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("remove_media_tag", start, err) }()

	res, err := d.Prepare(`DELETE FROM media_tags WHERE media_id = ? AND tag_id = ?`).Run(ctx, mediaID, tagID)
	if err != nil {
		return err
	}
	if res.Changes == 0 {
		err = ErrNotFound
	}
	return err
}

// MediaTagCount returns how many tags are attached to a media item.
func (d *Database) MediaTagCount(ctx context.Context, mediaID int64) (int64, error) {
	row, err := d.Prepare(`SELECT COUNT(*) AS n FROM media_tags WHERE media_id = ?`).Get(ctx, mediaID)
	if err != nil {
		return 0, err
	}
	return row.Int64("n"), nil
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
