package database

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

const mediaColumns = `
SELECT m.id, m.user_id, m.filename, m.original_name, m.file_path, m.thumbnail_path,
	m.file_type, m.mime_type, m.file_size, m.width, m.height, m.description,
	m.upload_time, m.created_at, u.nickname AS user_nickname, u.username AS user_username
FROM media m
LEFT JOIN users u ON u.id = m.user_id`

const mediaOrder = ` ORDER BY m.upload_time DESC, m.id DESC`

func mediaFromRow(row Row) MediaItem {
	item := MediaItem{
		ID:            row.Int64("id"),
		UserID:        row.NullInt64("user_id"),
		Filename:      row.String("filename"),
		OriginalName:  row.String("original_name"),
		FilePath:      row.String("file_path"),
		ThumbnailPath: row.NullString("thumbnail_path"),
		FileType:      row.String("file_type"),
		MimeType:      row.String("mime_type"),
		FileSize:      row.Int64("file_size"),
		Width:         row.NullInt64("width"),
		Height:        row.NullInt64("height"),
		Description:   row.String("description"),
		UploadTime:    row.Time("upload_time"),
		CreatedAt:     row.Time("created_at"),
		Tags:          []Tag{},
	}
	item.User = owner(item.UserID, row.String("user_nickname"), row.String("user_username"))
	return item
}

// CreateMedia inserts a media row and returns its id.
func (d *Database) CreateMedia(ctx context.Context, m NewMedia) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_media", start, err) }()

	res, err := d.Prepare(`
		INSERT INTO media (user_id, filename, original_name, file_path, thumbnail_path,
			file_type, mime_type, file_size, width, height, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`).
		Run(ctx, m.UserID, m.Filename, m.OriginalName, m.FilePath, m.ThumbnailPath,
			m.FileType, m.MimeType, m.FileSize, m.Width, m.Height, m.Description)
	if err != nil {
		return 0, err
	}
	return res.LastInsertID, nil
}

// GetMedia returns a single media item with its tags.
func (d *Database) GetMedia(ctx context.Context, id int64) (*MediaItem, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_media", start, err) }()

	row, err := d.Prepare(mediaColumns+` WHERE m.id = ?`).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		err = ErrNotFound
		return nil, err
	}

	items := []MediaItem{mediaFromRow(row)}
	if err = d.attachTags(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// ListMedia returns one page of media items, newest first, filtered by
// file type and/or tag.
func (d *Database) ListMedia(ctx context.Context, filter MediaFilter) (*MediaPage, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_media", start, err) }()

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	var where []string
	var args []any
	if filter.FileType != "" {
		where = append(where, "m.file_type = ?")
		args = append(args, filter.FileType)
	}
	if filter.TagID > 0 {
		where = append(where, "EXISTS (SELECT 1 FROM media_tags mt WHERE mt.media_id = m.id AND mt.tag_id = ?)")
		args = append(args, filter.TagID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	countRow, err := d.Prepare(`SELECT COUNT(*) AS total FROM media m`+clause).Get(ctx, args...)
	if err != nil {
		return nil, err
	}

	pageArgs := append(append([]any{}, args...), filter.PageSize, (filter.Page-1)*filter.PageSize)
	rows, err := d.Prepare(mediaColumns+clause+mediaOrder+` LIMIT ? OFFSET ?`).All(ctx, pageArgs...)
	if err != nil {
		return nil, err
	}

	items := make([]MediaItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, mediaFromRow(row))
	}
	if err = d.attachTags(ctx, items); err != nil {
		return nil, err
	}

	return &MediaPage{Items: items, Total: countRow.Int64("total")}, nil
}

// Timeline returns every media item, newest first.
func (d *Database) Timeline(ctx context.Context) ([]MediaItem, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("media_timeline", start, err) }()

	rows, err := d.Prepare(mediaColumns + mediaOrder).All(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]MediaItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, mediaFromRow(row))
	}
	if err = d.attachTags(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteMedia removes a media row. Its tag associations and comments go
// with it through ON DELETE CASCADE.
func (d *Database) DeleteMedia(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_media", start, err) }()

	res, err := d.Prepare(`DELETE FROM media WHERE id = ?`).Run(ctx, id)
	if err != nil {
		return err
	}
	if res.Changes == 0 {
		err = ErrNotFound
	}
	return err
}

// attachTags loads the tags of every item in one query and fills in
// item.Tags in place.
func (d *Database) attachTags(ctx context.Context, items []MediaItem) error {
	if len(items) == 0 {
		return nil
	}

	ids := make([]int64, len(items))
	index := make(map[int64]int, len(items))
	for i, item := range items {
		ids[i] = item.ID
		index[item.ID] = i
	}
	idList, err := json.Marshal(ids)
	if err != nil {
		return err
	}

	rows, err := d.Prepare(`
		SELECT mt.media_id, t.id, t.name, t.color
		FROM media_tags mt
		JOIN tags t ON t.id = mt.tag_id
		WHERE mt.media_id IN (SELECT value FROM json_each(?))
		ORDER BY t.name, t.id`).All(ctx, string(idList))
	if err != nil {
		return err
	}

	for _, row := range rows {
		i, ok := index[row.Int64("media_id")]
		if !ok {
			continue
		}
		items[i].Tags = append(items[i].Tags, Tag{
			ID:    row.Int64("id"),
			Name:  row.String("name"),
			Color: row.String("color"),
		})
	}
	return nil
}
