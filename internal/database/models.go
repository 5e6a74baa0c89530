package database

import "time"

// DefaultTagColor is used when a tag is created without a color.
const DefaultTagColor = "#4A90E2"

// Media file types.
const (
	FileTypeImage = "image"
	FileTypeVideo = "video"
)

// User is an album account. The password hash never leaves the package
// through JSON.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Nickname     string    `json:"nickname"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Owner is the short user reference embedded in media and memos.
type Owner struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
}

// Tag is a label that can be attached to media items.
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TagSummary is a tag together with how many media items carry it.
type TagSummary struct {
	Tag
	CreatedAt  time.Time `json:"createdAt"`
	MediaCount int64     `json:"mediaCount"`
}

// MediaItem is an uploaded photo or video with its owner and tags.
// FilePath and ThumbnailPath hold either a local /uploads/... path or an
// object storage key; handlers resolve them to URLs before responding.
type MediaItem struct {
	ID            int64     `json:"id"`
	UserID        *int64    `json:"-"`
	Filename      string    `json:"filename"`
	OriginalName  string    `json:"originalName"`
	FilePath      string    `json:"filePath"`
	ThumbnailPath *string   `json:"thumbnailPath"`
	FileType      string    `json:"fileType"`
	MimeType      string    `json:"mimeType"`
	FileSize      int64     `json:"fileSize"`
	Width         *int64    `json:"width"`
	Height        *int64    `json:"height"`
	Description   string    `json:"description"`
	UploadTime    time.Time `json:"uploadTime"`
	CreatedAt     time.Time `json:"createdAt"`
	User          *Owner    `json:"user"`
	Tags          []Tag     `json:"tags"`
}

// NewMedia holds the fields written when a media row is created.
type NewMedia struct {
	UserID        int64
	Filename      string
	OriginalName  string
	FilePath      string
	ThumbnailPath *string
	FileType      string
	MimeType      string
	FileSize      int64
	Width         *int64
	Height        *int64
	Description   string
}

// MediaFilter selects a page of media items.
type MediaFilter struct {
	Page     int
	PageSize int
	FileType string
	TagID    int64
}

// MediaPage is one page of media items plus the total match count.
type MediaPage struct {
	Items []MediaItem
	Total int64
}

// Memo is a short note written by a family member.
type Memo struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	User      *Owner    `json:"user"`
}

// Comment is a remark on a media item.
type Comment struct {
	ID           int64     `json:"id"`
	MediaID      int64     `json:"media_id"`
	UserID       int64     `json:"user_id"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	UserNickname string    `json:"user_nickname"`
	Username     string    `json:"username"`
}

// owner builds the embedded owner reference from a joined user row,
// falling back to the username when the nickname is empty.
func owner(id *int64, nickname, username string) *Owner {
	if id == nil || username == "" {
		return nil
	}
	if nickname == "" {
		nickname = username
	}
	return &Owner{ID: *id, Nickname: nickname}
}
