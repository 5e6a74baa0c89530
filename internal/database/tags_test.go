package database

import (
	"context"
	"errors"
	"testing"
)

func TestCreateTagUniqueness(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	first, err := db.CreateTag(ctx, "狗娃儿之家", "#4ECDC4")
	if err != nil {
		t.Fatalf("first CreateTag() error = %v", err)
	}
	if first.Color != "#4ECDC4" || first.MediaCount != 0 {
		t.Errorf("created tag = %+v", first)
	}

	if _, err := db.CreateTag(ctx, "狗娃儿之家", "#000000"); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate CreateTag() error = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateTagDefaultColor(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	tag, err := db.CreateTag(context.Background(), "旅游", "")
	if err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	if tag.Color != DefaultTagColor {
		t.Errorf("Color = %q, want %q", tag.Color, DefaultTagColor)
	}
}

func TestAddTagsToMediaIsIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	mediaID := seedMedia(t, db, 1, FileTypeImage)[0]
	tag, _ := db.CreateTag(ctx, "花花", "")

	added, err := db.AddTagsToMedia(ctx, mediaID, []int64{tag.ID})
	if err != nil {
		t.Fatalf("first AddTagsToMedia() error = %v", err)
	}
	if added != 1 {
		t.Errorf("first added = %d, want 1", added)
	}

	added, err = db.AddTagsToMedia(ctx, mediaID, []int64{tag.ID})
	if err != nil {
		t.Fatalf("second AddTagsToMedia() error = %v", err)
	}
	if added != 0 {
		t.Errorf("second added = %d, want 0", added)
	}

	n, _ := db.MediaTagCount(ctx, mediaID)
	if n != 1 {
		t.Errorf("associations = %d, want exactly 1", n)
	}
}

func TestAddTagsToMediaSkipsUnknownTags(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	mediaID := seedMedia(t, db, 1, FileTypeImage)[0]
	tag, _ := db.CreateTag(ctx, "日常", "")

	added, err := db.AddTagsToMedia(ctx, mediaID, []int64{9999, tag.ID, tag.ID})
	if err != nil {
		t.Fatalf("AddTagsToMedia() error = %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
}

func TestAddTagsToMissingMedia(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tag, _ := db.CreateTag(ctx, "日常", "")

	if _, err := db.AddTagsToMedia(ctx, 4242, []int64{tag.ID}); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddTagsToMedia() on missing media error = %v, want ErrNotFound", err)
	}
}

func TestRemoveTagFromMedia(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	mediaID := seedMedia(t, db, 1, FileTypeImage)[0]
	tag, _ := db.CreateTag(ctx, "旅游", "")
	db.AddTagsToMedia(ctx, mediaID, []int64{tag.ID})

	if err := db.RemoveTagFromMedia(ctx, mediaID, tag.ID); err != nil {
		t.Fatalf("RemoveTagFromMedia() error = %v", err)
	}
	if err := db.RemoveTagFromMedia(ctx, mediaID, tag.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second RemoveTagFromMedia() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateTag(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	a, _ := db.CreateTag(ctx, "a", "#111111")
	db.CreateTag(ctx, "b", "#222222")

	strPtr := func(s string) *string { return &s }

	tests := []struct {
		name      string
		id        int64
		newName   *string
		newColor  *string
		wantErr   error
		wantName  string
		wantColor string
	}{
		{"color only", a.ID, nil, strPtr("#333333"), nil, "a", "#333333"},
		{"rename", a.ID, strPtr(" a2 "), nil, nil, "a2", "#333333"},
		{"keep own name", a.ID, strPtr("a2"), nil, nil, "a2", "#333333"},
		{"conflict", a.ID, strPtr("b"), nil, ErrAlreadyExists, "", ""},
		{"missing", 999, strPtr("zzz"), nil, ErrNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.UpdateTag(ctx, tt.id, tt.newName, tt.newColor)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("UpdateTag() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateTag() error = %v", err)
			}
			if got.Name != tt.wantName || got.Color != tt.wantColor {
				t.Errorf("UpdateTag() = %s/%s, want %s/%s", got.Name, got.Color, tt.wantName, tt.wantColor)
			}
		})
	}
}

func TestDeleteTag(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	mediaID := seedMedia(t, db, 1, FileTypeImage)[0]
	tag, _ := db.CreateTag(ctx, "公主的眼影", "#9B59B6")
	db.AddTagsToMedia(ctx, mediaID, []int64{tag.ID})

	if err := db.DeleteTag(ctx, tag.ID); err != nil {
		t.Fatalf("DeleteTag() error = %v", err)
	}
	if n, _ := db.MediaTagCount(ctx, mediaID); n != 0 {
		t.Errorf("associations after tag delete = %d, want 0", n)
	}
	if err := db.DeleteTag(ctx, tag.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteTag() error = %v, want ErrNotFound", err)
	}
}

func TestListTagsOrderAndCounts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	ids := seedMedia(t, db, 3, FileTypeImage)
	b, _ := db.CreateTag(ctx, "b", "")
	a, _ := db.CreateTag(ctx, "a", "")
	for _, id := range ids {
		db.AddTagsToMedia(ctx, id, []int64{b.ID})
	}
	db.AddTagsToMedia(ctx, ids[0], []int64{a.ID})

	tags, err := db.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags() error = %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("len(tags) = %d, want 2", len(tags))
	}
	if tags[0].Name != "a" || tags[0].MediaCount != 1 {
		t.Errorf("tags[0] = %+v, want a with 1 media", tags[0])
	}
	if tags[1].Name != "b" || tags[1].MediaCount != 3 {
		t.Errorf("tags[1] = %+v, want b with 3 media", tags[1])
	}
}

func TestEnsureTag(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	created, err := db.EnsureTag(ctx, "肥肥美美", "#FF6B9D")
	if err != nil || !created {
		t.Fatalf("first EnsureTag() = %v, %v, want true, nil", created, err)
	}
	created, err = db.EnsureTag(ctx, "肥肥美美", "#000000")
	if err != nil || created {
		t.Errorf("second EnsureTag() = %v, %v, want false, nil", created, err)
	}
}
