package database

import (
	"context"
	"errors"
	"testing"
)

func TestCommentLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	mediaID := seedMedia(t, db, 1, FileTypeImage)[0]
	feifei, _ := db.GetUserByUsername(ctx, SeedUsernames[0])
	meimei, _ := db.GetUserByUsername(ctx, SeedUsernames[1])

	c1, err := db.CreateComment(ctx, mediaID, feifei.ID, "第一")
	if err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if _, err := db.CreateComment(ctx, mediaID, meimei.ID, "第二"); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	comments, err := db.ListComments(ctx, mediaID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("len(comments) = %d, want 2", len(comments))
	}
	if comments[0].ID != c1.ID {
		t.Errorf("first comment = %d, want oldest %d", comments[0].ID, c1.ID)
	}
	if comments[1].Username != SeedUsernames[1] || comments[1].UserNickname != SeedUsernames[1] {
		t.Errorf("author fields = %q/%q", comments[1].Username, comments[1].UserNickname)
	}

	if err := db.DeleteComment(ctx, c1.ID); err != nil {
		t.Fatalf("DeleteComment() error = %v", err)
	}
	if _, err := db.GetComment(ctx, c1.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetComment() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteComment(ctx, c1.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteComment() twice error = %v, want ErrNotFound", err)
	}
}

func TestCreateCommentOnMissingMedia(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	u, _ := db.GetUserByUsername(ctx, SeedUsernames[0])

	if _, err := db.CreateComment(ctx, 777, u.ID, "hello"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CreateComment() error = %v, want ErrNotFound", err)
	}
}
