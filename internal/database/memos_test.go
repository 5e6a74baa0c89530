package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	author, _ := db.GetUserByUsername(ctx, SeedUsernames[0])

	memo, err := db.CreateMemo(ctx, author.ID, "周末", "去公园")
	if err != nil {
		t.Fatalf("CreateMemo() error = %v", err)
	}
	if memo.User == nil || memo.User.ID != author.ID {
		t.Errorf("memo.User = %+v, want author %d", memo.User, author.ID)
	}

	// Push the stored timestamps back so the refresh is observable at
	// second resolution.
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := db.Prepare(`UPDATE memos SET created_at = ?, updated_at = ? WHERE id = ?`).
		Run(ctx, old, old, memo.ID); err != nil {
		t.Fatalf("backdate memo: %v", err)
	}

	updated, err := db.UpdateMemo(ctx, memo.ID, "周末计划", "去公园野餐")
	if err != nil {
		t.Fatalf("UpdateMemo() error = %v", err)
	}
	if updated.Title != "周末计划" || updated.Content != "去公园野餐" {
		t.Errorf("UpdateMemo() = %+v", updated)
	}
	if !updated.UpdatedAt.After(old) {
		t.Errorf("UpdatedAt = %v, want refreshed after %v", updated.UpdatedAt, old)
	}
	if !updated.CreatedAt.Equal(old) {
		t.Errorf("CreatedAt = %v, want unchanged %v", updated.CreatedAt, old)
	}

	if err := db.DeleteMemo(ctx, memo.ID); err != nil {
		t.Fatalf("DeleteMemo() error = %v", err)
	}
	if _, err := db.GetMemo(ctx, memo.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMemo() after delete error = %v, want ErrNotFound", err)
	}
	if _, err := db.UpdateMemo(ctx, memo.ID, "x", "y"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateMemo() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteMemo(ctx, memo.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteMemo() twice error = %v, want ErrNotFound", err)
	}
}

func TestListMemosOrderedByUpdate(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	author, _ := db.GetUserByUsername(ctx, SeedUsernames[1])

	first, _ := db.CreateMemo(ctx, author.ID, "one", "1")
	second, _ := db.CreateMemo(ctx, author.ID, "two", "2")

	past := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	db.Prepare(`UPDATE memos SET updated_at = ?`).Run(ctx, past)
	if _, err := db.UpdateMemo(ctx, first.ID, "one", "edited"); err != nil {
		t.Fatalf("UpdateMemo() error = %v", err)
	}

	memos, err := db.ListMemos(ctx)
	if err != nil {
		t.Fatalf("ListMemos() error = %v", err)
	}
	if len(memos) != 2 {
		t.Fatalf("len(memos) = %d, want 2", len(memos))
	}
	if memos[0].ID != first.ID || memos[1].ID != second.ID {
		t.Errorf("order = [%d %d], want the edited memo first", memos[0].ID, memos[1].ID)
	}
}
