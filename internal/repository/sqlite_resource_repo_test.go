package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/hitoshi/diffwatch/internal/database"
	"github.com/hitoshi/diffwatch/internal/model"
)

// setupTestDB はマイグレーション適用済みのインメモリデータベースを準備する。
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.InMemoryDSN)
	if err != nil {
		t.Fatalf("データベースのオープンに失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("マイグレーション実行に失敗: %v", err)
	}

	return db
}

// replaceResources はトランザクション内でReplaceAllを実行して確定する。
func replaceResources(t *testing.T, db *sql.DB, repo *SQLiteResourceRepo, resources []*model.Resource) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("トランザクション開始に失敗: %v", err)
	}
	if err := repo.ReplaceAll(context.Background(), tx, resources); err != nil {
		tx.Rollback()
		t.Fatalf("ReplaceAllに失敗: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("コミットに失敗: %v", err)
	}
}

func TestSQLiteResourceRepo_ReplaceAllAndListAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteResourceRepo(db)
	ctx := context.Background()

	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	three := 3
	resources := []*model.Resource{
		{
			ID: 2, Order: 0, URL: "http://example.com/b",
			IsFavorite: true, TimeoutSec: 5, DiffThreshold: 1,
			IsUnread: true, AddedAt: now,
			LastFetch: model.FetchOutcomeSuccess, DiffLines: &three,
		},
		{
			ID: 1, Order: 1, URL: "http://example.com/a",
			TimeoutSec: 2, DiffThreshold: 2, AddedAt: now,
		},
	}

	replaceResources(t, db, repo, resources)

	got, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAllに失敗: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("リソース数 = %d, want 2", len(got))
	}

	// ord昇順で返る
	if got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("取得順 = [%d, %d], want [2, 1]（ord昇順）", got[0].ID, got[1].ID)
	}

	first := got[0]
	if first.URL != "http://example.com/b" {
		t.Errorf("URL = %q, want %q", first.URL, "http://example.com/b")
	}
	if !first.IsFavorite {
		t.Error("IsFavorite = false, want true")
	}
	if first.TimeoutSec != 5 {
		t.Errorf("TimeoutSec = %d, want 5", first.TimeoutSec)
	}
	if first.DiffThreshold != 1 {
		t.Errorf("DiffThreshold = %d, want 1", first.DiffThreshold)
	}
	if !first.IsUnread {
		t.Error("IsUnread = false, want true")
	}
	if first.LastFetch != model.FetchOutcomeSuccess {
		t.Errorf("LastFetch = %q, want %q", first.LastFetch, model.FetchOutcomeSuccess)
	}
	if first.DiffLines == nil || *first.DiffLines != 3 {
		t.Errorf("DiffLines = %v, want 3", first.DiffLines)
	}
	if !first.AddedAt.Equal(now) {
		t.Errorf("AddedAt = %v, want %v", first.AddedAt, now)
	}
}

func TestSQLiteResourceRepo_NullableFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteResourceRepo(db)

	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	replaceResources(t, db, repo, []*model.Resource{
		model.NewResource(1, 0, "http://example.com", now),
	})

	got, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAllに失敗: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("リソース数 = %d, want 1", len(got))
	}

	if got[0].LastFetch != model.FetchOutcomeUnknown {
		t.Errorf("LastFetch = %q, want 未フェッチ", got[0].LastFetch)
	}
	if got[0].DiffLines != nil {
		t.Errorf("DiffLines = %v, want nil", *got[0].DiffLines)
	}
}

func TestSQLiteResourceRepo_ReplaceAllOverwritesExisting(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteResourceRepo(db)

	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	replaceResources(t, db, repo, []*model.Resource{
		model.NewResource(1, 0, "http://example.com/old", now),
		model.NewResource(2, 1, "http://example.com/gone", now),
	})

	// 2回目のフラッシュで前回の状態は完全に置き換わる
	replaceResources(t, db, repo, []*model.Resource{
		model.NewResource(3, 0, "http://example.com/new", now),
	})

	got, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAllに失敗: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("リソース数 = %d, want 1", len(got))
	}
	if got[0].ID != 3 {
		t.Errorf("ID = %d, want 3", got[0].ID)
	}
}

func TestSQLiteResourceRepo_ListAll_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteResourceRepo(db)

	got, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAllに失敗: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("リソース数 = %d, want 0", len(got))
	}
}
