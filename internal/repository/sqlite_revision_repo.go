package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/diffwatch/internal/model"
)

// SQLiteRevisionRepo はSQLiteを使用したリビジョンリポジトリ。
type SQLiteRevisionRepo struct {
	db *sql.DB
}

// NewSQLiteRevisionRepo はSQLiteRevisionRepoを生成する。
func NewSQLiteRevisionRepo(db *sql.DB) *SQLiteRevisionRepo {
	return &SQLiteRevisionRepo{db: db}
}

// ListAll は全リビジョンをresource_id、fetched_at、idの昇順で取得する。
func (r *SQLiteRevisionRepo) ListAll(ctx context.Context) ([]*model.Revision, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, resource_id, fetched_at, content
		 FROM revisions ORDER BY resource_id ASC, fetched_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("リビジョン一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var revisions []*model.Revision
	for rows.Next() {
		rev := &model.Revision{}
		if err := rows.Scan(&rev.ID, &rev.ResourceID, &rev.FetchedAt, &rev.Content); err != nil {
			return nil, fmt.Errorf("リビジョンの読み取りに失敗しました: %w", err)
		}
		revisions = append(revisions, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リビジョン一覧の走査に失敗しました: %w", err)
	}

	return revisions, nil
}

// ReplaceAll は既存の全リビジョンを削除し、与えられたリビジョンで置き換える。
func (r *SQLiteRevisionRepo) ReplaceAll(ctx context.Context, tx *sql.Tx, revisions []*model.Revision) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM revisions`); err != nil {
		return fmt.Errorf("リビジョンの全削除に失敗しました: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO revisions (id, resource_id, fetched_at, content)
		 VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("リビジョン挿入の準備に失敗しました: %w", err)
	}
	defer stmt.Close()

	for _, rev := range revisions {
		if _, err := stmt.ExecContext(ctx, rev.ID, rev.ResourceID, rev.FetchedAt, rev.Content); err != nil {
			return fmt.Errorf("リビジョンの挿入に失敗しました: %w", err)
		}
	}

	return nil
}

// compile-time interface check
var _ RevisionRepository = (*SQLiteRevisionRepo)(nil)
