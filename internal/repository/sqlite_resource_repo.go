package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/diffwatch/internal/model"
)

// SQLiteResourceRepo はSQLiteを使用したリソースリポジトリ。
type SQLiteResourceRepo struct {
	db *sql.DB
}

// NewSQLiteResourceRepo はSQLiteResourceRepoを生成する。
func NewSQLiteResourceRepo(db *sql.DB) *SQLiteResourceRepo {
	return &SQLiteResourceRepo{db: db}
}

// ListAll は全リソースをord昇順で取得する。リビジョンは含まない。
func (r *SQLiteResourceRepo) ListAll(ctx context.Context) ([]*model.Resource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, ord, url, is_favorite, timeout_sec, diff_threshold,
		        is_unread, added_at, last_fetch, diff_lines
		 FROM resources ORDER BY ord ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("リソース一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var resources []*model.Resource
	for rows.Next() {
		res := &model.Resource{}
		var lastFetch sql.NullString
		var diffLines sql.NullInt64

		if err := rows.Scan(
			&res.ID, &res.Order, &res.URL, &res.IsFavorite,
			&res.TimeoutSec, &res.DiffThreshold, &res.IsUnread,
			&res.AddedAt, &lastFetch, &diffLines,
		); err != nil {
			return nil, fmt.Errorf("リソースの読み取りに失敗しました: %w", err)
		}

		if lastFetch.Valid {
			res.LastFetch = model.FetchOutcome(lastFetch.String)
		}
		if diffLines.Valid {
			n := int(diffLines.Int64)
			res.DiffLines = &n
		}

		resources = append(resources, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("リソース一覧の走査に失敗しました: %w", err)
	}

	return resources, nil
}

// ReplaceAll は既存の全リソースを削除し、与えられたリソースで置き換える。
// リビジョンは外部キー制約によりカスケード削除されるため、
// リビジョンの入れ替えはこの後に実行すること。
func (r *SQLiteResourceRepo) ReplaceAll(ctx context.Context, tx *sql.Tx, resources []*model.Resource) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM resources`); err != nil {
		return fmt.Errorf("リソースの全削除に失敗しました: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO resources (id, ord, url, is_favorite, timeout_sec, diff_threshold,
		                        is_unread, added_at, last_fetch, diff_lines)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("リソース挿入の準備に失敗しました: %w", err)
	}
	defer stmt.Close()

	for _, res := range resources {
		var lastFetch sql.NullString
		if res.LastFetch != model.FetchOutcomeUnknown {
			lastFetch = sql.NullString{String: string(res.LastFetch), Valid: true}
		}
		var diffLines sql.NullInt64
		if res.DiffLines != nil {
			diffLines = sql.NullInt64{Int64: int64(*res.DiffLines), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			res.ID, res.Order, res.URL, res.IsFavorite,
			res.TimeoutSec, res.DiffThreshold, res.IsUnread,
			res.AddedAt, lastFetch, diffLines,
		); err != nil {
			return fmt.Errorf("リソースの挿入に失敗しました: %w", err)
		}
	}

	return nil
}

// compile-time interface check
var _ ResourceRepository = (*SQLiteResourceRepo)(nil)
