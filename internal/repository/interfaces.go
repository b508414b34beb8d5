// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/diffwatch/internal/model"
)

// ResourceRepository は追跡リソースの永続化インターフェース。
// ドキュメントの保存はインメモリ状態の全量フラッシュとして行うため、
// 行単位の更新ではなく全件の入れ替えと全件の読み出しを提供する。
type ResourceRepository interface {
	// ListAll は全リソースをord昇順で取得する。リビジョンは含まない。
	ListAll(ctx context.Context) ([]*model.Resource, error)

	// ReplaceAll は既存の全リソースを削除し、与えられたリソースで置き換える。
	// 呼び出し側のトランザクション内で実行する。
	ReplaceAll(ctx context.Context, tx *sql.Tx, resources []*model.Resource) error
}

// RevisionRepository はリビジョン履歴の永続化インターフェース。
type RevisionRepository interface {
	// ListAll は全リビジョンをresource_id、fetched_at、idの昇順で取得する。
	ListAll(ctx context.Context) ([]*model.Revision, error)

	// ReplaceAll は既存の全リビジョンを削除し、与えられたリビジョンで置き換える。
	// 呼び出し側のトランザクション内で実行する。
	ReplaceAll(ctx context.Context, tx *sql.Tx, revisions []*model.Revision) error
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
