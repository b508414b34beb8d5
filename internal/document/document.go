// Package document は.dfcドキュメントのオープン・保存・別名保存を提供する。
// ドキュメントはSQLiteの単一ファイルで、インメモリ状態の全量フラッシュとして保存する。
package document

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hitoshi/diffwatch/internal/database"
	"github.com/hitoshi/diffwatch/internal/model"
	"github.com/hitoshi/diffwatch/internal/repository"
)

// Extension はドキュメントファイルの拡張子。
const Extension = ".dfc"

// 障害注入用の差し替えポイント。テストでのみ差し替える。
var (
	osRename = os.Rename
	osRemove = os.Remove
	copyFile = copyFileContents
)

// Document は1つのドキュメントセッションを表す。
// pathが空の場合は保存先を持たないインメモリドキュメントとして動作する。
type Document struct {
	db        *sql.DB
	path      string
	resources repository.ResourceRepository
	revisions repository.RevisionRepository
	logger    *slog.Logger
}

// Open は指定パスのドキュメントを開く。
// pathが空の場合はインメモリドキュメントを開く。
// 拡張子が.dfc以外の場合はフォーマットエラーを返す。
func Open(path string, logger *slog.Logger) (*Document, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}

	dsn := database.InMemoryDSN
	if path != "" {
		dsn = path
	}

	db, err := database.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("ドキュメントのオープンに失敗しました: %w", err)
	}

	if err := database.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ドキュメントスキーマの適用に失敗しました: %w", err)
	}

	return &Document{
		db:        db,
		path:      path,
		resources: repository.NewSQLiteResourceRepo(db),
		revisions: repository.NewSQLiteRevisionRepo(db),
		logger:    logger,
	}, nil
}

// validatePath はドキュメントパスの拡張子を検証する。空パスは許可する。
func validatePath(path string) error {
	if path == "" {
		return nil
	}
	if !strings.HasSuffix(path, Extension) {
		return model.NewFormatError(path)
	}
	return nil
}

// Path は現在のドキュメントパスを返す。インメモリの場合は空文字列。
func (d *Document) Path() string {
	return d.path
}

// InMemory は保存先ファイルを持たないドキュメントかどうかを返す。
func (d *Document) InMemory() bool {
	return d.path == ""
}

// Close はドキュメントを閉じる。
func (d *Document) Close() error {
	return d.db.Close()
}

// Load はドキュメントから全リソースをリビジョン付きでord順に読み出す。
func (d *Document) Load(ctx context.Context) ([]*model.Resource, error) {
	resources, err := d.resources.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	revisions, err := d.revisions.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byResource := make(map[int64]*model.Resource, len(resources))
	for _, res := range resources {
		byResource[res.ID] = res
	}
	for _, rev := range revisions {
		if res, ok := byResource[rev.ResourceID]; ok {
			res.Revisions = append(res.Revisions, rev)
		}
	}

	return resources, nil
}

// Save はインメモリ状態の全量を単一トランザクションでフラッシュする。
func (d *Document) Save(ctx context.Context, resources []*model.Resource) error {
	if err := d.flush(ctx, resources); err != nil {
		return model.NewSaveFailedError(err.Error())
	}

	d.logger.Info("ドキュメントを保存しました",
		slog.String("path", d.path),
		slog.Int("resources", len(resources)),
	)
	return nil
}

// SaveAs はドキュメントを別名で保存し、セッションを新パスへ切り替える。
//
// ファイルドキュメントの手順:
// 旧ファイルを一時ファイルへ複製 → 全量フラッシュ → 既存の保存先を削除 →
// フラッシュ済みの旧ファイルを保存先へ移動 → 一時ファイルを旧パスへ復元 →
// セッションを新パスで開き直す。
// フラッシュ後に失敗した場合は一時ファイルを旧パスへ復元するため、
// 旧パスの内容は保存前と同一に保たれる。手順間のクラッシュに対する
// 原子性は保証しない。
func (d *Document) SaveAs(ctx context.Context, newPath string, resources []*model.Resource) error {
	if newPath == "" || !strings.HasSuffix(newPath, Extension) {
		return model.NewFormatError(newPath)
	}
	if newPath == d.path {
		return d.Save(ctx, resources)
	}

	if d.InMemory() {
		return d.saveAsFromMemory(ctx, newPath, resources)
	}
	return d.saveAsFromFile(ctx, newPath, resources)
}

func (d *Document) saveAsFromFile(ctx context.Context, newPath string, resources []*model.Resource) error {
	oldPath := d.path
	tmpPath := oldPath + ".tmp"

	if err := copyFile(oldPath, tmpPath); err != nil {
		return model.NewSaveFailedError(fmt.Sprintf("一時ファイルの作成に失敗しました: %v", err))
	}

	if err := d.flush(ctx, resources); err != nil {
		osRemove(tmpPath)
		return model.NewSaveFailedError(err.Error())
	}

	if err := osRemove(newPath); err != nil && !os.IsNotExist(err) {
		// 復元は旧パスのinodeを差し替えるため、開き直さないと
		// 以後の保存が切り離されたinodeへ書き込まれてしまう
		d.db.Close()
		d.restoreOld(tmpPath, oldPath)
		if reopenErr := d.reopen(oldPath); reopenErr != nil {
			return model.NewSaveFailedError(reopenErr.Error())
		}
		return model.NewSaveFailedError(fmt.Sprintf("既存の保存先の削除に失敗しました: %v", err))
	}

	// 移動の前にデータベースを閉じ、ファイルへの参照を手放す
	d.db.Close()

	if err := osRename(oldPath, newPath); err != nil {
		d.restoreOld(tmpPath, oldPath)
		if reopenErr := d.reopen(oldPath); reopenErr != nil {
			return model.NewSaveFailedError(reopenErr.Error())
		}
		return model.NewSaveFailedError(fmt.Sprintf("保存先への移動に失敗しました: %v", err))
	}

	// 旧パスには保存前の内容を残す
	if err := osRename(tmpPath, oldPath); err != nil {
		d.logger.Warn("旧ドキュメントの復元に失敗しました",
			slog.String("path", oldPath),
			slog.String("error", err.Error()),
		)
	}

	if err := d.reopen(newPath); err != nil {
		return model.NewSaveFailedError(err.Error())
	}

	d.logger.Info("ドキュメントを別名保存しました",
		slog.String("old_path", oldPath),
		slog.String("new_path", newPath),
	)
	return nil
}

// saveAsFromMemory はインメモリドキュメントをファイルへ書き出す。
// フラッシュ後にVACUUM INTOで保存先へ複製し、セッションを切り替える。
func (d *Document) saveAsFromMemory(ctx context.Context, newPath string, resources []*model.Resource) error {
	if err := d.flush(ctx, resources); err != nil {
		return model.NewSaveFailedError(err.Error())
	}

	if err := osRemove(newPath); err != nil && !os.IsNotExist(err) {
		return model.NewSaveFailedError(fmt.Sprintf("既存の保存先の削除に失敗しました: %v", err))
	}

	if _, err := d.db.ExecContext(ctx, `VACUUM INTO ?`, newPath); err != nil {
		return model.NewSaveFailedError(fmt.Sprintf("保存先への書き出しに失敗しました: %v", err))
	}

	d.db.Close()
	if err := d.reopen(newPath); err != nil {
		return model.NewSaveFailedError(err.Error())
	}

	d.logger.Info("インメモリドキュメントをファイルへ保存しました",
		slog.String("new_path", newPath),
	)
	return nil
}

// restoreOld は一時ファイルを旧パスへ戻す。失敗はログに残すのみ。
func (d *Document) restoreOld(tmpPath, oldPath string) {
	if err := osRename(tmpPath, oldPath); err != nil {
		d.logger.Warn("旧ドキュメントの復元に失敗しました",
			slog.String("path", oldPath),
			slog.String("error", err.Error()),
		)
	}
}

// reopen は指定パスでデータベースを開き直し、セッションを差し替える。
func (d *Document) reopen(path string) error {
	db, err := database.Open(path)
	if err != nil {
		return fmt.Errorf("ドキュメントの開き直しに失敗しました: %w", err)
	}

	d.db = db
	d.path = path
	d.resources = repository.NewSQLiteResourceRepo(db)
	d.revisions = repository.NewSQLiteRevisionRepo(db)
	return nil
}

// flush は全リソースと全リビジョンを単一トランザクションで入れ替える。
func (d *Document) flush(ctx context.Context, resources []*model.Resource) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}

	if err := d.resources.ReplaceAll(ctx, tx, resources); err != nil {
		tx.Rollback()
		return err
	}

	var revisions []*model.Revision
	for _, res := range resources {
		revisions = append(revisions, res.Revisions...)
	}
	if err := d.revisions.ReplaceAll(ctx, tx, revisions); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗しました: %w", err)
	}
	return nil
}

// copyFileContents はファイルを複製する。
func copyFileContents(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
