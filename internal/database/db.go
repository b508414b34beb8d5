package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InMemoryDSN は保存先を持たないドキュメントのためのSQLite DSN。
const InMemoryDSN = ":memory:"

// Open はSQLiteデータベース接続を開く。
// pathにはドキュメントファイルのパス、またはInMemoryDSNを指定する。
// ドキュメントは常に単一接続で扱うため、接続プールは1本に制限する。
// ジャーナルはメモリ上に置き、ディスク上のファイルを単一ファイルのまま保つ。
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(memory)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// インメモリDBは接続ごとに別のデータベースになるため、
	// ファイルDBと同様に単一接続へ固定する。
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}
