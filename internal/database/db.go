package database

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open はデータベース接続を開く。
// 接続URLのスキームでドライバを選択する:
//   - "postgres://..." / "postgresql://..." → PostgreSQL (lib/pq)
//   - "sqlite://path/to/file.db" → SQLite (modernc.org/sqlite、純Go実装)
//
// sql.Openは接続を試行しないため、実際の接続確認にはdb.Ping()を使用すること。
func Open(databaseURL string) (*sql.DB, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		db, err := sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return db, nil

	case strings.HasPrefix(databaseURL, "sqlite://"):
		path := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// SQLiteは単一ライターのため接続数を絞る
		db.SetMaxOpenConns(1)
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported database URL scheme: %s", MaskURL(databaseURL))
	}
}

// MaskURL は接続URLの認証情報をマスクしたログ出力用の文字列を返す。
func MaskURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
