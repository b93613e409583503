// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/cafelist/internal/model"
)

// ErrUniqueViolation は一意制約違反を表す。
// ドライバ固有のエラーはリポジトリ実装がこのセンチネルに変換する。
var ErrUniqueViolation = errors.New("unique constraint violation")

// ErrNotFound は対象レコードが存在しないことを表す。
var ErrNotFound = errors.New("record not found")

// UserRepository はユーザーデータの永続化インターフェース。
// ユーザーに更新・削除操作は存在しない。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。
	// 同一メールが複数存在する場合はIDが最小のものを返す。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成し、採番されたIDをuser.IDに書き戻す。
	// ユーザー名の一意制約に違反した場合はErrUniqueViolationを返す。
	Create(ctx context.Context, user *model.User) error
}

// CafeRepository はカフェデータの永続化インターフェース。
type CafeRepository interface {
	// Create はカフェを作成し、採番されたIDをcafe.IDに書き戻す。
	// 名前の一意制約に違反した場合はErrUniqueViolationを返す。
	Create(ctx context.Context, cafe *model.Cafe) error

	// Delete は指定IDのカフェを削除する。
	// 対象が存在しない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id int64) error

	// ListAll は全カフェをID昇順で返す。
	ListAll(ctx context.Context) ([]*model.Cafe, error)

	// UpdateRankings は各カフェのranking列を単一トランザクションで更新する。
	UpdateRankings(ctx context.Context, cafes []*model.Cafe) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}
