package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/cafelist/internal/model"
)

// SQLUserRepo はdatabase/sqlを使用したユーザーリポジトリ。
// PostgreSQLとSQLiteの両方で動作するSQLのみを使用する。
type SQLUserRepo struct {
	db *sql.DB
}

// NewSQLUserRepo はSQLUserRepoを生成する。
func NewSQLUserRepo(db *sql.DB) *SQLUserRepo {
	return &SQLUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, cafe_id, created_at
		 FROM users WHERE id = $1`,
		id,
	))
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
// emailには一意制約がないため、IDが最小の1件を返す。
func (r *SQLUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, cafe_id, created_at
		 FROM users WHERE email = $1 ORDER BY id LIMIT 1`,
		email,
	))
}

// Create はユーザーを作成し、採番されたIDをuser.IDに書き戻す。
func (r *SQLUserRepo) Create(ctx context.Context, user *model.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, cafe_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		user.Username, user.Email, user.PasswordHash, user.CafeID, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// scanOne は1ユーザー行をスキャンする。sql.ErrNoRowsはnilに変換する。
func (r *SQLUserRepo) scanOne(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var cafeID sql.NullInt64
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &cafeID, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if cafeID.Valid {
		user.CafeID = &cafeID.Int64
	}
	return user, nil
}

// compile-time interface check
var _ UserRepository = (*SQLUserRepo)(nil)
