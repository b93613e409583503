package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/cafelist/internal/model"
)

// SQLCafeRepo はdatabase/sqlを使用したカフェリポジトリ。
// PostgreSQLとSQLiteの両方で動作するSQLのみを使用する。
type SQLCafeRepo struct {
	db *sql.DB
}

// NewSQLCafeRepo はSQLCafeRepoを生成する。
func NewSQLCafeRepo(db *sql.DB) *SQLCafeRepo {
	return &SQLCafeRepo{db: db}
}

// Create はカフェを作成し、採番されたIDをcafe.IDに書き戻す。
// 名前の一意制約に違反した場合はErrUniqueViolationを返す。
func (r *SQLCafeRepo) Create(ctx context.Context, cafe *model.Cafe) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO cafes
		   (name, map_url, img_url, location, seats,
		    has_sockets, has_toilet, has_wifi, can_take_calls,
		    coffee_price, ranking, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		cafe.Name, cafe.MapURL, cafe.ImgURL, cafe.Location, cafe.Seats,
		cafe.HasSockets, cafe.HasToilet, cafe.HasWifi, cafe.CanTakeCalls,
		cafe.CoffeePrice, cafe.Ranking, cafe.CreatedAt,
	).Scan(&cafe.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("failed to insert cafe: %w", err)
	}
	return nil
}

// Delete は指定IDのカフェを削除する。対象が存在しない場合はErrNotFoundを返す。
func (r *SQLCafeRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM cafes WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete cafe: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll は全カフェをID昇順で返す。
func (r *SQLCafeRepo) ListAll(ctx context.Context) ([]*model.Cafe, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, map_url, img_url, location, seats,
		        has_sockets, has_toilet, has_wifi, can_take_calls,
		        coffee_price, ranking, created_at
		 FROM cafes ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cafes: %w", err)
	}
	defer rows.Close()

	var cafes []*model.Cafe
	for rows.Next() {
		cafe := &model.Cafe{}
		if err := rows.Scan(
			&cafe.ID, &cafe.Name, &cafe.MapURL, &cafe.ImgURL, &cafe.Location, &cafe.Seats,
			&cafe.HasSockets, &cafe.HasToilet, &cafe.HasWifi, &cafe.CanTakeCalls,
			&cafe.CoffeePrice, &cafe.Ranking, &cafe.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cafe: %w", err)
		}
		cafes = append(cafes, cafe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cafes: %w", err)
	}

	return cafes, nil
}

// UpdateRankings は各カフェのranking列を単一トランザクションで更新する。
func (r *SQLCafeRepo) UpdateRankings(ctx context.Context, cafes []*model.Cafe) error {
	if len(cafes) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, cafe := range cafes {
		if _, err := tx.ExecContext(ctx,
			`UPDATE cafes SET ranking = $1 WHERE id = $2`,
			cafe.Ranking, cafe.ID,
		); err != nil {
			return fmt.Errorf("failed to update ranking: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// isUniqueViolation はドライバ固有の一意制約違反エラーを判定する。
// PostgreSQLはエラーコード23505、SQLiteはエラーメッセージで判定する。
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// compile-time interface check
var _ CafeRepository = (*SQLCafeRepo)(nil)
