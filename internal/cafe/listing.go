package cafe

import (
	"context"
	"fmt"

	"github.com/hitoshi/cafelist/internal/model"
)

// PageSize は一覧表示の1グループあたりの件数。
const PageSize = 3

// AssignRanks は各カフェに総数からの降順ランクを割り当てる。
// 先頭（最古）のカフェが最大ランク、末尾（最新）がランク1となる。
// 引数のスライスをそのまま書き換えて返す。
func AssignRanks(cafes []*model.Cafe) []*model.Cafe {
	total := len(cafes)
	for i, c := range cafes {
		c.Ranking = total - i
	}
	return cafes
}

// Paginate はカフェ一覧をsize件ずつのグループに分割する。
// 末尾グループは端数となる場合がある。空入力には空のスライスを返す。
func Paginate(cafes []*model.Cafe, size int) [][]*model.Cafe {
	pages := [][]*model.Cafe{}
	if size <= 0 {
		return pages
	}
	for start := 0; start < len(cafes); start += size {
		end := start + size
		if end > len(cafes) {
			end = len(cafes)
		}
		pages = append(pages, cafes[start:end])
	}
	return pages
}

// ListForDisplay は一覧ページ表示用のカフェグループを返す。
// 全件取得後にランクを割り当てて永続化し、PageSize件ずつに分割する。
// ランクの再計算は一覧表示のたびに行われ、登録順を反映する。
func (s *Service) ListForDisplay(ctx context.Context) ([][]*model.Cafe, error) {
	cafes, err := s.cafeRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cafes: %w", err)
	}

	AssignRanks(cafes)

	if err := s.cafeRepo.UpdateRankings(ctx, cafes); err != nil {
		return nil, fmt.Errorf("failed to update rankings: %w", err)
	}

	return Paginate(cafes, PageSize), nil
}
