// Package cafe はカフェ掲載のドメインロジックを提供する。
package cafe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/cafelist/internal/model"
	"github.com/hitoshi/cafelist/internal/repository"
	"github.com/hitoshi/cafelist/internal/security"
)

// probeTimeout は画像URL到達確認のタイムアウト。
const probeTimeout = 5 * time.Second

// CreateInput はカフェ登録の入力を表す。
type CreateInput struct {
	Name         string
	MapURL       string
	ImgURL       string
	Location     string
	Seats        string
	HasSockets   bool
	HasToilet    bool
	HasWifi      bool
	CanTakeCalls bool
	CoffeePrice  string
}

// Service はカフェ掲載に関するビジネスロジックを提供する。
type Service struct {
	cafeRepo   repository.CafeRepository
	sanitizer  security.TextSanitizerService
	urlChecker security.URLCheckerService
	probeImage bool
}

// NewService はServiceを生成する。
// probeImageがtrueの場合、登録時に画像URLの到達確認を
// バックグラウンドで行う（結果は記録のみで登録は妨げない）。
func NewService(
	cafeRepo repository.CafeRepository,
	sanitizer security.TextSanitizerService,
	urlChecker security.URLCheckerService,
	probeImage bool,
) *Service {
	return &Service{
		cafeRepo:   cafeRepo,
		sanitizer:  sanitizer,
		urlChecker: urlChecker,
		probeImage: probeImage,
	}
}

// Create は新しいカフェを登録する。
// テキスト項目はサニタイズし、URL項目はSSRF検証を通してから保存する。
// 同名のカフェが既に存在する場合はDUPLICATE_NAMEエラーを返す。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Cafe, error) {
	name := s.sanitizer.SanitizeText(input.Name)
	location := s.sanitizer.SanitizeText(input.Location)
	coffeePrice := s.sanitizer.SanitizeText(input.CoffeePrice)

	if name == "" {
		return nil, model.NewInvalidRequestError("name is required")
	}
	if location == "" {
		return nil, model.NewInvalidRequestError("location is required")
	}
	if !model.IsValidSeatsBucket(input.Seats) {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("invalid seats bucket: %q", input.Seats))
	}
	if err := s.urlChecker.ValidateURL(input.MapURL); err != nil {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("invalid map URL: %v", err))
	}
	if err := s.urlChecker.ValidateURL(input.ImgURL); err != nil {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("invalid image URL: %v", err))
	}

	cafe := &model.Cafe{
		Name:         name,
		MapURL:       input.MapURL,
		ImgURL:       input.ImgURL,
		Location:     location,
		Seats:        input.Seats,
		HasSockets:   input.HasSockets,
		HasToilet:    input.HasToilet,
		HasWifi:      input.HasWifi,
		CanTakeCalls: input.CanTakeCalls,
		CoffeePrice:  coffeePrice,
		CreatedAt:    time.Now(),
	}

	if err := s.cafeRepo.Create(ctx, cafe); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, model.NewDuplicateNameError(name)
		}
		return nil, fmt.Errorf("failed to create cafe: %w", err)
	}

	slog.Info("cafe created",
		slog.Int64("cafe_id", cafe.ID),
		slog.String("name", cafe.Name),
	)

	// 画像URLの到達確認はベストエフォート。登録自体はブロックしない。
	if s.probeImage {
		go s.probeImageURL(cafe.ID, cafe.ImgURL)
	}

	return cafe, nil
}

// Delete は指定IDのカフェを削除する。
// 対象が存在しない場合はCAFE_NOT_FOUNDエラーを返す。
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.cafeRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewCafeNotFoundError(id)
		}
		return fmt.Errorf("failed to delete cafe: %w", err)
	}

	slog.Info("cafe deleted", slog.Int64("cafe_id", id))
	return nil
}

// ListAll は全カフェをID昇順で返す。
func (s *Service) ListAll(ctx context.Context) ([]*model.Cafe, error) {
	cafes, err := s.cafeRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cafes: %w", err)
	}
	return cafes, nil
}

// probeImageURL は画像URLへの到達確認を行い、結果をログに記録する。
// ユーザー入力URLへのリクエストのためSSRF防止クライアントを使用する。
func (s *Service) probeImageURL(cafeID int64, imgURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	client := s.urlChecker.NewSafeClient(probeTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imgURL, nil)
	if err != nil {
		slog.Warn("image probe: failed to build request",
			slog.Int64("cafe_id", cafeID), slog.Any("error", err))
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("image probe: request failed",
			slog.Int64("cafe_id", cafeID), slog.String("url", imgURL), slog.Any("error", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("image probe: unexpected status",
			slog.Int64("cafe_id", cafeID), slog.String("url", imgURL), slog.Int("status", resp.StatusCode))
		return
	}

	slog.Debug("image probe: reachable",
		slog.Int64("cafe_id", cafeID), slog.String("url", imgURL))
}
