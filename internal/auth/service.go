// Package auth はユーザー登録、ログイン、セッション管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/cafelist/internal/model"
	"github.com/hitoshi/cafelist/internal/repository"
	"github.com/hitoshi/cafelist/internal/security"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	sanitizer   security.TextSanitizerService
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	sanitizer security.TextSanitizerService,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		sanitizer:   sanitizer,
		config:      config,
	}
}

// Register は新規ユーザーを作成し、セッションを発行する。
// メールアドレスが登録済みの場合はDUPLICATE_EMAILエラーを返す
// （既存アカウントでのログインを促すため）。
// ユーザー名が使用済みの場合はDUPLICATE_NAMEエラーを返す。
// パスワードはbcryptでハッシュ化して保存する。
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.User, *model.Session, error) {
	username = s.sanitizer.SanitizeText(username)
	if username == "" || email == "" || password == "" {
		return nil, nil, model.NewInvalidRequestError("username, email, password are required")
	}

	// メールアドレスの重複チェック
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		return nil, nil, model.NewDuplicateEmailError(email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, nil, model.NewDuplicateNameError(username)
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("new user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", username),
	)

	return user, session, nil
}

// Login はメールアドレスとパスワードを検証し、セッションを発行する。
// メールアドレスが未登録の場合はUNKNOWN_EMAILエラー、
// パスワードが一致しない場合はBAD_PASSWORDエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	if email == "" || password == "" {
		return nil, nil, model.NewInvalidRequestError("email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, nil, model.NewUnknownEmailError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, model.NewBadPasswordError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in", slog.Int64("user_id", user.ID))

	return user, session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// CurrentUser はセッションIDから現在のユーザーを取得する。
// セッションが存在しない・期限切れの場合はUNAUTHENTICATEDエラーを返す。
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, model.NewUnauthenticatedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewUnauthenticatedError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthenticatedError()
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
// セッションIDにはUUID v4を使用する。
func (s *Service) createSession(ctx context.Context, userID int64) (*model.Session, error) {
	now := time.Now()
	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}
