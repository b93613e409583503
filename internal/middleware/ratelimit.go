package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/cafelist/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）。120/60 = 2 req/sec
	GeneralBurst    int           // API全般のバーストサイズ
	CafeRegRate     rate.Limit    // カフェ登録のレート（req/sec）。10/60
	CafeRegBurst    int           // カフェ登録のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/user、カフェ登録 10 req/min/user。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0), // 2 req/sec
		GeneralBurst:    120,
		CafeRegRate:     rate.Limit(10.0 / 60.0), // ~0.167 req/sec
		CafeRegBurst:    10,
		CleanupInterval: 5 * time.Minute,
	}
}

// userLimiter はユーザーごとのレートリミッターとアクセス時刻を保持する。
type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterPool は1種類のレート制限についてユーザーごとのリミッターを管理する。
// エントリの作成・取得・失効を1箇所にまとめ、制限の種類ごとに
// 同じロジックを複製しない。
type limiterPool struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	entries map[int64]*userLimiter
}

func newLimiterPool(limit rate.Limit, burst int) *limiterPool {
	return &limiterPool{
		limit:   limit,
		burst:   burst,
		entries: make(map[int64]*userLimiter),
	}
}

// get はユーザーのリミッターを取得または作成し、最終アクセス時刻を更新する。
func (p *limiterPool) get(userID int64) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	ul, ok := p.entries[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.entries[userID] = ul
	}
	ul.lastAccess = time.Now()
	return ul.limiter
}

// size は現在管理されているエントリ数を返す。
func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// evict は最終アクセスがttlより古いエントリを削除する。
func (p *limiterPool) evict(ttl time.Duration) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	for userID, ul := range p.entries {
		if now.Sub(ul.lastAccess) > ttl {
			delete(p.entries, userID)
		}
	}
}

// RateLimiter は認証済みユーザーごとのレート制限を管理する。
// API全般とカフェ登録の2系統を独立したプールで提供する。
type RateLimiter struct {
	config  RateLimiterConfig
	general *limiterPool
	cafeReg *limiterPool
	stopCh  chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		general: newLimiterPool(config.GeneralRate, config.GeneralBurst),
		cafeReg: newLimiterPool(config.CafeRegRate, config.CafeRegBurst),
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// リクエストコンテキストにユーザーIDが含まれている必要がある
// （SessionMiddlewareの後に配置）。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general, "general")
}

// CafeRegistrationMiddleware はカフェ登録専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) CafeRegistrationMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.cafeReg, "cafe_registration")
}

// middleware は指定プールでレート制限を行うミドルウェアを構築する。
func (rl *RateLimiter) middleware(pool *limiterPool, limitType string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			if !pool.get(userID).Allow() {
				slog.Warn("rate limit exceeded",
					slog.Int64("user_id", userID),
					slog.String("limit_type", limitType),
				)
				writeRateLimitResponse(w, pool.limit)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.size()
}

// CafeRegLimiterCount は現在管理されているカフェ登録リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) CafeRegLimiterCount() int {
	return rl.cafeReg.size()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
// 最終アクセスがCleanupIntervalの2倍を超えたエントリを破棄する。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ttl := rl.config.CleanupInterval * 2
			rl.general.evict(ttl)
			rl.cafeReg.evict(ttl)
		case <-rl.stopCh:
			return
		}
	}
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーには1トークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, limit rate.Limit) {
	retryAfterSec := int(math.Ceil(1.0 / float64(limit)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitedError())
}
