package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/cafelist/internal/auth"
	"github.com/hitoshi/cafelist/internal/cafe"
	"github.com/hitoshi/cafelist/internal/metrics"
	"github.com/hitoshi/cafelist/internal/middleware"
	"github.com/hitoshi/cafelist/internal/model"
	"github.com/hitoshi/cafelist/internal/repository"
	"github.com/hitoshi/cafelist/internal/security"
)

// --- インメモリリポジトリ ---
// ルーター全体の結合テスト用。実DBなしで状態を保持する。

type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, users: map[int64]*model.User{}}
}

func (r *memUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *model.User
	for _, u := range r.users {
		if u.Email == email && (found == nil || u.ID < found.ID) {
			found = u
		}
	}
	if found == nil {
		return nil, nil
	}
	copied := *found
	return &copied, nil
}

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return repository.ErrUniqueViolation
		}
	}
	user.ID = r.nextID
	r.nextID++
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

var _ repository.UserRepository = (*memUserRepo)(nil)

type memCafeRepo struct {
	mu     sync.Mutex
	nextID int64
	cafes  map[int64]*model.Cafe
}

func newMemCafeRepo() *memCafeRepo {
	return &memCafeRepo{nextID: 1, cafes: map[int64]*model.Cafe{}}
}

func (r *memCafeRepo) Create(ctx context.Context, c *model.Cafe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.cafes {
		if existing.Name == c.Name {
			return repository.ErrUniqueViolation
		}
	}
	c.ID = r.nextID
	r.nextID++
	copied := *c
	r.cafes[c.ID] = &copied
	return nil
}

func (r *memCafeRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cafes[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.cafes, id)
	return nil
}

func (r *memCafeRepo) ListAll(ctx context.Context) ([]*model.Cafe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*model.Cafe, 0, len(r.cafes))
	for _, c := range r.cafes {
		copied := *c
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *memCafeRepo) UpdateRankings(ctx context.Context, cafes []*model.Cafe) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cafes {
		if stored, ok := r.cafes[c.ID]; ok {
			stored.Ranking = c.Ranking
		}
	}
	return nil
}

var _ repository.CafeRepository = (*memCafeRepo)(nil)

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[string]*model.Session{}}
}

func (r *memSessionRepo) Create(ctx context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *memSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (r *memSessionRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

var _ repository.SessionRepository = (*memSessionRepo)(nil)

// --- テストサーバー構築 ---

type testEnv struct {
	server      *httptest.Server
	client      *http.Client
	sessionRepo *memSessionRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	userRepo := newMemUserRepo()
	cafeRepo := newMemCafeRepo()
	sessionRepo := newMemSessionRepo()

	sanitizer := security.NewTextSanitizer()
	urlChecker := security.NewURLChecker()
	signer := security.NewCookieSigner("integration-test-secret")

	authService := auth.NewService(userRepo, sessionRepo, sanitizer, auth.ServiceConfig{
		SessionMaxAge: 86400,
	})
	cafeService := cafe.NewService(cafeRepo, sanitizer, urlChecker, false)

	collector := metrics.NewCollector(prometheus.NewRegistry())

	router := NewRouter(&RouterDeps{
		SessionFinder:     sessionRepo,
		Signer:            signer,
		CORSAllowedOrigin: "http://localhost:3000",
		CSRFConfig:        middleware.CSRFConfig{Signer: signer},
		AuthService:       authService,
		AuthConfig:        AuthHandlerConfig{SessionMaxAge: 86400},
		CafeService:       cafeService,
		Collector:         collector,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}

	return &testEnv{
		server:      server,
		client:      &http.Client{Jar: jar},
		sessionRepo: sessionRepo,
	}
}

func (e *testEnv) postJSON(t *testing.T, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// csrfToken はCSRFトークンを取得し、Cookieジャーに反映する。
func (e *testEnv) csrfToken(t *testing.T) string {
	t.Helper()
	resp := e.get(t, "/api/csrf-token")
	defer resp.Body.Close()

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode csrf token response: %v", err)
	}
	return body.Token
}

// register はユーザー登録を行い、セッションCookieをジャーに保持させる。
func (e *testEnv) register(t *testing.T, username, email string) userResponse {
	t.Helper()
	body := `{"username":"` + username + `","email":"` + email + `","password":"secret-password"}`
	resp := e.postJSON(t, "/register", body, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("failed to decode register response: %v", err)
	}
	return user
}

func cafeBody(name string) string {
	return `{"name":"` + name + `","map_url":"https://maps.google.com/?q=` + url.QueryEscape(name) + `","img_url":"https://example.com/img.jpg","location":"渋谷","seats":"20-30","has_wifi":true,"coffee_price":"¥500"}`
}

// --- 結合テスト ---

func TestIntegration_RegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	// 最初のユーザーはID 1 = 管理者
	user := env.register(t, "angela", "angela@example.com")
	if user.ID != 1 {
		t.Errorf("first user ID = %d, want 1", user.ID)
	}
	if !user.IsAdmin {
		t.Error("first registered user should be admin")
	}

	// 登録直後はセッションCookieで /me にアクセスできる
	resp := env.get(t, "/me")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /me status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var me userResponse
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		t.Fatalf("failed to decode /me response: %v", err)
	}
	if me.Username != "angela" {
		t.Errorf("username = %q, want %q", me.Username, "angela")
	}
	if me.AvatarURL == "" {
		t.Error("expected non-empty avatar_url")
	}
}

func TestIntegration_DuplicateEmailRegistration(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "angela", "angela@example.com")

	body := `{"username":"someone-else","email":"angela@example.com","password":"pw"}`
	resp := env.postJSON(t, "/register", body, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestIntegration_LoginWithWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "angela", "angela@example.com")

	resp := env.postJSON(t, "/login", `{"email":"angela@example.com","password":"wrong"}`, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	var got apiErrorResponse
	json.NewDecoder(resp.Body).Decode(&got)
	if got.Code != model.ErrCodeBadPassword {
		t.Errorf("code = %q, want %q", got.Code, model.ErrCodeBadPassword)
	}
}

func TestIntegration_CafeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "angela", "angela@example.com")
	token := env.csrfToken(t)
	headers := map[string]string{"X-CSRF-Token": token}

	// 4件登録
	names := []string{"Cafe A", "Cafe B", "Cafe C", "Cafe D"}
	for _, name := range names {
		resp := env.postJSON(t, "/cafes", cafeBody(name), headers)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %q status = %d, want %d", name, resp.StatusCode, http.StatusCreated)
		}
	}

	// 同名の再登録は409
	resp := env.postJSON(t, "/cafes", cafeBody("Cafe A"), headers)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	// ランク付き一覧: 4件 → [3, 1] の2グループ、先頭はランク4
	listResp := env.get(t, "/cafes")
	defer listResp.Body.Close()
	var listBody struct {
		Groups [][]cafeResponse `json:"groups"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&listBody); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(listBody.Groups) != 2 {
		t.Fatalf("groups count = %d, want 2", len(listBody.Groups))
	}
	if len(listBody.Groups[0]) != 3 || len(listBody.Groups[1]) != 1 {
		t.Errorf("group sizes = [%d, %d], want [3, 1]", len(listBody.Groups[0]), len(listBody.Groups[1]))
	}
	if listBody.Groups[0][0].Ranking != 4 {
		t.Errorf("first cafe ranking = %d, want 4", listBody.Groups[0][0].Ranking)
	}

	// 削除
	deleteID := listBody.Groups[0][0].ID
	req, _ := http.NewRequest(http.MethodDelete, env.server.URL+"/cafes/"+strconv.FormatInt(deleteID, 10), nil)
	req.Header.Set("X-CSRF-Token", token)
	delResp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("delete request failed: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want %d", delResp.StatusCode, http.StatusNoContent)
	}

	// 削除後は3件
	allResp := env.get(t, "/")
	defer allResp.Body.Close()
	var allBody struct {
		Cafes []cafeResponse `json:"cafes"`
	}
	if err := json.NewDecoder(allResp.Body).Decode(&allBody); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(allBody.Cafes) != 3 {
		t.Errorf("cafes count after delete = %d, want 3", len(allBody.Cafes))
	}
}

// 登録・削除に管理者権限は要求されない。セッションさえあれば
// 一般ユーザー（ID 1以外）でもカフェを登録・削除できる。
func TestIntegration_NonAdminCanManageCafes(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "admin", "admin@example.com")

	// 2人目のユーザー（一般ユーザー）で登録し直す
	// Cookieジャーは上書きされるので最後に登録したユーザーのセッションになる
	user := env.register(t, "member", "member@example.com")
	if user.IsAdmin {
		t.Fatal("second user should not be admin")
	}

	token := env.csrfToken(t)
	resp := env.postJSON(t, "/cafes", cafeBody("Members Cafe"), map[string]string{"X-CSRF-Token": token})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("non-admin create status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
}

func TestIntegration_UnauthenticatedCafeCreate_Returns401(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/cafes", cafeBody("Sneaky Cafe"), nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestIntegration_CafeCreateWithoutCSRFToken_Returns403(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "angela", "angela@example.com")

	// セッションはあるがCSRFトークンなし
	resp := env.postJSON(t, "/cafes", cafeBody("No Token Cafe"), nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestIntegration_LogoutInvalidatesSession(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "angela", "angela@example.com")
	token := env.csrfToken(t)

	resp := env.postJSON(t, "/logout", "", map[string]string{"X-CSRF-Token": token})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	// ログアウト後は /me が401
	meResp := env.get(t, "/me")
	defer meResp.Body.Close()
	if meResp.StatusCode != http.StatusUnauthorized {
		t.Errorf("GET /me after logout status = %d, want %d", meResp.StatusCode, http.StatusUnauthorized)
	}
}

func TestIntegration_PublicListingNeedsNoAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/", "/cafes", "/health"} {
		resp := env.get(t, path)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, resp.StatusCode, http.StatusOK)
		}
	}
}
