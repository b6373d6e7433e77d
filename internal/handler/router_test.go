package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/aurelius-catalogue/internal/auth"
	"github.com/prn-tf/aurelius-catalogue/internal/cache/memory"
	"github.com/prn-tf/aurelius-catalogue/internal/config"
	"github.com/prn-tf/aurelius-catalogue/internal/domain"
	"github.com/prn-tf/aurelius-catalogue/internal/lock"
	"github.com/prn-tf/aurelius-catalogue/internal/mailer"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
	"github.com/prn-tf/aurelius-catalogue/internal/repository/sqlite"
	"github.com/prn-tf/aurelius-catalogue/internal/service"
)

// captureMailer records issued confirmation codes by username instead of
// sending them.
type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) SendConfirmationCode(ctx context.Context, to, username, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[username] = code
	return nil
}

func (m *captureMailer) codeFor(username string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[username]
}

var _ mailer.Mailer = (*captureMailer)(nil)

// testServer wires the full routing tree over an in-memory database.
type testServer struct {
	handler http.Handler
	repos   *repository.Repositories
	tokens  auth.TokenManager
	mail    *captureMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := sqlite.NewDB(context.Background(), config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            ":memory:",
		JournalMode:     "MEMORY",
		BusyTimeout:     5000,
		CacheSize:       -2000,
		SynchronousMode: "OFF",
		MaxOpenConns:    1,
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	repos := sqlite.NewRepositories(db)

	authCfg := config.AuthConfig{
		CodeLength:         8,
		CodeTTL:            time.Hour,
		ResendCooldown:     time.Minute,
		TokenSecret:        "0123456789abcdef0123456789abcdef",
		TokenTTL:           24 * time.Hour,
		MinScore:           1,
		MaxScore:           10,
		ForbiddenUsernames: []string{"me"},
	}

	tokens, err := auth.NewTokenManager(authCfg.TokenSecret, authCfg.TokenTTL)
	require.NoError(t, err)

	mail := &captureMailer{codes: make(map[string]string)}
	logger := zerolog.Nop()

	codes := service.NewCodeService(repos.Code, lock.NewMemoryLocker(), authCfg, logger)
	authSvc := service.NewAuthService(repos.User, codes, tokens, mail, authCfg, logger)
	identity := service.NewIdentityService(repos.User, authCfg, logger)
	catalog := service.NewCatalogService(repos.Category, repos.Genre, repos.Title, memory.NewCache(), logger)
	reviews := service.NewReviewService(repos.Title, repos.Review, repos.Comment, authCfg, logger)

	router := NewRouter(RouterConfig{
		AuthHandler:    NewAuthHandler(authSvc, logger),
		UserHandler:    NewUserHandler(identity, logger),
		CatalogHandler: NewCatalogHandler(catalog, logger),
		ReviewHandler:  NewReviewHandler(reviews, logger),
		AuthMiddleware: auth.Middleware(tokens, repos.User),
		Database:       db,
		Logger:         logger,
	})

	return &testServer{
		handler: router.Handler(),
		repos:   repos,
		tokens:  tokens,
		mail:    mail,
	}
}

// do performs a request against the router. A non-empty token is sent as a
// bearer credential; a non-nil body is JSON-encoded.
func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(auth.AuthorizationHeader, auth.BearerPrefix+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

// seedUser creates an active user directly in storage and mints a token
// for it.
func (ts *testServer) seedUser(t *testing.T, username string, role domain.Role) (*domain.User, string) {
	t.Helper()

	user := domain.NewUser(username, username+"@example.com")
	user.Role = role
	user.Active = true
	require.NoError(t, ts.repos.User.Create(context.Background(), user))

	token, err := ts.tokens.Generate(user.ID)
	require.NoError(t, err)
	return user, token
}

// seedTitle creates a title through the API as the given admin.
func (ts *testServer) seedTitle(t *testing.T, adminToken string) int64 {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/v1/genres", adminToken, map[string]string{
		"name": "Drama", "slug": "drama",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/titles", adminToken, map[string]interface{}{
		"name":  "Hamlet",
		"year":  1603,
		"genre": []string{"drama"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var title domain.Title
	decodeBody(t, rec, &title)
	return title.ID
}

func TestRouter_Health(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeBody(t, rec, &body)
	require.Equal(t, "healthy", body["status"])
}

func TestRouter_SignUpAndTokenFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var signup map[string]string
	decodeBody(t, rec, &signup)
	require.Equal(t, "alice", signup["username"])
	require.Equal(t, "alice@example.com", signup["email"])

	code := ts.mail.codeFor("alice")
	require.NotEmpty(t, code)

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"username":          "alice",
		"confirmation_code": code,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var tok map[string]string
	decodeBody(t, rec, &tok)
	require.NotEmpty(t, tok["token"])

	rec = ts.do(t, http.MethodGet, "/api/v1/users/me", tok["token"], nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me userResponse
	decodeBody(t, rec, &me)
	require.Equal(t, "alice", me.Username)
	require.Equal(t, "user", me.Role)
}

func TestRouter_SignUpCooldown(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]string{"username": "bob", "email": "bob@example.com"}

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", body)
	require.Equal(t, http.StatusOK, rec.Code)
	first := ts.mail.codeFor("bob")

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	require.Greater(t, retryAfter, 0)

	// The rejected reissue must not have replaced the live code.
	code := ts.mail.codeFor("bob")
	require.Equal(t, first, code)

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"username":          "bob",
		"confirmation_code": code,
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_TokenWithWrongCode(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": "carol",
		"email":    "carol@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]string{
		"username":          "carol",
		"confirmation_code": "not-the-code",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorResponse
	decodeBody(t, rec, &body)
	require.Equal(t, "invalid confirmation code", body.Error)
}

func TestRouter_SignUpConflicts(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": "dave", "email": "dave@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": "dave", "email": "other@example.com",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"username": "me", "email": "me@example.com",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_InvalidToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/titles", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_InactiveUserToken(t *testing.T) {
	ts := newTestServer(t)

	user := domain.NewUser("ghost", "ghost@example.com")
	require.NoError(t, ts.repos.User.Create(context.Background(), user))

	token, err := ts.tokens.Generate(user.ID)
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_CatalogAccessControl(t *testing.T) {
	ts := newTestServer(t)
	_, userToken := ts.seedUser(t, "reader", domain.RoleUser)
	_, adminToken := ts.seedUser(t, "boss", domain.RoleAdmin)

	body := map[string]string{"name": "Film", "slug": "film"}

	rec := ts.do(t, http.MethodGet, "/api/v1/titles", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/categories", "", body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/categories", userToken, body)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/categories", adminToken, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/categories", adminToken, body)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_TitleLifecycle(t *testing.T) {
	ts := newTestServer(t)
	_, adminToken := ts.seedUser(t, "boss", domain.RoleAdmin)

	rec := ts.do(t, http.MethodPost, "/api/v1/categories", adminToken, map[string]string{
		"name": "Film", "slug": "film",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/v1/genres", adminToken, map[string]string{
		"name": "Drama", "slug": "drama",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/titles", adminToken, map[string]interface{}{
		"name":     "Hamlet",
		"year":     1603,
		"category": "film",
		"genre":    []string{"drama"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var title domain.Title
	decodeBody(t, rec, &title)
	require.NotZero(t, title.ID)
	require.NotNil(t, title.Category)
	require.Equal(t, "film", title.Category.Slug)
	require.Len(t, title.Genres, 1)
	require.Nil(t, title.Rating)

	// Titles without genres are rejected.
	rec = ts.do(t, http.MethodPost, "/api/v1/titles", adminToken, map[string]interface{}{
		"name": "Nothing", "year": 2000,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// A future release year is rejected.
	futureYear := time.Now().Year() + 1
	rec = ts.do(t, http.MethodPatch, "/api/v1/titles/"+strconv.FormatInt(title.ID, 10), adminToken,
		map[string]interface{}{"year": futureYear})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/titles?genre=drama", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Count   int64          `json:"count"`
		Results []domain.Title `json:"results"`
	}
	decodeBody(t, rec, &list)
	require.EqualValues(t, 1, list.Count)
	require.Equal(t, "Hamlet", list.Results[0].Name)

	rec = ts.do(t, http.MethodGet, "/api/v1/titles?year=notanumber", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/titles/"+strconv.FormatInt(title.ID, 10), adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/titles/"+strconv.FormatInt(title.ID, 10), "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_UsersAdminOnly(t *testing.T) {
	ts := newTestServer(t)
	_, userToken := ts.seedUser(t, "plain", domain.RoleUser)
	_, adminToken := ts.seedUser(t, "boss", domain.RoleAdmin)

	// Administration is admin-only even for reads.
	rec := ts.do(t, http.MethodGet, "/api/v1/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/users", userToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/users", adminToken, map[string]string{
		"username": "helper",
		"email":    "helper@example.com",
		"role":     "moderator",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created userResponse
	decodeBody(t, rec, &created)
	require.Equal(t, "moderator", created.Role)

	rec = ts.do(t, http.MethodPatch, "/api/v1/users/plain", adminToken, map[string]string{
		"role": "admin",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated userResponse
	decodeBody(t, rec, &updated)
	require.Equal(t, "admin", updated.Role)

	rec = ts.do(t, http.MethodPost, "/api/v1/users", adminToken, map[string]string{
		"username": "bad",
		"email":    "bad@example.com",
		"role":     "owner",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/users/helper", adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/users/helper", adminToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_UpdateMe(t *testing.T) {
	ts := newTestServer(t)
	_, token := ts.seedUser(t, "selfie", domain.RoleUser)

	// A role in the self-update body is dropped, not applied.
	rec := ts.do(t, http.MethodPatch, "/api/v1/users/me", token, map[string]string{
		"role": "admin",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var afterRole userResponse
	decodeBody(t, rec, &afterRole)
	require.Equal(t, "user", afterRole.Role)

	rec = ts.do(t, http.MethodPatch, "/api/v1/users/me", token, map[string]string{
		"bio": "hello there",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var me userResponse
	decodeBody(t, rec, &me)
	require.Equal(t, "hello there", me.Bio)
	require.Equal(t, "user", me.Role)
}

func TestRouter_ReviewFlow(t *testing.T) {
	ts := newTestServer(t)
	_, adminToken := ts.seedUser(t, "boss", domain.RoleAdmin)
	_, aliceToken := ts.seedUser(t, "alice", domain.RoleUser)
	_, bobToken := ts.seedUser(t, "bob", domain.RoleUser)
	_, modToken := ts.seedUser(t, "mod", domain.RoleModerator)

	titleID := ts.seedTitle(t, adminToken)
	base := "/api/v1/titles/" + strconv.FormatInt(titleID, 10) + "/reviews"

	// Creating needs authentication.
	rec := ts.do(t, http.MethodPost, base, "", map[string]interface{}{
		"text": "great", "score": 9,
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, base, aliceToken, map[string]interface{}{
		"text": "great", "score": 9,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var review domain.Review
	decodeBody(t, rec, &review)
	require.Equal(t, "alice", review.Author)
	require.Equal(t, 9, review.Score)
	reviewPath := base + "/" + strconv.FormatInt(review.ID, 10)

	// One review per author and title.
	rec = ts.do(t, http.MethodPost, base, aliceToken, map[string]interface{}{
		"text": "again", "score": 5,
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	// Scores outside bounds are rejected.
	rec = ts.do(t, http.MethodPost, base, bobToken, map[string]interface{}{
		"text": "meh", "score": 11,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// The mean rating reflects review scores.
	rec = ts.do(t, http.MethodPost, base, bobToken, map[string]interface{}{
		"text": "fine", "score": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/titles/"+strconv.FormatInt(titleID, 10), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var title domain.Title
	decodeBody(t, rec, &title)
	require.NotNil(t, title.Rating)
	require.InDelta(t, 7.0, *title.Rating, 0.001)

	// Only the author, a moderator, or an admin may modify a review. The
	// resource is loaded first, so an unknown review is a 404 either way.
	rec = ts.do(t, http.MethodPatch, reviewPath, bobToken, map[string]interface{}{
		"text": "hijacked",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPatch, base+"/9999", bobToken, map[string]interface{}{
		"text": "nothing here",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPatch, reviewPath, aliceToken, map[string]interface{}{
		"text": "still great",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated domain.Review
	decodeBody(t, rec, &updated)
	require.Equal(t, "still great", updated.Text)
	require.Equal(t, 9, updated.Score)

	rec = ts.do(t, http.MethodDelete, reviewPath, modToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, reviewPath, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CommentFlow(t *testing.T) {
	ts := newTestServer(t)
	_, adminToken := ts.seedUser(t, "boss", domain.RoleAdmin)
	_, aliceToken := ts.seedUser(t, "alice", domain.RoleUser)
	_, bobToken := ts.seedUser(t, "bob", domain.RoleUser)

	titleID := ts.seedTitle(t, adminToken)
	base := "/api/v1/titles/" + strconv.FormatInt(titleID, 10) + "/reviews"

	rec := ts.do(t, http.MethodPost, base, aliceToken, map[string]interface{}{
		"text": "great", "score": 8,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var review domain.Review
	decodeBody(t, rec, &review)

	commentsPath := base + "/" + strconv.FormatInt(review.ID, 10) + "/comments"

	rec = ts.do(t, http.MethodPost, commentsPath, bobToken, map[string]string{
		"text": "I agree",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var comment domain.Comment
	decodeBody(t, rec, &comment)
	require.Equal(t, "bob", comment.Author)
	commentPath := commentsPath + "/" + strconv.FormatInt(comment.ID, 10)

	// Comments are public to read.
	rec = ts.do(t, http.MethodGet, commentsPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Count   int64            `json:"count"`
		Results []domain.Comment `json:"results"`
	}
	decodeBody(t, rec, &list)
	require.EqualValues(t, 1, list.Count)

	// Only the author or a privileged role may modify.
	rec = ts.do(t, http.MethodPatch, commentPath, aliceToken, map[string]string{
		"text": "rewritten",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPatch, commentPath, bobToken, map[string]string{
		"text": "I strongly agree",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, commentPath, adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, commentPath, adminToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
