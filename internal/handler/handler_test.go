package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"storyweaver/internal/client/mocks"
	"storyweaver/internal/generator"
	"storyweaver/internal/models"
	"storyweaver/internal/service"
	"storyweaver/internal/session"
	"storyweaver/internal/web"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testUser = &models.User{ID: "u1", Name: "Ann", Email: "ann@example.com"}

type fixture struct {
	t       *testing.T
	gw      *mocks.MockBackendGateway
	store   *session.MemoryStore
	h       *Handler
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

type fixtureOptions struct {
	provider generator.ContentProvider
	mw       Middlewares
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw := mocks.NewMockBackendGateway(t)
	gw.On("WithAuth", mock.Anything).Return(gw).Maybe()
	store := session.NewMemoryStore(zap.NewNop())
	svc := service.NewStorySessionService(store, gw, zap.NewNop(), service.Options{})

	provider := opts.provider
	if provider == nil {
		catalog, err := generator.DefaultCatalog()
		require.NoError(t, err)
		provider = generator.NewCannedProvider(catalog, generator.WithDelay(0, 0))
	}
	h := NewHandler(svc, provider, Config{SessionSecret: []byte("test-secret")}, zap.NewNop())

	tmpl, err := web.Templates(nil)
	require.NoError(t, err)
	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(CustomErrorMiddleware(zap.NewNop(), web.NotFoundPage()))
	h.RegisterRoutes(router, opts.mw)

	return &fixture{t: t, gw: gw, store: store, h: h, router: router, cookies: map[string]*http.Cookie{}}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	f.t.Helper()
	for _, c := range f.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(f.cookies, c.Name)
			continue
		}
		f.cookies[c.Name] = c
	}
	return w
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (f *fixture) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req)
}

func (f *fixture) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return f.do(req)
}

func (f *fixture) sessionID() string {
	f.t.Helper()
	c, ok := f.cookies[sessionCookieName]
	require.True(f.t, ok, "session cookie is set")
	sid, err := f.h.parseSessionToken(c.Value)
	require.NoError(f.t, err)
	return sid
}

func (f *fixture) session() *models.Session {
	f.t.Helper()
	sess, err := f.store.Get(context.Background(), f.sessionID())
	require.NoError(f.t, err)
	return sess
}

// login проходит вход и первый GET /chat, который загружает пользователя.
func (f *fixture) login(rememberMe bool) {
	f.t.Helper()
	f.gw.On("Login", mock.Anything, "ann@example.com", "secret").Return("tok", nil).Once()
	f.gw.On("FetchCurrentUser", mock.Anything).Return(testUser, nil).Once()

	form := url.Values{"email": {"ann@example.com"}, "password": {"secret"}}
	if rememberMe {
		form.Set("remember_me", "on")
	}
	w := f.postForm("/login", form)
	require.Equal(f.t, http.StatusSeeOther, w.Code)
	require.Equal(f.t, "/chat", w.Header().Get("Location"))

	w = f.get("/chat")
	require.Equal(f.t, http.StatusOK, w.Code)
}

func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, location, w.Header().Get("Location"))
}

func TestLanding_GuestIsNotStored(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Weave epic tales")

	_, ok := f.cookies[sessionCookieName]
	assert.False(t, ok, "guest gets no session cookie")
	assert.Equal(t, 0, f.store.Len())
}

func TestInvalidSessionCookie_IsCleared(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.cookies[sessionCookieName] = &http.Cookie{Name: sessionCookieName, Value: "garbage"}

	w := f.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	_, ok := f.cookies[sessionCookieName]
	assert.False(t, ok)
	assert.Equal(t, 0, f.store.Len())
}

func TestChat_AnonymousRedirectsToLogin(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	assertRedirect(t, f.get("/chat"), "/login")
	assertRedirect(t, f.postForm("/chat/story", url.Values{"prompt": {"x"}}), "/login")
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.login(true)

	assert.Greater(t, f.cookies[sessionCookieName].MaxAge, 0, "remember me makes the cookie persistent")

	w := f.get("/chat")
	body := w.Body.String()
	assert.Contains(t, body, "Hello, Ann")
	assert.Contains(t, body, "Begin your adventure")

	sess := f.session()
	assert.Equal(t, "tok", sess.Token)
	assert.True(t, sess.RememberMe)

	assertRedirect(t, f.get("/login"), "/chat")
	assertRedirect(t, f.get("/"), "/chat")
}

func TestLogin_BackendRejects(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.gw.On("Login", mock.Anything, "ann@example.com", "wrong").
		Return("", models.NewAppError(models.ErrAuth, "Invalid email or password", nil)).Once()

	w := f.postForm("/login", url.Values{"email": {"ann@example.com"}, "password": {"wrong"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")
	assert.Contains(t, w.Body.String(), `value="ann@example.com"`)
	_, ok := f.cookies[sessionCookieName]
	assert.False(t, ok)
	assert.Equal(t, 0, f.store.Len())
}

func TestLogin_RotatesSessionID(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.login(false)
	oldCookie := *f.cookies[sessionCookieName]
	oldID := f.sessionID()

	f.gw.On("Login", mock.Anything, "ann@example.com", "secret").Return("tok-2", nil).Once()
	w := f.postForm("/login", url.Values{"email": {"ann@example.com"}, "password": {"secret"}})
	assertRedirect(t, w, "/chat")

	assert.NotEqual(t, oldID, f.sessionID())
	assert.Equal(t, "tok-2", f.session().Token)
	assert.Equal(t, 1, f.store.Len())

	// кука до входа больше не открывает чат
	f.cookies[sessionCookieName] = &oldCookie
	assertRedirect(t, f.get("/chat"), "/login")
}

func TestLogin_MissingFieldsSkipsBackend(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.postForm("/login", url.Values{"email": {"ann@example.com"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter your email and password.")
	f.gw.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestSignup_FlashesOnLoginPage(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.gw.On("Register", mock.Anything, "Ann", "ann@example.com", "secret").Return(nil).Once()

	w := f.postForm("/signup", url.Values{"name": {"Ann"}, "email": {"ann@example.com"}, "password": {"secret"}})
	assertRedirect(t, w, "/login")

	w = f.get("/login")
	assert.Contains(t, w.Body.String(), msgRegistered)

	w = f.get("/login")
	assert.NotContains(t, w.Body.String(), msgRegistered, "flash is shown once")
}

func TestSignup_BackendError(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.gw.On("Register", mock.Anything, "Ann", "ann@example.com", "secret").
		Return(models.NewAppError(models.ErrBackend, "Email already registered", nil)).Once()

	w := f.postForm("/signup", url.Values{"name": {"Ann"}, "email": {"ann@example.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Email already registered")
}

func TestLogout_DeletesSession(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.login(false)
	sid := f.sessionID()

	assertRedirect(t, f.postForm("/logout", nil), "/")
	_, err := f.store.Get(context.Background(), sid)
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	_, ok := f.cookies[sessionCookieName]
	assert.False(t, ok)
}

func TestStartStoryAndSendMessage(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.login(false)

	f.gw.On("StartStory", mock.Anything, "A dragon wakes beneath the mountain", "u1").
		Return(&models.StoryDraft{ID: "d1", Content: "The mountain trembles as ancient eyes open."}, nil).Once()
	assertRedirect(t, f.postForm("/chat/story", url.Values{"prompt": {"A dragon wakes beneath the mountain"}}), "/chat")

	body := f.get("/chat").Body.String()
	assert.Contains(t, body, "The mountain trembles as ancient eyes open.")
	assert.Contains(t, body, `action="/chat/messages"`)

	f.gw.On("ReviseStory", mock.Anything, "d1", "I greet the dragon").
		Return(&models.StoryDraft{ID: "d2", Content: "The dragon bows its head."}, nil).Once()
	assertRedirect(t, f.postForm("/chat/messages", url.Values{"message": {"I greet the dragon"}}), "/chat")

	body = f.get("/chat").Body.String()
	assert.Contains(t, body, "I greet the dragon")
	assert.Contains(t, body, "The dragon bows its head.")
	assert.Equal(t, "d2", f.session().CurrentStoryID)
}

func TestStartStory_ComposesPromptFromConfig(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.login(false)

	expected := "Title: City of Shadows. Mode: Story. Style: Urban Fantasy."
	f.gw.On("StartStory", mock.Anything, expected, "u1").
		Return(&models.StoryDraft{ID: "d1", Content: "Neon rain."}, nil).Once()

	w := f.postForm("/chat/story", url.Values{"title": {"City of Shadows"}, "mode": {"Story"}, "style": {"Urban Fantasy"}})
	assertRedirect(t, w, "/chat")
	assert.Equal(t, models.ViewChat, f.session().ViewMode)
}

func TestStartStory_EmptyPromptShowsError(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.login(false)

	assertRedirect(t, f.postForm("/chat/story", url.Values{"prompt": {"   "}}), "/chat")
	body := f.get("/chat").Body.String()
	assert.Contains(t, body, "Please describe the story you want to create.")
}

func TestSendMessage_InFlightRejected(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.login(false)
	f.gw.On("StartStory", mock.Anything, "p", "u1").Return(&models.StoryDraft{ID: "d1", Content: "c"}, nil).Once()
	f.postForm("/chat/story", url.Values{"prompt": {"p"}})

	sess := f.session()
	sess.IsLoading = true
	sess.LoadingSince = time.Now()
	require.NoError(t, f.store.Save(context.Background(), sess, time.Hour))

	assertRedirect(t, f.postForm("/chat/messages", url.Values{"message": {"next"}}), "/chat")
	body := f.get("/chat").Body.String()
	assert.Contains(t, body, models.MsgRequestInFlight)
	assert.Contains(t, body, `http-equiv="refresh"`)
	f.gw.AssertNotCalled(t, "ReviseStory", mock.Anything, mock.Anything, mock.Anything)
}

func TestBackendAuthError_RedirectsToLogin(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.login(false)
	f.gw.On("StartStory", mock.Anything, "p", "u1").
		Return(nil, models.NewAppError(models.ErrAuth, models.MsgSessionExpired, nil)).Once()

	assertRedirect(t, f.postForm("/chat/story", url.Values{"prompt": {"p"}}), "/login")
	assert.Empty(t, f.session().Token)

	body := f.get("/login").Body.String()
	assert.Contains(t, body, models.MsgSessionExpired)
}

func TestQuickStartPrefill(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.login(false)

	body := f.get("/chat?template=dragons-quest").Body.String()
	assert.Contains(t, body, `value="The Dragon&#39;s Quest"`)
	assert.Contains(t, body, `<option value="Epic Fantasy" selected>`)
}

func TestHistory_ListSelectReviseDelete(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.login(false)

	long := strings.Repeat("a", 200)
	drafts := []models.StoryDraft{
		{ID: "d1", Title: "First tale", Prompt: "Dragons", Content: long, CreatedAt: "2025-03-01T10:00:00Z"},
		{ID: "d2", Title: "Second tale", Prompt: "Ghosts", Content: "Short one", CreatedAt: "2025-03-02T10:00:00Z"},
	}
	f.gw.On("ListDrafts", mock.Anything, "u1").Return(drafts, nil).Once()

	assertRedirect(t, f.postForm("/chat/history", nil), "/chat")
	body := f.get("/chat").Body.String()
	assert.Contains(t, body, "First tale")
	assert.Contains(t, body, strings.Repeat("a", 150)+"...")
	assert.NotContains(t, body, strings.Repeat("a", 151))

	assertRedirect(t, f.postForm("/chat/history/d2/select", nil), "/chat")
	body = f.get("/chat").Body.String()
	assert.Contains(t, body, "User Prompt")
	assert.Contains(t, body, "Ghosts")

	f.gw.On("ReviseStory", mock.Anything, "d2", "Make it scarier").
		Return(&models.StoryDraft{ID: "d3", Content: "A colder wind."}, nil).Once()
	assertRedirect(t, f.postForm("/chat/history/d2/revise", url.Values{"message": {"Make it scarier"}}), "/chat")
	sess := f.session()
	assert.Equal(t, "d3", sess.SelectedDraftID)
	require.Len(t, sess.Drafts, 3)
	assert.Equal(t, "d3", sess.Drafts[0].ID)

	f.gw.On("DeleteDraft", mock.Anything, "d1").Return(nil).Once()
	assertRedirect(t, f.postForm("/chat/history/d1/delete", nil), "/chat")
	sess = f.session()
	require.Len(t, sess.Drafts, 2)
	for _, d := range sess.Drafts {
		assert.NotEqual(t, "d1", d.ID)
	}
}

func TestHistory_LoadFailureShowsRetry(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.login(false)
	f.gw.On("ListDrafts", mock.Anything, "u1").
		Return(nil, models.NewAppError(models.ErrNetwork, models.MsgNetwork, errors.New("dial tcp"))).Once()

	assertRedirect(t, f.postForm("/chat/history", nil), "/chat")
	body := f.get("/chat").Body.String()
	assert.Contains(t, body, models.MsgNetwork)
	assert.Contains(t, body, "Try again")
}

func TestNotFoundPage(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "wandered off")
}

func TestHealth(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	w := f.get("/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRateLimiter_Returns429(t *testing.T) {
	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{Rate: time.Minute, Limit: 1})
	f := newFixture(t, fixtureOptions{mw: Middlewares{RateLimit: RateLimiter(store, zap.NewNop())}})

	body := `{"title":"T","mode":"Story","style":"Fantasy","userId":"u1"}`
	require.Equal(t, http.StatusOK, f.postJSON("/api/story/start", body).Code)

	w := f.postJSON("/api/story/start", body)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp["detail"], "Rate limit exceeded: try again in "), resp["detail"])
}
