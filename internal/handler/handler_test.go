package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fsanano/item-catalog/internal/handler"
	"fsanano/item-catalog/internal/model"
	"fsanano/item-catalog/internal/service"
	"fsanano/item-catalog/internal/session"
	"fsanano/item-catalog/internal/testutil"
)

type testApp struct {
	store    *testutil.MemStore
	sessions *session.Store
	provider *testutil.FakeProvider
	handler  *handler.Handler

	soccer model.Category
	hockey model.Category
	alice  model.User
	bob    model.User
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	store := testutil.NewMemStore()
	sessions := session.NewStore("test-secret", false)
	provider := testutil.NewFakeProvider("google", "client-123")

	a := &testApp{store: store, sessions: sessions, provider: provider}

	var err error
	a.soccer, err = store.CreateCategory(ctx, "Soccer")
	require.NoError(t, err)
	a.hockey, err = store.CreateCategory(ctx, "Hockey")
	require.NoError(t, err)
	a.alice, err = store.UpsertUser(ctx, "Alice", "alice@example.com", "")
	require.NoError(t, err)
	a.bob, err = store.UpsertUser(ctx, "Bob", "bob@example.com", "")
	require.NoError(t, err)

	a.handler = handler.NewHandler(handler.Dependencies{
		Catalog:       service.NewCatalogService(store, logger, 10),
		Sessions:      sessions,
		Auth:          session.NewManager(store, logger, time.Second, provider),
		ConnectRoutes: map[string]string{"g": provider.Name()},
		Logger:        logger,
	})
	return a
}

func (a *testApp) loggedIn(u model.User) *session.Session {
	return &session.Session{
		Provider:    "google",
		Subject:     "sub-" + strings.ToLower(u.Name),
		AccessToken: "token-" + strings.ToLower(u.Name),
		UserID:      u.ID,
		Username:    u.Name,
		Email:       u.Email,
	}
}

func (a *testApp) do(t *testing.T, method, target string, body io.Reader, sess *session.Session, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if sess != nil {
		value, err := a.sessions.Encode(sess)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: value})
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(t *testing.T, target string, sess *session.Session) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, http.MethodGet, target, nil, sess)
}

func (a *testApp) post(t *testing.T, target string, form url.Values, sess *session.Session) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, http.MethodPost, target, strings.NewReader(form.Encode()), sess,
		"Content-Type", "application/x-www-form-urlencoded")
}

// sessionOf decodes the session cookie set by the response, if any.
func (a *testApp) sessionOf(t *testing.T, rec *httptest.ResponseRecorder) *session.Session {
	t.Helper()
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		return nil
	}
	if cookie.MaxAge < 0 {
		return &session.Session{}
	}

	sess, err := a.sessions.Decode(cookie.Value)
	require.NoError(t, err)
	return sess
}

func (a *testApp) addItem(t *testing.T, owner model.User, name string, cat model.Category) model.Item {
	t.Helper()
	item, err := a.store.CreateItem(context.Background(), name, "desc", cat.ID, owner.ID)
	require.NoError(t, err)
	return item
}

func itemForm(name, description string, cat model.Category) url.Values {
	return url.Values{
		"name":        {name},
		"description": {description},
		"category":    {fmt.Sprint(cat.ID)},
	}
}

func location(rec *httptest.ResponseRecorder) string {
	return rec.Result().Header.Get("Location")
}

func TestHealthCheck(t *testing.T) {
	a := newTestApp(t)

	rec := a.get(t, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestShowCatalog(t *testing.T) {
	a := newTestApp(t)
	a.addItem(t, a.alice, "Ball", a.soccer)
	a.addItem(t, a.alice, "Puck", a.hockey)

	for _, path := range []string{"/", "/category", "/category/"} {
		rec := a.get(t, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)

		body := rec.Body.String()
		assert.Contains(t, body, "Latest Items")
		assert.Less(t, strings.Index(body, "Puck"), strings.Index(body, "Ball"), "newest first")
		assert.NotContains(t, body, "Add Item")
	}

	rec := a.get(t, "/category", a.loggedIn(a.alice))
	assert.Contains(t, rec.Body.String(), "Add Item")
}

func TestShowCategory(t *testing.T) {
	a := newTestApp(t)
	for _, name := range []string{"Zeta", "Alpha", "Mu"} {
		a.addItem(t, a.alice, name, a.soccer)
	}

	rec := a.get(t, fmt.Sprintf("/category/%d/", a.soccer.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Soccer Items (3 items)")
	assert.Less(t, strings.Index(body, "Alpha"), strings.Index(body, "Mu"))
	assert.Less(t, strings.Index(body, "Mu"), strings.Index(body, "Zeta"))

	assert.Equal(t, http.StatusNotFound, a.get(t, "/category/999", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.get(t, "/category/abc", nil).Code)
}

func TestShowItem(t *testing.T) {
	a := newTestApp(t)
	item := a.addItem(t, a.alice, "Ball", a.soccer)
	path := fmt.Sprintf("/category/%d/%d", a.soccer.ID, item.ID)

	rec := a.get(t, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ball")
	assert.NotContains(t, rec.Body.String(), "/edit")

	rec = a.get(t, path, a.loggedIn(a.bob))
	assert.NotContains(t, rec.Body.String(), "/edit")

	rec = a.get(t, path, a.loggedIn(a.alice))
	assert.Contains(t, rec.Body.String(), path+"/edit")
	assert.Contains(t, rec.Body.String(), path+"/delete")

	wrongCategory := fmt.Sprintf("/category/%d/%d", a.hockey.ID, item.ID)
	assert.Equal(t, http.StatusNotFound, a.get(t, wrongCategory, nil).Code)
}

func TestNewItem_AnonymousRedirectsToLogin(t *testing.T) {
	a := newTestApp(t)

	for _, path := range []string{"/category/new/", "/category/new", fmt.Sprintf("/category/new/%d/", a.soccer.ID)} {
		rec := a.get(t, path, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", location(rec), path)
	}

	rec := a.post(t, "/category/new/", itemForm("Ball", "Round", a.soccer), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", location(rec))
	assert.Equal(t, 0, a.store.WriteCount())
}

func TestNewItemForm_PreselectsCategory(t *testing.T) {
	a := newTestApp(t)

	rec := a.get(t, fmt.Sprintf("/category/new/%d", a.hockey.ID), a.loggedIn(a.alice))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`<option value="%d" selected>Hockey</option>`, a.hockey.ID))

	rec = a.get(t, "/category/new/999", a.loggedIn(a.alice))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateItem(t *testing.T) {
	a := newTestApp(t)

	rec := a.post(t, "/category/new/", itemForm("Ball", "Round", a.soccer), a.loggedIn(a.alice))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	items, err := a.store.ListItemsInCategory(context.Background(), a.soccer.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a.alice.ID, items[0].UserID)
	assert.Equal(t, fmt.Sprintf("/category/%d/%d", a.soccer.ID, items[0].ID), location(rec))

	sess := a.sessionOf(t, rec)
	require.NotNil(t, sess)
	assert.Equal(t, "Added", sess.Flash)
	assert.Equal(t, a.alice.ID, sess.UserID)
}

func TestCreateItem_InvalidInput(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{"empty name", itemForm("", "Round", a.soccer), "Invalid values"},
		{"empty description", itemForm("Ball", "", a.soccer), "Invalid values"},
		{"no category", url.Values{"name": {"Ball"}, "description": {"Round"}, "category": {"None"}}, "Please select a category"},
		{"name too long", itemForm(strings.Repeat("x", 81), "Round", a.soccer), "Invalid values"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.post(t, "/category/new", tt.form, a.loggedIn(a.alice))
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.message)
			assert.Contains(t, rec.Body.String(), `value="`+tt.form.Get("name")+`"`)
		})
	}

	assert.Equal(t, 0, a.store.WriteCount())
}

func TestCreateItem_InvalidUTF8(t *testing.T) {
	a := newTestApp(t)

	for _, form := range []url.Values{
		itemForm("Ba\xffll", "Round", a.soccer),
		itemForm("Ball", "Ro\xc3\x28und", a.soccer),
	} {
		rec := a.post(t, "/category/new", form, a.loggedIn(a.alice))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid values")
	}

	assert.Equal(t, 0, a.store.WriteCount())
}

func TestEditItem_NonOwnerRedirected(t *testing.T) {
	a := newTestApp(t)
	item := a.addItem(t, a.alice, "Ball", a.soccer)
	path := fmt.Sprintf("/category/%d/%d/edit/", a.soccer.ID, item.ID)
	writes := a.store.WriteCount()

	rec := a.get(t, path, a.loggedIn(a.bob))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/category", location(rec))

	rec = a.post(t, path, itemForm("Stolen", "Mine", a.hockey), a.loggedIn(a.bob))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/category", location(rec))

	rec = a.post(t, path, itemForm("Stolen", "Mine", a.hockey), nil)
	assert.Equal(t, "/login", location(rec))

	assert.Equal(t, writes, a.store.WriteCount())
	got, err := a.store.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ball", got.Name)
	assert.Equal(t, a.soccer.ID, got.CategoryID)
}

func TestEditItem_Owner(t *testing.T) {
	a := newTestApp(t)
	item := a.addItem(t, a.alice, "Ball", a.soccer)
	path := fmt.Sprintf("/category/%d/%d/edit", a.soccer.ID, item.ID)

	rec := a.get(t, path, a.loggedIn(a.alice))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Ball"`)

	rec = a.post(t, path, itemForm("Puck", "Flat", a.hockey), a.loggedIn(a.alice))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, fmt.Sprintf("/category/%d/%d", a.hockey.ID, item.ID), location(rec))
	assert.Equal(t, "Edit successful", a.sessionOf(t, rec).Flash)

	got, err := a.store.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Puck", got.Name)
	assert.Equal(t, a.alice.ID, got.UserID)

	rec = a.post(t, fmt.Sprintf("/category/%d/%d/edit", a.hockey.ID, item.ID), itemForm("", "Flat", a.hockey), a.loggedIn(a.alice))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteItem(t *testing.T) {
	a := newTestApp(t)
	item := a.addItem(t, a.alice, "Ball", a.soccer)
	path := fmt.Sprintf("/category/%d/%d/delete", a.soccer.ID, item.ID)
	back := fmt.Sprintf("/category/%d", a.soccer.ID)
	confirm := url.Values{"delete": {"yes"}}

	rec := a.post(t, path, confirm, a.loggedIn(a.bob))
	assert.Equal(t, "/category", location(rec))

	rec = a.get(t, path, a.loggedIn(a.alice))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Delete Ball?")

	rec = a.post(t, path, url.Values{}, a.loggedIn(a.alice))
	assert.Equal(t, back, location(rec))
	_, err := a.store.GetItem(context.Background(), item.ID)
	require.NoError(t, err, "not deleted without confirmation")

	rec = a.post(t, path, confirm, a.loggedIn(a.alice))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, back, location(rec))
	assert.Equal(t, "Item deleted", a.sessionOf(t, rec).Flash)

	_, err = a.store.GetItem(context.Background(), item.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	rec = a.post(t, path, confirm, a.loggedIn(a.alice))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJSON(t *testing.T) {
	a := newTestApp(t)
	item := a.addItem(t, a.alice, "Ball", a.soccer)

	rec := a.get(t, "/category/json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, fmt.Sprintf(`{"Categories":[{"id":%d,"name":"Hockey"},{"id":%d,"name":"Soccer"}]}`, a.hockey.ID, a.soccer.ID), rec.Body.String())

	rec = a.get(t, fmt.Sprintf("/category/%d/json", a.soccer.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"Category":"Soccer","Items":[{"id":%d,"name":"Ball","description":"desc","category":"Soccer"}]}`, item.ID), rec.Body.String())

	rec = a.get(t, fmt.Sprintf("/category/%d/json", a.hockey.ID), nil)
	assert.JSONEq(t, `{"Category":"Hockey","Items":[]}`, rec.Body.String())

	rec = a.get(t, fmt.Sprintf("/category/%d/%d/json/", a.soccer.ID, item.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"Item":{"id":%d,"name":"Ball","description":"desc","category":"Soccer"}}`, item.ID), rec.Body.String())

	assert.Equal(t, http.StatusNotFound, a.get(t, "/category/999/json", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.get(t, fmt.Sprintf("/category/%d/%d/json", a.hockey.ID, item.ID), nil).Code)
}

func TestCompression(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodGet, "/category/json", nil, nil, "Accept-Encoding", "br")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "br", rec.Header().Get("Content-Encoding"))

	body, err := io.ReadAll(brotli.NewReader(rec.Body))
	require.NoError(t, err)

	var resp struct {
		Categories []model.Category
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Len(t, resp.Categories, 2)
}

func TestLoginFlow(t *testing.T) {
	a := newTestApp(t)
	a.provider.AddIdentity("code-1", "sub-alice", "Alice", "alice@example.com")

	rec := a.get(t, "/login", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := a.sessionOf(t, rec)
	require.NotNil(t, pending)
	require.NotEmpty(t, pending.State)
	assert.Contains(t, rec.Body.String(), "client-123")
	assert.Contains(t, rec.Body.String(), "/gconnect?state="+pending.State)

	rec = a.do(t, http.MethodPost, "/gconnect?state="+pending.State, strings.NewReader("code-1"), pending)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome, Alice!")

	sess := a.sessionOf(t, rec)
	require.NotNil(t, sess)
	assert.Equal(t, a.alice.ID, sess.UserID)
	assert.Empty(t, sess.State)
	assert.Equal(t, "You are now logged in as Alice", sess.Flash)

	rec = a.get(t, "/category", sess)
	assert.Contains(t, rec.Body.String(), "You are now logged in as Alice")
	cleared := a.sessionOf(t, rec)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Flash)
	assert.Equal(t, a.alice.ID, cleared.UserID)
}

func TestConnect_RoutesOnlyRegisteredProviders(t *testing.T) {
	logger := zap.NewNop()
	store := testutil.NewMemStore()
	sessions := session.NewStore("test-secret", false)
	provider := testutil.NewFakeProvider("google", "client-123")

	h := handler.NewHandler(handler.Dependencies{
		Catalog:       service.NewCatalogService(store, logger, 10),
		Sessions:      sessions,
		Auth:          session.NewManager(store, logger, time.Second, provider),
		ConnectRoutes: map[string]string{"g": "google", "x": "github"},
		Logger:        logger,
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/gconnect?state=")
	assert.NotContains(t, rec.Body.String(), "/xconnect")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/xconnect?state=S", strings.NewReader("code")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConnect_InvalidState(t *testing.T) {
	a := newTestApp(t)
	a.provider.AddIdentity("code-1", "sub-alice", "Alice", "alice@example.com")
	pending := &session.Session{State: "ISSUED"}

	for _, target := range []string{"/gconnect?state=FORGED", "/gconnect"} {
		rec := a.do(t, http.MethodPost, target, strings.NewReader("code-1"), pending)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)

		var msg string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
		assert.Equal(t, "Invalid state parameter", msg)
		assert.Nil(t, a.sessionOf(t, rec), "no session may be established")
	}
}

func TestConnect_ExchangeFailure(t *testing.T) {
	a := newTestApp(t)
	pending := &session.Session{State: "ISSUED"}

	rec := a.do(t, http.MethodPost, "/gconnect?state=ISSUED", strings.NewReader("unknown"), pending)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to upgrade the authorization code")
	assert.Nil(t, a.sessionOf(t, rec))
}

func TestConnect_AlreadyConnected(t *testing.T) {
	a := newTestApp(t)
	a.provider.AddIdentity("code-1", "sub-alice", "Alice", "alice@example.com")

	sess := a.loggedIn(a.alice)
	sess.State = "ISSUED"

	rec := a.do(t, http.MethodPost, "/gconnect?state=ISSUED", strings.NewReader("code-1"), sess)
	require.Equal(t, http.StatusOK, rec.Code)

	var msg string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "Current user is already connected.", msg)
}

func TestDisconnect(t *testing.T) {
	a := newTestApp(t)

	rec := a.get(t, "/disconnect", a.loggedIn(a.alice))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/category", location(rec))
	assert.Equal(t, []string{"token-alice"}, a.provider.RevokedTokens())

	sess := a.sessionOf(t, rec)
	require.NotNil(t, sess)
	assert.Equal(t, session.Session{Flash: "You have been successfully logged out."}, *sess)

	rec = a.get(t, "/disconnect", nil)
	assert.Equal(t, "/category", location(rec))
	assert.Equal(t, "You were not logged in.", a.sessionOf(t, rec).Flash)
	assert.Len(t, a.provider.RevokedTokens(), 1)
}

func TestDisconnect_RevokeFailureStillLogsOut(t *testing.T) {
	a := newTestApp(t)
	a.provider.RevokeErr = fmt.Errorf("revoke endpoint unavailable")

	rec := a.get(t, "/disconnect", a.loggedIn(a.alice))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	sess := a.sessionOf(t, rec)
	require.NotNil(t, sess)
	assert.False(t, sess.IsAuthenticated())
}
