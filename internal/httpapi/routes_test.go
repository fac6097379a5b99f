package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DoyleJ11/roster-console/internal/hub"
	"github.com/DoyleJ11/roster-console/internal/page"
	"github.com/DoyleJ11/roster-console/internal/roster"
	"github.com/DoyleJ11/roster-console/internal/ws"
)

type nopAPI struct{}

func (nopAPI) FetchRoster(context.Context) (roster.Roster, error)     { return roster.New(), nil }
func (nopAPI) Signup(context.Context, string, string) (string, error) { return "", nil }
func (nopAPI) Unregister(context.Context, string, string) (string, error) {
	return "", nil
}

func newServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, func(ctx context.Context) *page.Page {
		return page.NewPage(ctx, nopAPI{}, page.Options{})
	})
	srv := httptest.NewServer(SetupRoutes(h, ws.Options{}, nil))
	t.Cleanup(srv.Close)
	return srv, h
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func TestShell_HasTheControllerRegions(t *testing.T) {
	srv, _ := newServer(t)

	res, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")
	for _, id := range []string{`id="activities-list"`, `id="signup-form"`, `id="email"`, `id="activity"`, `id="message"`} {
		assert.Contains(t, body, id)
	}
	assert.Contains(t, body, "Loading activities...")
}

func TestStatic_ServesEmbeddedAssets(t *testing.T) {
	srv, _ := newServer(t)

	res, body := get(t, srv.URL+"/static/app.js")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "WebSocket")

	res, _ = get(t, srv.URL+"/static/styles.css")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = get(t, srv.URL+"/static/missing.js")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHealthz_ReportsSessions(t *testing.T) {
	srv, h := newServer(t)

	reply := make(chan *page.Page, 1)
	h.Inbox() <- hub.EnsurePage{SessionID: "s1", Reply: reply}
	<-reply

	res, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var got health
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, health{Status: "ok", Sessions: 1}, got)
}

func TestWS_PlainGetIsRejectedWithoutASession(t *testing.T) {
	srv, h := newServer(t)

	res, _ := get(t, srv.URL+"/ws")
	assert.Equal(t, http.StatusUpgradeRequired, res.StatusCode)

	reply := make(chan int, 1)
	h.Inbox() <- hub.CountPages{Reply: reply}
	assert.Zero(t, <-reply)
}

func TestAccessLog_OneLinePerRequestWithID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(AccessLog(zap.New(core)))
	r.Use(middleware.Recoverer)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	res, _ := get(t, srv.URL+"/boom")
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/boom", fields["path"])
	assert.EqualValues(t, http.StatusInternalServerError, fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}
