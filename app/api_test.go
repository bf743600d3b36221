package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/asitisdev/noticewatch/config"
	"github.com/asitisdev/noticewatch/lib"
	"github.com/asitisdev/noticewatch/lib/feed"
	"github.com/asitisdev/noticewatch/lib/models"
	"github.com/asitisdev/noticewatch/lib/store"
	"github.com/asitisdev/noticewatch/lib/syncer"
	"github.com/asitisdev/noticewatch/senders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// boardStub serves a rendered notice board from a mutable notice list.
type boardStub struct {
	mu      sync.Mutex
	notices models.Notices
	broken  bool
	srv     *httptest.Server
}

func newBoardStub(t *testing.T) *boardStub {
	t.Helper()
	b := &boardStub{}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.broken {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		var sb strings.Builder
		sb.WriteString(`<html><body><table class="board-table"><tbody>`)
		for _, n := range b.notices {
			fmt.Fprintf(&sb,
				`<tr><td class="b-num-box">%d</td>`+
					`<td class="b-td-left"><div class="b-title-box"><a href="?mode=view&amp;articleNo=%d">%s</a></div></td></tr>`,
				n.ID, n.ID, n.Title)
		}
		sb.WriteString(`</tbody></table></body></html>`)
		w.Write([]byte(sb.String()))
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *boardStub) publish(notices ...models.Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(models.Notices{}, notices...)
}

// hookStub is the registered webhook endpoint; it records delivered
// multipart messages.
type hookStub struct {
	mu       sync.Mutex
	contents []string
	srv      *httptest.Server
}

func newHookStub(t *testing.T) *hookStub {
	t.Helper()
	h := &hookStub{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.mu.Lock()
		h.contents = append(h.contents, r.FormValue("content"))
		h.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *hookStub) delivered() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.contents...)
}

func newTestRouter(t *testing.T, board *boardStub) http.Handler {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Subscription{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	cfg := &config.Config{
		FeedBaseURL:         board.srv.URL,
		AvatarURL:           "https://cdn.example/avatar.png",
		OutboundTimeoutSecs: 5,
		SweepIntervalSecs:   600,
	}
	log := zap.NewNop()

	st := store.NewStore(nil, log, db)
	fd := feed.NewClient(nil, cfg, log, http.DefaultTransport)
	registry := senders.NewSenderRegistry(nil, log, cfg, http.DefaultTransport)
	sy := syncer.New(cfg, log, st, fd, registry)
	svc := lib.NewService(nil, cfg, log, st, fd, sy)

	return router(cfg, log, svc)
}

func do(r http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestMissingWebhookParam(t *testing.T) {
	r := newTestRouter(t, newBoardStub(t))

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/api/webhook"},
		{http.MethodPost, "/api/webhook"},
		{http.MethodDelete, "/api/webhook"},
		{http.MethodPost, "/api/webhook/refresh"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := do(r, tt.method, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUnknownEndpoint(t *testing.T) {
	r := newTestRouter(t, newBoardStub(t))
	target := "/api/webhook?webhook=https://hooks.example/ghost"

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, target, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, target, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/webhook/refresh?webhook=https://hooks.example/ghost", "").Code)
}

func TestSubscriptionLifecycle(t *testing.T) {
	board := newBoardStub(t)
	hook := newHookStub(t)
	r := newTestRouter(t, board)

	board.publish(models.Notice{ID: 50, Title: "Notice 50"})
	target := "/api/webhook?webhook=" + hook.srv.URL

	// Registration excludes the backlog: watermark starts at the newest id.
	rec := do(r, http.MethodPost, target, `{"category": "1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created SubscriptionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, hook.srv.URL, created.Endpoint)
	assert.Equal(t, "1", created.Filter.Category)
	assert.EqualValues(t, 50, created.Watermark)

	// Refresh with an unchanged feed delivers nothing.
	rec = do(r, http.MethodPost, "/api/webhook/refresh?webhook="+hook.srv.URL, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report syncer.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 0, report.Delivered)
	assert.Empty(t, hook.delivered())

	// Two new notices appear; refresh delivers them oldest-first.
	board.publish(
		models.Notice{ID: 52, Title: "Notice 52"},
		models.Notice{ID: 51, Title: "Notice 51"},
		models.Notice{ID: 50, Title: "Notice 50"},
	)
	rec = do(r, http.MethodPost, "/api/webhook/refresh?webhook="+hook.srv.URL, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 2, report.Delivered)

	delivered := hook.delivered()
	require.Len(t, delivered, 2)
	assert.True(t, strings.HasPrefix(delivered[0], "Notice 51\n"))
	assert.True(t, strings.HasPrefix(delivered[1], "Notice 52\n"))

	// The CORS-exposed read reflects the advanced watermark.
	rec = do(r, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	var got SubscriptionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 52, got.Watermark)
	require.NotNil(t, got.LastSyncTime)

	// Deletion frees the endpoint for re-registration.
	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, target, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, target, "").Code)
	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, target, "{}").Code)
}

func TestCreateConflict(t *testing.T) {
	board := newBoardStub(t)
	board.publish(models.Notice{ID: 50, Title: "Notice 50"})
	r := newTestRouter(t, board)

	target := "/api/webhook?webhook=https://hooks.example/a"
	assert.Equal(t, http.StatusCreated, do(r, http.MethodPost, target, "{}").Code)
	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, target, "{}").Code)
}

func TestCreateFeedFailure(t *testing.T) {
	board := newBoardStub(t)
	board.broken = true
	r := newTestRouter(t, board)

	rec := do(r, http.MethodPost, "/api/webhook?webhook=https://hooks.example/a", "{}")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPreflight(t *testing.T) {
	r := newTestRouter(t, newBoardStub(t))

	rec := do(r, http.MethodOptions, "/api/webhook", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	r := newTestRouter(t, newBoardStub(t))

	rec := do(r, http.MethodPut, "/api/webhook?webhook=https://hooks.example/a", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Allow"))
}

func TestUnknownPath(t *testing.T) {
	r := newTestRouter(t, newBoardStub(t))
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/unknown", "").Code)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, newBoardStub(t))
	rec := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
