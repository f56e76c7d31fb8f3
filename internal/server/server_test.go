package server_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/wardenlabs/reportrelay/internal/auth"
	"github.com/wardenlabs/reportrelay/internal/ingest"
	"github.com/wardenlabs/reportrelay/internal/server"
	"github.com/wardenlabs/reportrelay/internal/setup/config"
	"github.com/wardenlabs/reportrelay/internal/stats"
	"github.com/wardenlabs/reportrelay/internal/storage/database"
	"go.uber.org/zap"
)

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []*ingest.Notification
	fail          bool
}

func (f *fakeNotifier) SendReport(_ context.Context, notification *ingest.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return errors.New("discord unavailable")
	}
	f.notifications = append(f.notifications, notification)
	return nil
}

func (f *fakeNotifier) sent() []*ingest.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notifications
}

func setupServer(t *testing.T, mutate func(cfg *config.Config)) (http.Handler, *fakeNotifier, *database.Client) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	logger := zap.NewNop()
	require.NoError(t, database.RunMigrations(t.Context(), db, logger))
	t.Cleanup(func() { db.Close() })

	client := database.NewClient(db, logger)

	cfg := &config.Config{
		Version: config.CurrentVersion,
		Server:  config.Server{Host: "127.0.0.1", Port: 5000},
		RateLimit: config.RateLimit{
			Requests: 100,
			Window:   60,
		},
		Admin: config.Admin{Password: "hunter2"},
	}
	if mutate != nil {
		mutate(cfg)
	}

	notifier := &fakeNotifier{}
	authority := auth.New(client, cfg.Admin.Password, cfg.Admin.UserIDs, logger)
	statsService := stats.NewService(client, logger)
	pipeline := ingest.NewPipeline(client, statsService, notifier, logger)

	handler := server.NewServer(cfg, client, authority, pipeline, statsService, nil, logger)
	return handler, notifier, client
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string, setup func(req *http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if setup != nil {
		setup(req)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// validReportBody stamps the report with the current time so it lands
// inside the trailing statistics windows.
func validReportBody() string {
	return fmt.Sprintf(`{
	"reporter": {"userId": 100, "name": "Reporter", "profileUrl": "https://example.com/users/100"},
	"reported": {"userId": 200, "name": "Reported"},
	"abuseType": "Exploiting",
	"additionalInfo": "flying around the map",
	"serverId": "job-123",
	"placeId": 9999,
	"timestamp": %d
}`, time.Now().Unix())
}

func login(t *testing.T, handler http.Handler, password string) *http.Cookie {
	t.Helper()

	w := doJSON(t, handler, http.MethodPost, "/admin/login", `{"password":"`+password+`"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "admin_session" {
			require.True(t, cookie.HttpOnly)
			return cookie
		}
	}
	t.Fatal("login response missing session cookie")
	return nil
}

func TestHealth(t *testing.T) {
	t.Parallel()
	handler, _, _ := setupServer(t, nil)

	w := doJSON(t, handler, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, "ready", body["bot"])
}

func TestSubmitReport(t *testing.T) {
	t.Parallel()
	handler, notifier, _ := setupServer(t, nil)

	w := doJSON(t, handler, http.MethodPost, "/report", validReportBody(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(1), body["report_id"])

	require.Len(t, notifier.sent(), 1)
	notification := notifier.sent()[0]
	assert.Equal(t, int64(1), notification.ReportID)
	assert.Equal(t, "Exploiting", notification.AbuseType)
	assert.Equal(t, int64(1), notification.TotalReports)
	assert.Equal(t, int64(1), notification.Stats.Reports24h, "counts the report being delivered")
	assert.Equal(t, int64(1), notification.Stats.ReporterTotal)
	assert.Empty(t, notification.Stats.TimeSinceLast, "first report has no history")
}

func TestSubmitIdenticalReportsBothPersist(t *testing.T) {
	t.Parallel()
	handler, notifier, _ := setupServer(t, nil)

	body := validReportBody()
	first := doJSON(t, handler, http.MethodPost, "/report", body, nil)
	second := doJSON(t, handler, http.MethodPost, "/report", body, nil)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, float64(1), decodeBody(t, first)["report_id"])
	assert.Equal(t, float64(2), decodeBody(t, second)["report_id"])
	assert.Len(t, notifier.sent(), 2)
}

func TestSubmitReportValidation(t *testing.T) {
	t.Parallel()
	handler, notifier, _ := setupServer(t, nil)

	tests := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{
			name:        "malformed JSON",
			body:        "{not json",
			wantMessage: "Invalid data format",
		},
		{
			name:        "missing subjects",
			body:        `{"abuseType":"Exploiting"}`,
			wantMessage: "Invalid reporter or reported data",
		},
		{
			name:        "bad reporter id",
			body:        `{"reporter":{"userId":0},"reported":{"userId":200}}`,
			wantMessage: "Invalid reporter user ID",
		},
		{
			name:        "oversized abuse type",
			body:        `{"reporter":{"userId":100},"reported":{"userId":200},"abuseType":"` + strings.Repeat("a", 101) + `"}`,
			wantMessage: "Invalid abuse type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, handler, http.MethodPost, "/report", tt.body, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantMessage, decodeBody(t, w)["message"])
		})
	}

	assert.Empty(t, notifier.sent(), "rejected reports must not notify")
}

func TestSubmitReportAPIKey(t *testing.T) {
	t.Parallel()
	handler, _, _ := setupServer(t, func(cfg *config.Config) {
		cfg.Ingest.APIKey = "secret-key"
	})
	body := validReportBody()

	w := doJSON(t, handler, http.MethodPost, "/report", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, handler, http.MethodPost, "/report", body, func(req *http.Request) {
		req.Header.Set("X-API-Key", "wrong")
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, handler, http.MethodPost, "/report", body, func(req *http.Request) {
		req.Header.Set("X-API-Key", "secret-key")
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSubmitReportRateLimited(t *testing.T) {
	t.Parallel()
	handler, _, _ := setupServer(t, func(cfg *config.Config) {
		cfg.RateLimit.Requests = 3
	})
	body := validReportBody()

	for i := range 3 {
		w := doJSON(t, handler, http.MethodPost, "/report", body, nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d within limit", i+1)
	}

	w := doJSON(t, handler, http.MethodPost, "/report", body, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "Rate limit exceeded", decodeBody(t, w)["message"])

	// Health is exempt from the report rate limit.
	health := doJSON(t, handler, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestSubmitReportNotifyFailureKeepsReport(t *testing.T) {
	t.Parallel()
	handler, notifier, client := setupServer(t, nil)
	notifier.fail = true

	w := doJSON(t, handler, http.MethodPost, "/report", validReportBody(), nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	reports, err := client.Reports().ListRecent(t.Context(), 10)
	require.NoError(t, err)
	assert.Len(t, reports, 1, "report survives the notification failure")
}

func TestAdminLogin(t *testing.T) {
	t.Parallel()
	handler, _, _ := setupServer(t, nil)

	w := doJSON(t, handler, http.MethodPost, "/admin/login", `{"password":"wrong"}`, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid password", decodeBody(t, w)["message"])

	cookie := login(t, handler, "hunter2")
	assert.NotEmpty(t, cookie.Value)
}

func TestAdminCheck(t *testing.T) {
	t.Parallel()
	handler, _, _ := setupServer(t, nil)

	w := doJSON(t, handler, http.MethodGet, "/admin/check", "", nil)
	require.Equal(t, http.StatusOK, w.Code, "check is reachable without a session")
	assert.Equal(t, false, decodeBody(t, w)["authenticated"])

	cookie := login(t, handler, "hunter2")
	w = doJSON(t, handler, http.MethodGet, "/admin/check", "", func(req *http.Request) {
		req.AddCookie(cookie)
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["authenticated"])
}

func TestAdminLogoutRevokesSession(t *testing.T) {
	t.Parallel()
	handler, _, _ := setupServer(t, nil)

	cookie := login(t, handler, "hunter2")

	w := doJSON(t, handler, http.MethodPost, "/admin/logout", "", func(req *http.Request) {
		req.AddCookie(cookie)
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, handler, http.MethodGet, "/admin/admins", "", func(req *http.Request) {
		req.AddCookie(cookie)
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "revoked session is dead immediately")
}

func TestAdminRoutesRequireSession(t *testing.T) {
	t.Parallel()
	handler, _, _ := setupServer(t, nil)

	gated := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/admin/admins"},
		{http.MethodPost, "/admin/admins"},
		{http.MethodDelete, "/admin/admins/123"},
		{http.MethodGet, "/admin/reports"},
		{http.MethodGet, "/admin/reports/200"},
		{http.MethodGet, "/admin/search?q=exploit"},
		{http.MethodGet, "/api/dashboard"},
	}

	for _, route := range gated {
		w := doJSON(t, handler, route.method, route.path, "", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, "%s %s must be gated", route.method, route.path)
		assert.Equal(t, "Unauthorized", decodeBody(t, w)["message"])
	}
}

func TestAdminManagement(t *testing.T) {
	t.Parallel()
	handler, _, _ := setupServer(t, nil)
	cookie := login(t, handler, "hunter2")

	withSession := func(req *http.Request) { req.AddCookie(cookie) }

	w := doJSON(t, handler, http.MethodPost, "/admin/admins", `{"user_id":"not-a-number"}`, withSession)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid user ID", decodeBody(t, w)["message"])

	w = doJSON(t, handler, http.MethodPost, "/admin/admins", `{"user_id":"123456789012345678"}`, withSession)
	require.Equal(t, http.StatusOK, w.Code)

	// Re-adding succeeds without effect.
	w = doJSON(t, handler, http.MethodPost, "/admin/admins", `{"user_id":"123456789012345678"}`, withSession)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, handler, http.MethodGet, "/admin/admins", "", withSession)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["admins"], 1)

	w = doJSON(t, handler, http.MethodDelete, "/admin/admins/123456789012345678", "", withSession)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, handler, http.MethodDelete, "/admin/admins/123456789012345678", "", withSession)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Admin not found", decodeBody(t, w)["message"])
}

func TestAdminAddAcceptsNumericUserID(t *testing.T) {
	t.Parallel()
	handler, _, _ := setupServer(t, nil)
	cookie := login(t, handler, "hunter2")
	withSession := func(req *http.Request) { req.AddCookie(cookie) }

	// Panels send the id as a string; bot integrations send the raw
	// integer. Both forms must be accepted.
	w := doJSON(t, handler, http.MethodPost, "/admin/admins", `{"user_id":123456789012345678}`, withSession)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", decodeBody(t, w)["status"])

	w = doJSON(t, handler, http.MethodGet, "/admin/admins", "", withSession)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["admins"], 1)

	w = doJSON(t, handler, http.MethodDelete, "/admin/admins/123456789012345678", "", withSession)
	assert.Equal(t, http.StatusOK, w.Code, "numeric and string forms address the same admin")
}

func TestAdminReportQueries(t *testing.T) {
	t.Parallel()
	handler, _, _ := setupServer(t, nil)
	cookie := login(t, handler, "hunter2")
	withSession := func(req *http.Request) { req.AddCookie(cookie) }

	w := doJSON(t, handler, http.MethodPost, "/report", validReportBody(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, handler, http.MethodGet, "/admin/reports", "", withSession)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["reports"], 1)

	w = doJSON(t, handler, http.MethodGet, "/admin/reports/200", "", withSession)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["reports"], 1)

	w = doJSON(t, handler, http.MethodGet, "/admin/reports/999", "", withSession)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["reports"])

	w = doJSON(t, handler, http.MethodGet, "/admin/search?q=exploit", "", withSession)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["reports"], 1)

	w = doJSON(t, handler, http.MethodGet, "/admin/search?q=", "", withSession)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing search query", decodeBody(t, w)["message"])
}

func TestDashboard(t *testing.T) {
	t.Parallel()
	handler, _, _ := setupServer(t, nil)
	cookie := login(t, handler, "hunter2")

	w := doJSON(t, handler, http.MethodPost, "/report", validReportBody(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, handler, http.MethodGet, "/api/dashboard", "", func(req *http.Request) {
		req.AddCookie(cookie)
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	reportStats, ok := body["report_stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), reportStats["total_reports"])
	assert.Len(t, body["most_reported"], 1)
	assert.Len(t, body["recent_reports"], 1)
	assert.Nil(t, body["game_stats"], "no catalog configured")
}
