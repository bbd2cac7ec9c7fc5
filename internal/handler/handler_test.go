package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/scheduler"
)

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 3600
	cfg.Scheduler.LoadExemptFacilitators = []string{"Tyler"}

	h, err := NewHandler(cfg, nil, nil, nil, catalog.Default())
	require.NoError(t, err)
	h.RegisterRoutes()

	return h
}

func (h *Handler) testCookie(t *testing.T, role domain.Role) *http.Cookie {
	t.Helper()

	ss, err := h.signToken(1, string(role), time.Now().Add(time.Hour))
	require.NoError(t, err)

	return &http.Cookie{Name: tokenCookieName, Value: ss}
}

func serve(h *Handler, req *http.Request) (*httptest.ResponseRecorder, testResponse) {
	rec := httptest.NewRecorder()
	h.Mux.ServeHTTP(rec, req)

	res := testResponse{}
	_ = json.Unmarshal(rec.Body.Bytes(), &res)
	return rec, res
}

func sampleEntries(c *domain.Catalog) []domain.ScheduleEntry {
	entries := make([]domain.ScheduleEntry, len(c.Activities))
	for i, a := range c.Activities {
		entries[i] = domain.ScheduleEntry{
			Activity:    a.ID,
			Room:        c.Rooms[i%len(c.Rooms)].Name,
			TimeSlot:    c.TimeSlots[i%len(c.TimeSlots)],
			Facilitator: c.Facilitators[i%len(c.Facilitators)],
		}
	}
	return entries
}

func TestAuthRequired(t *testing.T) {
	h := newTestHandler(t)

	_, res := serve(h, httptest.NewRequest(http.MethodGet, "/catalog", nil))
	assert.False(t, res.Success)
	assert.Equal(t, "用户未登录", res.Message)

	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: "garbage"})
	_, res = serve(h, req)
	assert.False(t, res.Success)
	assert.Equal(t, "无效的令牌", res.Message)
}

func TestGetCatalog(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.AddCookie(h.testCookie(t, domain.RoleViewer))
	rec, res := serve(h, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, res.Success, res.Message)

	got := domain.Catalog{}
	require.NoError(t, json.Unmarshal(res.Data, &got))
	assert.Equal(t, *catalog.Default(), got)
}

func TestEvaluateSchedule(t *testing.T) {
	h := newTestHandler(t)
	c := catalog.Default()
	entries := sampleEntries(c)

	body, err := json.Marshal(map[string]any{"entries": entries})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/schedules/evaluate", bytes.NewReader(body))
	req.AddCookie(h.testCookie(t, domain.RoleViewer))
	_, res := serve(h, req)
	require.True(t, res.Success, res.Message)

	evaluator, err := scheduler.NewEvaluator(c, []string{"Tyler"})
	require.NoError(t, err)
	ch, err := scheduler.ChromosomeFromEntries(c, entries)
	require.NoError(t, err)

	got := Evaluation{}
	require.NoError(t, json.Unmarshal(res.Data, &got))
	assert.InDelta(t, evaluator.Evaluate(ch), got.Fitness, 1e-9)
	assert.InDelta(t, got.Breakdown.Total(), got.Fitness, 1e-9)
}

func TestEvaluateScheduleRejectsInvalidInput(t *testing.T) {
	h := newTestHandler(t)
	c := catalog.Default()

	entries := sampleEntries(c)
	entries[0].Room = "Nowhere 000"

	cases := map[string]string{
		"unknown room":  mustJSON(t, map[string]any{"entries": entries}),
		"empty entries": `{"entries": []}`,
		"unknown field": `{"entries": [], "bogus": 1}`,
		"bad exemption": mustJSON(t, map[string]any{"entries": sampleEntries(c), "loadExemptFacilitators": []string{"Nobody"}}),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/schedules/evaluate", strings.NewReader(body))
			req.AddCookie(h.testCookie(t, domain.RoleViewer))
			_, res := serve(h, req)
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestViewerCannotCreateScheduleRun(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/schedule-runs", strings.NewReader(`{"name": "test"}`))
	req.AddCookie(h.testCookie(t, domain.RoleViewer))
	_, res := serve(h, req)

	assert.False(t, res.Success)
	assert.Equal(t, "权限不足", res.Message)
}

func TestLogoutClearsCookie(t *testing.T) {
	h := newTestHandler(t)

	rec, res := serve(h, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	require.True(t, res.Success)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, tokenCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
}

func TestGetScheduleRunReport(t *testing.T) {
	h := newTestHandler(t)
	run := &domain.ScheduleRun{
		ID:     3,
		Status: domain.RunStatusConverged,
		Entries: []domain.ScheduleEntry{
			{Activity: "SLA100A", Room: "Slater 003", TimeSlot: "10 AM", Facilitator: "Glen"},
		},
	}

	request := func(format string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/schedule-runs/3/report?format="+format, nil)
		req = req.WithContext(context.WithValue(req.Context(), ScheduleRunCtx, run))
		rec := httptest.NewRecorder()
		h.GetScheduleRunReport(rec, req)
		return rec
	}

	rec := request("")
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Best Schedule:\n\nSLA100A: Slater 003 @ 10 AM with Glen\n", rec.Body.String())

	rec = request("csv")
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "run_3_best_schedule.csv")
	assert.Contains(t, rec.Body.String(), "SLA100A,Slater 003,10 AM,Glen")

	rec = request("pdf")
	res := testResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Success)

	run.Entries = nil
	rec = request("")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Success)
}

func TestCancelFinishedScheduleRun(t *testing.T) {
	h := newTestHandler(t)
	run := &domain.ScheduleRun{ID: 3, Status: domain.RunStatusMaxGenerations}

	req := httptest.NewRequest(http.MethodPost, "/schedule-runs/3/cancel", nil)
	req = req.WithContext(context.WithValue(req.Context(), ScheduleRunCtx, run))
	rec := httptest.NewRecorder()
	h.CancelScheduleRun(rec, req)

	res := testResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Equal(t, "排课运行已结束", res.Message)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestInvalidPathID(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		path string
		want string
	}{
		{"/users/abc", "用户ID无效"},
		{"/schedule-runs/abc", "排课运行ID无效"},
		{"/schedule-runs/1.5/progress", "排课运行ID无效"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.AddCookie(h.testCookie(t, domain.RoleAdmin))
			_, res := serve(h, req)

			assert.False(t, res.Success)
			assert.Equal(t, tt.want, res.Message)
		})
	}
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	h := newTestHandler(t)
	ss, err := h.signToken(7, string(domain.RoleOperator), time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := h.parseToken(ss)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, string(domain.RoleOperator), claims.Role)

	other := newTestHandler(t)
	other.config.JWT.Secret = "another-secret"
	_, err = other.parseToken(ss)
	assert.Error(t, err)
}
