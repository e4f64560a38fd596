package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chi "github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"boss-timer-bot/internal/adapters/repo"
	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/clock"
	"boss-timer-bot/internal/usecase/schedule"
	"boss-timer-bot/internal/usecase/spawn"
	"boss-timer-bot/internal/usecase/timers"
)

type recordingUpdates struct {
	updates []tgbotapi.Update
}

func (r *recordingUpdates) HandleUpdate(_ context.Context, upd tgbotapi.Update) {
	r.updates = append(r.updates, upd)
}

func newRouter(t *testing.T) (http.Handler, *recordingUpdates) {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	rules, err := domain.NewRuleTable([]domain.Rule{
		{Name: "venatus", Kind: domain.TimerDuration, Hours: 10},
		{Name: "milavy", Kind: domain.TimerWeekly, Slots: []domain.Slot{{Weekday: time.Saturday, At: domain.TimeOfDay{Hour: 15}}}},
	})
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	fixed := clock.NewFixed(time.Date(2025, time.November, 8, 16, 30, 0, 0, loc))
	store := timers.NewStore(repo.NewMemory(loc), nil, zerolog.Nop())
	allow := domain.NewAllowList([]domain.Scope{{GuildID: 10}})
	svc := schedule.NewService(rules, spawn.NewCalculator(fixed), store, allow, zerolog.Nop())

	updates := &recordingUpdates{}
	r := chi.NewRouter()
	NewHandler(svc, updates, zerolog.Nop()).Mount(r)
	return r, updates
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSetKillEndpoint(t *testing.T) {
	h, _ := newRouter(t)
	rec := do(t, h, http.MethodPost, "/api/v1/scopes/10/0/kills", `{"boss":"venatus","time":"14:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var resp timerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Boss != "venatus" || resp.Kind != "duration" || resp.KilledAt == nil || resp.RespawnHours != 10 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !resp.Target.Equal(time.Date(2025, time.November, 8, 16, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected target %v", resp.Target)
	}
}

func TestSetKillEndpointErrors(t *testing.T) {
	h, _ := newRouter(t)
	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{name: "bad time", path: "/api/v1/scopes/10/0/kills", body: `{"boss":"venatus","time":"7pm"}`, code: http.StatusBadRequest},
		{name: "unknown boss", path: "/api/v1/scopes/10/0/kills", body: `{"boss":"gorgon"}`, code: http.StatusNotFound},
		{name: "foreign scope", path: "/api/v1/scopes/11/0/kills", body: `{"boss":"venatus"}`, code: http.StatusForbidden},
		{name: "unpolled channel", path: "/api/v1/scopes/10/3/kills", body: `{"boss":"venatus"}`, code: http.StatusForbidden},
		{name: "bad scope", path: "/api/v1/scopes/abc/0/kills", body: `{"boss":"venatus"}`, code: http.StatusBadRequest},
		{name: "bad json", path: "/api/v1/scopes/10/0/kills", body: `{`, code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestScheduleEndpoint(t *testing.T) {
	h, _ := newRouter(t)
	do(t, h, http.MethodPost, "/api/v1/scopes/10/0/kills", `{"boss":"venatus","time":"14:00"}`)

	rec := do(t, h, http.MethodGet, "/api/v1/scopes/10/0/schedule?days=7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var resp scheduleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Days != 7 || len(resp.Entries) != 1 || resp.Entries[0].Boss != "venatus" {
		t.Fatalf("unexpected schedule %+v", resp)
	}

	if rec := do(t, h, http.MethodGet, "/api/v1/scopes/10/0/schedule?days=x", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad days, got %d", rec.Code)
	}
}

func TestBossesEndpoint(t *testing.T) {
	h, _ := newRouter(t)
	rec := do(t, h, http.MethodGet, "/api/v1/bosses", "")
	var resp []ruleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp) != 2 || resp[0].Name != "venatus" || resp[1].Slots[0] != "Saturday 15:00" {
		t.Fatalf("unexpected rules %+v", resp)
	}
}

func TestWebhookForwardsUpdates(t *testing.T) {
	h, updates := newRouter(t)
	rec := do(t, h, http.MethodPost, "/bot/webhook", `{"update_id":7,"message":{"message_id":1,"text":"/help","chat":{"id":10,"type":"group"}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if len(updates.updates) != 1 || updates.updates[0].UpdateID != 7 {
		t.Fatalf("update not forwarded: %+v", updates.updates)
	}
	if rec := do(t, h, http.MethodPost, "/bot/webhook", `nope`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
