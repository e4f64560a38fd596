// Package httpapi реализует HTTP-вход для вебхука Telegram и REST-команд таймеров.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/metrics"
	"boss-timer-bot/internal/usecase/schedule"
)

// UpdateHandler обрабатывает апдейты Telegram.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd tgbotapi.Update)
}

// Handler обслуживает HTTP API.
type Handler struct {
	scheduleUC *schedule.Service
	updates    UpdateHandler
	log        zerolog.Logger
}

// NewHandler создаёт обработчик. updates == nil отключает вебхук.
func NewHandler(scheduleUC *schedule.Service, updates UpdateHandler, logger zerolog.Logger) *Handler {
	return &Handler{scheduleUC: scheduleUC, updates: updates, log: logger.With().Str("component", "httpapi").Logger()}
}

// Mount регистрирует маршруты.
func (h *Handler) Mount(r chi.Router) {
	if h.updates != nil {
		r.Post("/bot/webhook", h.webhook)
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/bosses", h.bosses)
		r.Route("/scopes/{guild}/{channel}", func(r chi.Router) {
			r.Post("/kills", h.setKill)
			r.Get("/schedule", h.schedule)
		})
	})
}

type killRequest struct {
	Boss string `json:"boss"`
	Time string `json:"time"`
}

type timerResponse struct {
	Boss         string     `json:"boss"`
	Kind         string     `json:"kind"`
	Target       time.Time  `json:"target"`
	KilledAt     *time.Time `json:"killed_at,omitempty"`
	RespawnHours int        `json:"respawn_hours,omitempty"`
	Slots        []string   `json:"slots,omitempty"`
}

type scheduleEntry struct {
	Boss    string    `json:"boss"`
	Kind    string    `json:"kind"`
	SpawnAt time.Time `json:"spawn_at"`
	Spawned bool      `json:"spawned"`
}

type scheduleResponse struct {
	Now     time.Time       `json:"now"`
	Days    int             `json:"days"`
	Entries []scheduleEntry `json:"entries"`
}

type ruleResponse struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	RespawnHours int      `json:"respawn_hours,omitempty"`
	Slots        []string `json:"slots,omitempty"`
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.updates.HandleUpdate(r.Context(), update)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) setKill(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req killRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ack, err := h.scheduleUC.SetKill(r.Context(), scope, req.Boss, req.Time)
	metrics.IncCommand("setkill", err)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	rec := ack.Record
	resp := timerResponse{
		Boss:         ack.Boss,
		Kind:         string(rec.Kind),
		Target:       rec.Target,
		RespawnHours: rec.RespawnHours,
	}
	if !rec.KilledAt.IsZero() {
		killed := rec.KilledAt
		resp.KilledAt = &killed
	}
	for _, slot := range rec.Slots {
		resp.Slots = append(resp.Slots, slot.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		if days, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("days must be an integer"))
			return
		}
	}
	sched, err := h.scheduleUC.QuerySchedule(r.Context(), scope, days)
	metrics.IncCommand("schedule", err)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	resp := scheduleResponse{Now: sched.Now, Days: sched.Days, Entries: make([]scheduleEntry, 0, len(sched.Entries))}
	for _, e := range sched.Entries {
		resp.Entries = append(resp.Entries, scheduleEntry{Boss: e.Boss, Kind: string(e.Kind), SpawnAt: e.SpawnAt, Spawned: e.Spawned})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) bosses(w http.ResponseWriter, _ *http.Request) {
	rules := h.scheduleUC.Rules().Rules()
	resp := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		item := ruleResponse{Name: rule.Name, Kind: string(rule.Kind), RespawnHours: rule.Hours}
		for _, slot := range rule.Slots {
			item.Slots = append(item.Slots, slot.String())
		}
		resp = append(resp, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidTimeFormat):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrUnknownBoss):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrScopeNotAllowed):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, domain.ErrTimezoneAmbiguity):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		h.log.Error().Err(err).Msg("внутренняя ошибка API")
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func scopeFromPath(r *http.Request) (domain.Scope, error) {
	return domain.ParseScope(chi.URLParam(r, "guild") + ":" + chi.URLParam(r, "channel"))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
