package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"boss-timer-bot/internal/domain"
)

func sampleTimers(t *testing.T) (domain.TimerMap, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return domain.TimerMap{
		"venatus": {
			Kind:         domain.TimerDuration,
			Target:       time.Date(2025, time.November, 9, 0, 0, 0, 0, loc),
			KilledAt:     time.Date(2025, time.November, 8, 14, 0, 0, 123456789, loc),
			RespawnHours: 10,
			Warned:       true,
			Announced:    true,
			Locked:       true,
		},
		"auraq": {
			Kind:   domain.TimerWeekly,
			Target: time.Date(2025, time.November, 12, 21, 0, 0, 0, loc),
			Slots: []domain.Slot{
				{Weekday: time.Friday, At: domain.TimeOfDay{Hour: 22}},
				{Weekday: time.Wednesday, At: domain.TimeOfDay{Hour: 21}},
			},
		},
	}, loc
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	timers, loc := sampleTimers(t)
	data, err := EncodeTimers(timers)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeTimers(data, loc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(timers) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, timers)
	}
	if decoded["venatus"].Target.Location() != loc {
		t.Fatalf("decoded instants must be in the civil timezone")
	}
	if !strings.Contains(string(data), `"target": "2025-11-09T00:00:00+08:00"`) {
		t.Fatalf("expected absolute timestamp with offset, got %s", data)
	}
}

func TestDecodeEmptyAndCorrupt(t *testing.T) {
	_, loc := sampleTimers(t)
	for _, empty := range []string{"", "   \n"} {
		timers, err := DecodeTimers([]byte(empty), loc)
		if err != nil || len(timers) != 0 {
			t.Fatalf("empty payload %q: got %v, %v", empty, timers, err)
		}
	}
	corrupt := []string{
		`{"venatus":`,
		`[]`,
		`{"venatus":{"kind":"normal","target":"2025-11-09T00:00:00+08:00"}}`,
		`{"venatus":{"kind":"duration","target":"2025-11-09 00:00:00"}}`,
		`{"milavy":{"kind":"weekly","target":"2025-11-15T15:00:00+08:00","slots":[{"day":"funday","time":"15:00"}]}}`,
	}
	for _, payload := range corrupt {
		if _, err := DecodeTimers([]byte(payload), loc); !errors.Is(err, domain.ErrPersistenceCorrupt) {
			t.Fatalf("payload %s: expected ErrPersistenceCorrupt, got %v", payload, err)
		}
	}
}

func TestDecodeNormalizesBossNames(t *testing.T) {
	_, loc := sampleTimers(t)
	timers, err := DecodeTimers([]byte(`{"Venatus":{"kind":"duration","target":"2025-11-09T00:00:00+08:00","warned":false,"announced":false,"locked":false}}`), loc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := timers["venatus"]; !ok {
		t.Fatalf("expected lowercase key, got %v", timers)
	}
}

func TestFileStore(t *testing.T) {
	timers, loc := sampleTimers(t)
	dir := t.TempDir()
	store, err := NewFileStore(dir, loc)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	scope := domain.Scope{GuildID: 1429295248592601108, ChannelID: 7}

	empty, err := store.Load(ctx, scope)
	if err != nil || len(empty) != 0 {
		t.Fatalf("missing file must load as empty map: %v, %v", empty, err)
	}
	if err := store.Save(ctx, scope, timers); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "boss_data_1429295248592601108_7.json")); err != nil {
		t.Fatalf("expected scope file: %v", err)
	}
	loaded, err := store.Load(ctx, scope)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Equal(timers) {
		t.Fatalf("round trip mismatch")
	}
	other, err := store.Load(ctx, domain.Scope{GuildID: 1429295248592601108})
	if err != nil || len(other) != 0 {
		t.Fatalf("scopes must be isolated: %v, %v", other, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "boss_data_1.json"), []byte("{oops"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Load(ctx, domain.Scope{GuildID: 1}); !errors.Is(err, domain.ErrPersistenceCorrupt) {
		t.Fatalf("expected ErrPersistenceCorrupt, got %v", err)
	}

	if err := store.Clear(ctx, scope); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(ctx, scope); err != nil {
		t.Fatalf("second clear must be a no-op: %v", err)
	}
	cleared, err := store.Load(ctx, scope)
	if err != nil || len(cleared) != 0 {
		t.Fatalf("cleared scope must be empty: %v, %v", cleared, err)
	}
}

func TestMemoryStore(t *testing.T) {
	timers, loc := sampleTimers(t)
	store := NewMemory(loc)
	ctx := context.Background()
	scope := domain.Scope{GuildID: 5}
	if err := store.Save(ctx, scope, timers); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load(ctx, scope)
	if err != nil || !loaded.Equal(timers) {
		t.Fatalf("round trip mismatch: %v", err)
	}
	store.PutRaw(scope, []byte("not json"))
	if _, err := store.Load(ctx, scope); !errors.Is(err, domain.ErrPersistenceCorrupt) {
		t.Fatalf("expected ErrPersistenceCorrupt, got %v", err)
	}
}

func TestGormStoreSQLite(t *testing.T) {
	timers, loc := sampleTimers(t)
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "timers.db"), loc)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx := context.Background()
	scope := domain.Scope{GuildID: 9, ChannelID: 3}
	if err := store.Save(ctx, scope, timers); err != nil {
		t.Fatalf("save: %v", err)
	}
	updated := timers.Clone()
	rec := updated["venatus"]
	rec.Locked = false
	updated["venatus"] = rec
	if err := store.Save(ctx, scope, updated); err != nil {
		t.Fatalf("second save: %v", err)
	}
	loaded, err := store.Load(ctx, scope)
	if err != nil || !loaded.Equal(updated) {
		t.Fatalf("expected latest document, err=%v", err)
	}
	if err := store.Clear(ctx, scope); err != nil {
		t.Fatalf("clear: %v", err)
	}
	loaded, err = store.Load(ctx, scope)
	if err != nil || len(loaded) != 0 {
		t.Fatalf("expected empty after clear: %v, %v", loaded, err)
	}
}
