package repo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"boss-timer-bot/internal/domain"
)

// timerEntry: сериализованная запись таймера в документе скоупа.
type timerEntry struct {
	Kind         string      `json:"kind"`
	Target       string      `json:"target"`
	Slots        []slotEntry `json:"slots,omitempty"`
	KilledAt     string      `json:"killed_at,omitempty"`
	RespawnHours int         `json:"respawn_hours,omitempty"`
	Warned       bool        `json:"warned"`
	Announced    bool        `json:"announced"`
	Locked       bool        `json:"locked"`
}

type slotEntry struct {
	Day  string `json:"day"`
	Time string `json:"time"`
}

// EncodeTimers сериализует документ скоупа в JSON с абсолютными метками времени.
func EncodeTimers(timers domain.TimerMap) ([]byte, error) {
	doc := make(map[string]timerEntry, len(timers))
	for name, rec := range timers {
		if !rec.Kind.Valid() {
			return nil, fmt.Errorf("encode %s: unknown kind %q", name, rec.Kind)
		}
		entry := timerEntry{
			Kind:         string(rec.Kind),
			Target:       rec.Target.Format(time.RFC3339Nano),
			RespawnHours: rec.RespawnHours,
			Warned:       rec.Warned,
			Announced:    rec.Announced,
			Locked:       rec.Locked,
		}
		if !rec.KilledAt.IsZero() {
			entry.KilledAt = rec.KilledAt.Format(time.RFC3339Nano)
		}
		for _, slot := range rec.Slots {
			entry.Slots = append(entry.Slots, slotEntry{Day: strings.ToLower(slot.Weekday.String()), Time: slot.At.String()})
		}
		doc[domain.NormalizeBossName(name)] = entry
	}
	return json.MarshalIndent(doc, "", "    ")
}

// DecodeTimers разбирает документ скоупа. Пустой документ даёт пустую карту.
// Любая ошибка формата оборачивается в domain.ErrPersistenceCorrupt.
func DecodeTimers(data []byte, loc *time.Location) (domain.TimerMap, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return domain.TimerMap{}, nil
	}
	var doc map[string]timerEntry
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceCorrupt, err)
	}
	timers := make(domain.TimerMap, len(doc))
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rec, err := decodeEntry(doc[name], loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrPersistenceCorrupt, name, err)
		}
		timers[domain.NormalizeBossName(name)] = rec
	}
	return timers, nil
}

func decodeEntry(entry timerEntry, loc *time.Location) (domain.TimerRecord, error) {
	kind := domain.TimerKind(entry.Kind)
	if !kind.Valid() {
		return domain.TimerRecord{}, fmt.Errorf("unknown kind %q", entry.Kind)
	}
	target, err := parseInstant(entry.Target, loc)
	if err != nil {
		return domain.TimerRecord{}, fmt.Errorf("target: %w", err)
	}
	rec := domain.TimerRecord{
		Kind:         kind,
		Target:       target,
		RespawnHours: entry.RespawnHours,
		Warned:       entry.Warned,
		Announced:    entry.Announced,
		Locked:       entry.Locked,
	}
	if entry.KilledAt != "" {
		if rec.KilledAt, err = parseInstant(entry.KilledAt, loc); err != nil {
			return domain.TimerRecord{}, fmt.Errorf("killed_at: %w", err)
		}
	}
	for _, s := range entry.Slots {
		day, err := domain.ParseWeekday(s.Day)
		if err != nil {
			return domain.TimerRecord{}, err
		}
		at, err := domain.ParseTimeOfDay(s.Time)
		if err != nil {
			return domain.TimerRecord{}, err
		}
		rec.Slots = append(rec.Slots, domain.Slot{Weekday: day, At: at})
	}
	return rec, nil
}

func parseInstant(raw string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t, nil
}
