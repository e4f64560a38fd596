package clock

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"boss-timer-bot/internal/domain"
)

// ErrInvalidTimezone возвращается, если указан некорректный часовой пояс.
var ErrInvalidTimezone = errors.New("invalid timezone")

// Zone отдаёт текущее время в фиксированном часовом поясе.
type Zone struct {
	loc *time.Location
}

var _ domain.Clock = (*Zone)(nil)

// NewZone создаёт часы для часового пояса по имени IANA.
func NewZone(name string) (*Zone, error) {
	loc, err := LoadLocation(name)
	if err != nil {
		return nil, err
	}
	return &Zone{loc: loc}, nil
}

// Now возвращает текущее время в часовом поясе без монотонной составляющей.
func (z *Zone) Now() time.Time {
	return time.Now().In(z.loc).Round(0)
}

// Location возвращает часовой пояс.
func (z *Zone) Location() *time.Location {
	return z.loc
}

// Fixed отдаёт управляемое время для тестов и CLI.
type Fixed struct {
	now time.Time
}

// NewFixed создаёт часы, всегда возвращающие now.
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

// Now возвращает зафиксированное время.
func (f *Fixed) Now() time.Time { return f.now }

// Location возвращает часовой пояс зафиксированного времени.
func (f *Fixed) Location() *time.Location { return f.now.Location() }

// Set переставляет время.
func (f *Fixed) Set(now time.Time) { f.now = now }

// Advance сдвигает время вперёд.
func (f *Fixed) Advance(d time.Duration) { f.now = f.now.Add(d) }

// LoadLocation загружает часовой пояс, нормализуя регистр и пробелы в имени.
func LoadLocation(raw string) (*time.Location, error) {
	name, err := normalizeTimezone(raw)
	if err != nil {
		return nil, err
	}
	return time.LoadLocation(name)
}

func normalizeTimezone(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", ErrInvalidTimezone
	}
	candidate = strings.ReplaceAll(candidate, " ", "_")
	if _, err := time.LoadLocation(candidate); err == nil {
		return candidate, nil
	}

	lower := strings.ToLower(candidate)
	parts := strings.Split(lower, "/")
	for i, part := range parts {
		segments := strings.Split(part, "_")
		for j, segment := range segments {
			pieces := strings.Split(segment, "-")
			for k, piece := range pieces {
				if piece == "" {
					continue
				}
				pieces[k] = strings.ToUpper(piece[:1]) + piece[1:]
			}
			segments[j] = strings.Join(pieces, "-")
		}
		parts[i] = strings.Join(segments, "_")
	}
	normalized := strings.Join(parts, "/")
	if _, err := time.LoadLocation(normalized); err == nil {
		return normalized, nil
	}
	return "", ErrInvalidTimezone
}

// Wall возвращает момент для локального времени на указанную дату в loc.
// Если такого времени нет (переход на летнее время) или оно встречается дважды
// (переход обратно), возвращается ErrTimezoneAmbiguity.
func Wall(loc *time.Location, year int, month time.Month, day int, tod domain.TimeOfDay) (time.Time, error) {
	t := time.Date(year, month, day, tod.Hour, tod.Minute, 0, 0, loc)
	if t.Hour() != tod.Hour || t.Minute() != tod.Minute || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d %s does not exist in %s", domain.ErrTimezoneAmbiguity, year, month, day, tod, loc)
	}
	_, offset := t.Zone()
	start, end := t.ZoneBounds()
	if !start.IsZero() {
		_, prevOffset := start.Add(-time.Second).Zone()
		shift := time.Duration(prevOffset-offset) * time.Second
		if shift > 0 && t.Sub(start) < shift {
			return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d %s occurs twice in %s", domain.ErrTimezoneAmbiguity, year, month, day, tod, loc)
		}
	}
	if !end.IsZero() {
		_, nextOffset := end.Zone()
		shift := time.Duration(offset-nextOffset) * time.Second
		if shift > 0 && end.Sub(t) <= shift {
			return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d %s occurs twice in %s", domain.ErrTimezoneAmbiguity, year, month, day, tod, loc)
		}
	}
	return t, nil
}
