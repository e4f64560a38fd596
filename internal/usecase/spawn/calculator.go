// Package spawn вычисляет моменты появления боссов.
package spawn

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/clock"
)

// ErrNoSlot возвращается, если у недельного правила нет ни одного пригодного слота.
var ErrNoSlot = errors.New("weekly rule has no usable slot")

// weeklyScanDays: сколько календарных дней просматривать, начиная с даты отсчёта.
// Восьмой день покрывает слот в тот же день недели ровно через неделю.
const weeklyScanDays = 8

// Calculator считает моменты респавна в часовом поясе часов.
type Calculator struct {
	clock domain.Clock
}

// NewCalculator создаёт калькулятор.
func NewCalculator(c domain.Clock) *Calculator {
	return &Calculator{clock: c}
}

// Now возвращает текущее время в гражданском часовом поясе.
func (c *Calculator) Now() time.Time {
	return c.clock.Now().In(c.clock.Location())
}

// Location возвращает часовой пояс расчётов.
func (c *Calculator) Location() *time.Location {
	return c.clock.Location()
}

// KillInstant определяет момент убийства по необязательному ЧЧ:ММ.
func (c *Calculator) KillInstant(raw string) (time.Time, error) {
	return ResolveKillInstant(c.Now(), raw)
}

// NextWeekly возвращает ближайший слот строго после ref.
func (c *Calculator) NextWeekly(slots []domain.Slot, ref time.Time) (time.Time, error) {
	return NextWeeklySpawn(slots, ref.In(c.clock.Location()))
}

// NewRecord строит свежую запись таймера для события убийства.
// killTime проверяется и для недельных боссов, но их цель считается от текущего момента.
func (c *Calculator) NewRecord(rule domain.Rule, killTime string) (domain.TimerRecord, error) {
	kill, err := c.KillInstant(killTime)
	if err != nil {
		return domain.TimerRecord{}, err
	}
	switch rule.Kind {
	case domain.TimerDuration:
		return domain.TimerRecord{
			Kind:         domain.TimerDuration,
			Target:       DurationSpawn(kill, rule.Hours),
			KilledAt:     kill,
			RespawnHours: rule.Hours,
		}, nil
	case domain.TimerWeekly:
		return c.Materialize(rule)
	default:
		return domain.TimerRecord{}, fmt.Errorf("%w: %s: unknown kind %q", domain.ErrInvalidRule, rule.Name, rule.Kind)
	}
}

// Materialize создаёт запись недельного босса с ближайшим слотом после текущего момента.
func (c *Calculator) Materialize(rule domain.Rule) (domain.TimerRecord, error) {
	if rule.Kind != domain.TimerWeekly {
		return domain.TimerRecord{}, fmt.Errorf("%w: %s is not a weekly boss", domain.ErrInvalidRule, rule.Name)
	}
	next, err := c.NextWeekly(rule.Slots, c.Now())
	if err != nil {
		return domain.TimerRecord{}, fmt.Errorf("%s: %w", rule.Name, err)
	}
	return domain.TimerRecord{
		Kind:   domain.TimerWeekly,
		Target: next,
		Slots:  append([]domain.Slot(nil), rule.Slots...),
	}, nil
}

// DurationSpawn возвращает kill + hours.
func DurationSpawn(kill time.Time, hours int) time.Time {
	return kill.Add(time.Duration(hours) * time.Hour)
}

// ResolveKillInstant возвращает now, если время не указано, иначе указанное время
// на сегодняшнюю дату, откатанное на сутки назад, если оно ещё не наступило.
func ResolveKillInstant(now time.Time, raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return now, nil
	}
	tod, err := domain.ParseTimeOfDay(raw)
	if err != nil {
		return time.Time{}, err
	}
	loc := now.Location()
	year, month, day := now.Date()
	kill, err := clock.Wall(loc, year, month, day, tod)
	if err != nil {
		return time.Time{}, err
	}
	if !kill.After(now) {
		return kill, nil
	}
	year, month, day = time.Date(year, month, day-1, 12, 0, 0, 0, loc).Date()
	return clock.Wall(loc, year, month, day, tod)
}

// NextWeeklySpawn возвращает самый ранний момент слота строго после ref,
// просматривая weeklyScanDays дней с даты ref в её часовом поясе.
func NextWeeklySpawn(slots []domain.Slot, ref time.Time) (time.Time, error) {
	loc := ref.Location()
	year, month, day := ref.Date()
	usable := 0
	for offset := 0; offset < weeklyScanDays; offset++ {
		date := time.Date(year, month, day+offset, 12, 0, 0, 0, loc)
		var best time.Time
		for _, slot := range slots {
			if !slot.Valid() {
				continue
			}
			usable++
			if slot.Weekday != date.Weekday() {
				continue
			}
			candidate, err := clock.Wall(loc, date.Year(), date.Month(), date.Day(), slot.At)
			if err != nil {
				return time.Time{}, err
			}
			if candidate.After(ref) && (best.IsZero() || candidate.Before(best)) {
				best = candidate
			}
		}
		if !best.IsZero() {
			return best, nil
		}
		if usable == 0 {
			break
		}
	}
	return time.Time{}, ErrNoSlot
}
