// Package notify содержит машину состояний уведомлений о респавне.
// Машина не выполняет ввода-вывода: она только переводит запись и
// возвращает запросы на уведомления.
package notify

import (
	"sort"
	"time"

	"boss-timer-bot/internal/domain"
)

// Config задаёт пороги машины состояний.
type Config struct {
	// WarnWindow: за сколько до появления отправлять предупреждение.
	WarnWindow time.Duration
	// WarnTolerance расширяет окно предупреждения на джиттер тиков.
	WarnTolerance time.Duration
	// Grace: насколько поздно ещё можно объявить появление.
	Grace time.Duration
	// StaleUnlock: через сколько после появления снимается зависший lock.
	StaleUnlock time.Duration
}

// DefaultConfig возвращает стандартные пороги: 10 минут ±30 секунд, 2 минуты, 1 час.
func DefaultConfig() Config {
	return Config{
		WarnWindow:    10 * time.Minute,
		WarnTolerance: 30 * time.Second,
		Grace:         2 * time.Minute,
		StaleUnlock:   time.Hour,
	}
}

// WarnThreshold возвращает верхнюю границу окна предупреждения с учётом допуска.
func (c Config) WarnThreshold() time.Duration {
	return c.WarnWindow + c.WarnTolerance
}

// Rescheduler считает следующий недельный слот после появления босса.
type Rescheduler interface {
	NextWeekly(slots []domain.Slot, ref time.Time) (time.Time, error)
}

// Outcome описывает результат одного шага машины для одной записи.
type Outcome struct {
	Boss     string
	Record   domain.TimerRecord
	Requests []domain.NotificationRequest
	Changed  bool

	// Suppressed — появление наступило слишком давно, сообщение не отправляется.
	Suppressed bool
	// RolledOver — недельная запись перешла на следующий слот.
	RolledOver bool
	// RolloverErr — следующий слот посчитать не удалось, запись осталась заблокированной.
	RolloverErr error
	// Unlocked — сработала аварийная разблокировка.
	Unlocked bool
}

// Machine применяет таблицу переходов к записям таймеров.
type Machine struct {
	cfg  Config
	next Rescheduler
}

// NewMachine создаёт машину состояний.
func NewMachine(cfg Config, next Rescheduler) *Machine {
	return &Machine{cfg: cfg, next: next}
}

// Config возвращает пороги машины.
func (m *Machine) Config() Config {
	return m.cfg
}

// Step выполняет один тик для записи. Исходная запись не изменяется.
func (m *Machine) Step(boss string, rec domain.TimerRecord, now time.Time) Outcome {
	out := Outcome{Boss: boss, Record: rec.Clone()}
	r := &out.Record
	remaining := r.Target.Sub(now)
	threshold := m.cfg.WarnThreshold()

	if remaining > 0 && remaining <= threshold && !r.Warned {
		out.Requests = append(out.Requests, domain.NotificationRequest{Kind: domain.NotificationWarning, Boss: boss, Target: r.Target})
		r.Warned = true
	}

	if remaining > threshold {
		r.Warned = false
	}

	if remaining <= 0 && !r.Announced && !r.Locked {
		if remaining >= -m.cfg.Grace {
			out.Requests = append(out.Requests, domain.NotificationRequest{Kind: domain.NotificationSpawn, Boss: boss, Target: r.Target})
		} else {
			out.Suppressed = true
		}
		r.Announced = true
		r.Locked = true
		if r.Kind == domain.TimerWeekly {
			next, err := m.next.NextWeekly(r.Slots, now)
			if err != nil {
				out.RolloverErr = err
			} else {
				r.Target = next
				r.Warned = false
				r.Announced = false
				r.Locked = false
				out.RolledOver = true
			}
		}
	}

	if r.Locked && remaining < -m.cfg.StaleUnlock {
		r.Locked = false
		out.Unlocked = true
	}

	out.Changed = !out.Record.Equal(rec)
	return out
}

// Evaluate прогоняет шаг по всем записям скоупа в порядке имён.
// Возвращает новый документ, результаты по изменившимся или шумным записям и флаг изменений.
func (m *Machine) Evaluate(timers domain.TimerMap, now time.Time) (domain.TimerMap, []Outcome, bool) {
	names := make([]string, 0, len(timers))
	for name := range timers {
		names = append(names, name)
	}
	sort.Strings(names)

	updated := make(domain.TimerMap, len(timers))
	var outcomes []Outcome
	changed := false
	for _, name := range names {
		out := m.Step(name, timers[name], now)
		updated[name] = out.Record
		if out.Changed {
			changed = true
		}
		if out.Changed || len(out.Requests) > 0 || out.RolloverErr != nil {
			outcomes = append(outcomes, out)
		}
	}
	return updated, outcomes, changed
}
