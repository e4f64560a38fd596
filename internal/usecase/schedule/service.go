package schedule

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/usecase/spawn"
	"boss-timer-bot/internal/usecase/timers"
)

const (
	// DefaultHorizonDays: сегодня и завтра.
	DefaultHorizonDays = 2
	// MaxHorizonDays ограничивает горизонт расписания неделей.
	MaxHorizonDays = 7
)

// Authorizer проверяет, разрешён ли скоуп.
type Authorizer interface {
	Allows(scope domain.Scope) bool
}

// Ack подтверждает запись убийства.
type Ack struct {
	Boss   string
	Record domain.TimerRecord
}

// Entry описывает строку расписания.
type Entry struct {
	Boss    string
	Kind    domain.TimerKind
	SpawnAt time.Time
	// Spawned: момент появления уже наступил.
	Spawned bool
}

// Schedule хранит упорядоченное расписание скоупа на горизонт в днях.
type Schedule struct {
	Now     time.Time
	Days    int
	Entries []Entry
}

// Service обрабатывает команды убийства и запросы расписания.
type Service struct {
	rules  domain.RuleTable
	calc   *spawn.Calculator
	timers *timers.Store
	allow  Authorizer
	log    zerolog.Logger
}

// NewService создаёт сервис. allow == nil разрешает любой скоуп (операторский CLI).
func NewService(rules domain.RuleTable, calc *spawn.Calculator, store *timers.Store, allow Authorizer, logger zerolog.Logger) *Service {
	return &Service{
		rules:  rules,
		calc:   calc,
		timers: store,
		allow:  allow,
		log:    logger.With().Str("component", "schedule").Logger(),
	}
}

// Rules возвращает таблицу правил.
func (s *Service) Rules() domain.RuleTable {
	return s.rules
}

// Allowed сообщает, обслуживается ли скоуп.
func (s *Service) Allowed(scope domain.Scope) bool {
	return s.allow == nil || s.allow.Allows(scope)
}

// SetKill записывает убийство босса и полностью заменяет его запись.
// При ошибке проверки состояние скоупа не меняется.
func (s *Service) SetKill(ctx context.Context, scope domain.Scope, boss, killTime string) (Ack, error) {
	if !s.Allowed(scope) {
		return Ack{}, fmt.Errorf("%w: %s", domain.ErrScopeNotAllowed, scope)
	}
	rule, ok := s.rules.Lookup(boss)
	if !ok {
		return Ack{}, fmt.Errorf("%w: %q", domain.ErrUnknownBoss, boss)
	}
	rec, err := s.calc.NewRecord(rule, killTime)
	if err != nil {
		return Ack{}, err
	}
	_, err = s.timers.Update(ctx, scope, func(m domain.TimerMap) (bool, error) {
		m[rule.Name] = rec
		return true, nil
	})
	if err != nil {
		return Ack{}, fmt.Errorf("сохранение убийства: %w", err)
	}
	s.log.Info().
		Str("scope", scope.Key()).
		Str("boss", rule.Name).
		Time("target", rec.Target).
		Msg("убийство записано")
	return Ack{Boss: rule.Name, Record: rec}, nil
}

// QuerySchedule возвращает появления на horizonDays гражданских дней начиная с сегодня.
// Отсутствующие недельные боссы создаются и сохраняются при первом запросе.
func (s *Service) QuerySchedule(ctx context.Context, scope domain.Scope, horizonDays int) (Schedule, error) {
	if !s.Allowed(scope) {
		return Schedule{}, fmt.Errorf("%w: %s", domain.ErrScopeNotAllowed, scope)
	}
	horizonDays = ClampHorizon(horizonDays)
	current, err := s.timers.Update(ctx, scope, func(m domain.TimerMap) (bool, error) {
		changed := false
		for _, rule := range s.rules.Weekly() {
			if _, ok := m[rule.Name]; ok {
				continue
			}
			rec, err := s.calc.Materialize(rule)
			if err != nil {
				s.log.Error().Err(err).Str("boss", rule.Name).Msg("не удалось посчитать недельный слот")
				continue
			}
			m[rule.Name] = rec
			changed = true
		}
		return changed, nil
	})
	if err != nil {
		return Schedule{}, fmt.Errorf("загрузка расписания: %w", err)
	}

	now := s.calc.Now()
	loc := s.calc.Location()
	year, month, day := now.Date()
	from := time.Date(year, month, day, 0, 0, 0, 0, loc)
	until := time.Date(year, month, day+horizonDays, 0, 0, 0, 0, loc)

	out := Schedule{Now: now, Days: horizonDays}
	for name, rec := range current {
		at := rec.Target.In(loc)
		if at.Before(from) || !at.Before(until) {
			continue
		}
		out.Entries = append(out.Entries, Entry{
			Boss:    name,
			Kind:    rec.Kind,
			SpawnAt: at,
			Spawned: !at.After(now),
		})
	}
	sort.Slice(out.Entries, func(i, j int) bool {
		if !out.Entries[i].SpawnAt.Equal(out.Entries[j].SpawnAt) {
			return out.Entries[i].SpawnAt.Before(out.Entries[j].SpawnAt)
		}
		return out.Entries[i].Boss < out.Entries[j].Boss
	})
	return out, nil
}

// Clear удаляет все таймеры скоупа.
func (s *Service) Clear(ctx context.Context, scope domain.Scope) error {
	return s.timers.Clear(ctx, scope)
}

// ClampHorizon приводит горизонт к диапазону 1..MaxHorizonDays; 0 и меньше дают значение по умолчанию.
func ClampHorizon(days int) int {
	switch {
	case days <= 0:
		return DefaultHorizonDays
	case days > MaxHorizonDays:
		return MaxHorizonDays
	default:
		return days
	}
}
