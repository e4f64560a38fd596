package timers

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/metrics"
)

// UpdateFunc изменяет документ скоупа на месте и сообщает, нужно ли его сохранить.
type UpdateFunc func(timers domain.TimerMap) (changed bool, err error)

// Store служит фасадом над хранилищем документов: восстановление повреждённых
// документов и сериализация load-modify-save по скоупу.
type Store struct {
	backend domain.TimerStore
	locker  domain.ScopeLocker
	log     zerolog.Logger
}

// NewStore создаёт фасад. Если locker == nil, используется KeyedLocker.
func NewStore(backend domain.TimerStore, locker domain.ScopeLocker, logger zerolog.Logger) *Store {
	if locker == nil {
		locker = NewKeyedLocker()
	}
	return &Store{
		backend: backend,
		locker:  locker,
		log:     logger.With().Str("component", "timers").Logger(),
	}
}

// Load читает документ без блокировки. Повреждённый документ заменяется пустым.
func (s *Store) Load(ctx context.Context, scope domain.Scope) (domain.TimerMap, error) {
	timers, err := s.backend.Load(ctx, scope)
	if errors.Is(err, domain.ErrPersistenceCorrupt) {
		metrics.PersistenceCorrupt.Inc()
		s.log.Warn().Err(err).Str("scope", scope.Key()).Msg("документ скоупа повреждён, начинаем с пустого")
		return domain.TimerMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", scope, err)
	}
	if timers == nil {
		timers = domain.TimerMap{}
	}
	return timers, nil
}

// Update выполняет load-modify-save под блокировкой скоупа и возвращает итоговый документ.
// Документ сохраняется, только если fn вернула changed == true и не вернула ошибку.
func (s *Store) Update(ctx context.Context, scope domain.Scope, fn UpdateFunc) (domain.TimerMap, error) {
	unlock, err := s.locker.Lock(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", scope, err)
	}
	defer unlock()

	timers, err := s.Load(ctx, scope)
	if err != nil {
		return nil, err
	}
	changed, err := fn(timers)
	if err != nil {
		return nil, err
	}
	if !changed {
		return timers, nil
	}
	if err := s.backend.Save(ctx, scope, timers); err != nil {
		return nil, fmt.Errorf("save %s: %w", scope, err)
	}
	return timers, nil
}

// Clear удаляет документ скоупа.
func (s *Store) Clear(ctx context.Context, scope domain.Scope) error {
	unlock, err := s.locker.Lock(ctx, scope)
	if err != nil {
		return fmt.Errorf("lock %s: %w", scope, err)
	}
	defer unlock()
	if err := s.backend.Clear(ctx, scope); err != nil {
		return fmt.Errorf("clear %s: %w", scope, err)
	}
	s.log.Info().Str("scope", scope.Key()).Msg("документ скоупа очищен")
	return nil
}
