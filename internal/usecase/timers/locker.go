package timers

import (
	"context"
	"sync"

	"boss-timer-bot/internal/domain"
)

// KeyedLocker блокирует скоуп внутри процесса.
// Разные скоупы не блокируют друг друга.
type KeyedLocker struct {
	mu    sync.Mutex
	slots map[domain.Scope]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

var _ domain.ScopeLocker = (*KeyedLocker)(nil)

// NewKeyedLocker создаёт пустой набор блокировок.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{slots: make(map[domain.Scope]*lockSlot)}
}

// Lock ждёт блокировку скоупа или отмену контекста.
func (l *KeyedLocker) Lock(ctx context.Context, scope domain.Scope) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[scope]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[scope] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(scope, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.release(scope, slot)
		})
	}, nil
}

func (l *KeyedLocker) release(scope domain.Scope, slot *lockSlot) {
	l.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, scope)
	}
	l.mu.Unlock()
}
