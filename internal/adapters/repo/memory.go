package repo

import (
	"context"
	"sync"
	"time"

	"boss-timer-bot/internal/domain"
)

// Memory хранит документы скоупов в памяти процесса (dev-режим и тесты).
// Документы хранятся в сериализованном виде, как в остальных хранилищах.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
	loc  *time.Location
}

var _ domain.TimerStore = (*Memory)(nil)

// NewMemory создаёт хранилище в памяти.
func NewMemory(loc *time.Location) *Memory {
	return &Memory{docs: make(map[string][]byte), loc: loc}
}

// Load реализует domain.TimerStore.
func (m *Memory) Load(_ context.Context, scope domain.Scope) (domain.TimerMap, error) {
	m.mu.RLock()
	data, ok := m.docs[scope.Key()]
	m.mu.RUnlock()
	if !ok {
		return domain.TimerMap{}, nil
	}
	return DecodeTimers(data, m.loc)
}

// Save реализует domain.TimerStore.
func (m *Memory) Save(_ context.Context, scope domain.Scope, timers domain.TimerMap) error {
	data, err := EncodeTimers(timers)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[scope.Key()] = data
	m.mu.Unlock()
	return nil
}

// Clear реализует domain.TimerStore.
func (m *Memory) Clear(_ context.Context, scope domain.Scope) error {
	m.mu.Lock()
	delete(m.docs, scope.Key())
	m.mu.Unlock()
	return nil
}

// PutRaw кладёт произвольные байты как документ скоупа.
func (m *Memory) PutRaw(scope domain.Scope, data []byte) {
	m.mu.Lock()
	m.docs[scope.Key()] = append([]byte(nil), data...)
	m.mu.Unlock()
}

// Location возвращает часовой пояс, в котором декодируются документы.
func (m *Memory) Location() *time.Location {
	return m.loc
}
