package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimerKind описывает тип таймера (и правила) респавна.
type TimerKind string

const (
	// TimerDuration — босс появляется через фиксированное число часов после убийства.
	TimerDuration TimerKind = "duration"
	// TimerWeekly — босс появляется по недельному расписанию.
	TimerWeekly TimerKind = "weekly"
)

// Valid сообщает, известен ли тип.
func (k TimerKind) Valid() bool {
	return k == TimerDuration || k == TimerWeekly
}

// Scope задаёт единицу изолированного состояния таймеров: гильдия (чат) и канал.
// ChannelID == 0 означает весь чат целиком.
type Scope struct {
	GuildID   int64
	ChannelID int64
}

// Key возвращает стабильный строковый ключ скоупа для хранилищ.
func (s Scope) Key() string {
	return strconv.FormatInt(s.GuildID, 10) + ":" + strconv.FormatInt(s.ChannelID, 10)
}

func (s Scope) String() string {
	return s.Key()
}

// ParseScope разбирает "guild" или "guild:channel".
func ParseScope(raw string) (Scope, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Scope{}, fmt.Errorf("%w: empty", ErrInvalidScope)
	}
	guildPart, channelPart, hasChannel := strings.Cut(trimmed, ":")
	guild, err := strconv.ParseInt(strings.TrimSpace(guildPart), 10, 64)
	if err != nil {
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, raw)
	}
	scope := Scope{GuildID: guild}
	if hasChannel {
		channel, err := strconv.ParseInt(strings.TrimSpace(channelPart), 10, 64)
		if err != nil {
			return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, raw)
		}
		scope.ChannelID = channel
	}
	return scope, nil
}

// TimerRecord хранит состояние таймера одного босса в одном скоупе.
type TimerRecord struct {
	Kind TimerKind
	// Target: следующий (или последний наступивший) момент появления.
	Target time.Time
	// Slots: копия слотов правила, только для TimerWeekly.
	Slots []Slot
	// KilledAt и RespawnHours заполняются только для TimerDuration.
	KilledAt     time.Time
	RespawnHours int

	Warned    bool
	Announced bool
	Locked    bool
}

// Clone возвращает копию записи, не разделяющую слайс слотов.
func (r TimerRecord) Clone() TimerRecord {
	out := r
	if r.Slots != nil {
		out.Slots = append([]Slot(nil), r.Slots...)
	}
	return out
}

// Equal сравнивает записи по моментам времени, а не по представлению location.
func (r TimerRecord) Equal(o TimerRecord) bool {
	if r.Kind != o.Kind || r.RespawnHours != o.RespawnHours {
		return false
	}
	if r.Warned != o.Warned || r.Announced != o.Announced || r.Locked != o.Locked {
		return false
	}
	if !r.Target.Equal(o.Target) || !r.KilledAt.Equal(o.KilledAt) {
		return false
	}
	if len(r.Slots) != len(o.Slots) {
		return false
	}
	for i := range r.Slots {
		if r.Slots[i] != o.Slots[i] {
			return false
		}
	}
	return true
}

// TimerMap хранит документ скоупа: имя босса в нижнем регистре -> запись.
type TimerMap map[string]TimerRecord

// Clone делает глубокую копию документа.
func (m TimerMap) Clone() TimerMap {
	out := make(TimerMap, len(m))
	for name, rec := range m {
		out[name] = rec.Clone()
	}
	return out
}

// Equal сравнивает два документа.
func (m TimerMap) Equal(o TimerMap) bool {
	if len(m) != len(o) {
		return false
	}
	for name, rec := range m {
		other, ok := o[name]
		if !ok || !rec.Equal(other) {
			return false
		}
	}
	return true
}

// NormalizeBossName приводит имя босса к ключу документа.
func NormalizeBossName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
