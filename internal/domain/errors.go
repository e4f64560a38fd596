package domain

import "errors"

var (
	// ErrInvalidTimeFormat — время не в формате ЧЧ:ММ (24 часа).
	ErrInvalidTimeFormat = errors.New("invalid time format, expected HH:MM")
	// ErrUnknownBoss — босса нет ни в одной таблице правил.
	ErrUnknownBoss = errors.New("unknown boss")
	// ErrTimezoneAmbiguity — локальное время не существует или неоднозначно в часовом поясе.
	ErrTimezoneAmbiguity = errors.New("local time is ambiguous or does not exist in timezone")
	// ErrPersistenceCorrupt — сохранённый документ скоупа не читается.
	ErrPersistenceCorrupt = errors.New("persisted timer document is corrupt")
	// ErrDeliveryFailure — уведомление не удалось доставить.
	ErrDeliveryFailure = errors.New("notification delivery failed")
	// ErrScopeNotAllowed — скоуп отсутствует в allow-list.
	ErrScopeNotAllowed = errors.New("scope is not allowed")
	// ErrInvalidRule — некорректное правило в таблице респавнов.
	ErrInvalidRule = errors.New("invalid respawn rule")
	// ErrInvalidScope — строка скоупа не разбирается.
	ErrInvalidScope = errors.New("invalid scope")
)
