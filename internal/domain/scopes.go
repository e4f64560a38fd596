package domain

import (
	"context"
	"sort"
	"strings"
)

// AllowList хранит статический список скоупов, которым разрешены команды и уведомления.
// Разрешён ровно тот скоуп, который обходит планировщик: записи без канала
// не распространяются на каналы гильдии.
type AllowList struct {
	scopes []Scope
	index  map[Scope]struct{}
}

// NewAllowList создаёт allow-list без дублей.
func NewAllowList(scopes []Scope) AllowList {
	list := AllowList{index: make(map[Scope]struct{}, len(scopes))}
	for _, scope := range scopes {
		if _, ok := list.index[scope]; ok {
			continue
		}
		list.index[scope] = struct{}{}
		list.scopes = append(list.scopes, scope)
	}
	sort.Slice(list.scopes, func(i, j int) bool {
		if list.scopes[i].GuildID != list.scopes[j].GuildID {
			return list.scopes[i].GuildID < list.scopes[j].GuildID
		}
		return list.scopes[i].ChannelID < list.scopes[j].ChannelID
	})
	return list
}

// ParseAllowList разбирает список через запятую: "guild[:channel],...".
func ParseAllowList(raw string) (AllowList, error) {
	var scopes []Scope
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		scope, err := ParseScope(part)
		if err != nil {
			return AllowList{}, err
		}
		scopes = append(scopes, scope)
	}
	return NewAllowList(scopes), nil
}

// Allows проверяет, что скоуп есть в списке в точности.
func (l AllowList) Allows(scope Scope) bool {
	_, ok := l.index[scope]
	return ok
}

// Scopes реализует ScopeSource: планировщик обходит ровно скоупы allow-list.
func (l AllowList) Scopes(context.Context) ([]Scope, error) {
	return append([]Scope(nil), l.scopes...), nil
}

// Len возвращает размер списка.
func (l AllowList) Len() int {
	return len(l.scopes)
}
