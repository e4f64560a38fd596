package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"boss-timer-bot/internal/domain"
)

//go:embed rules.yaml
var defaultRules []byte

type rulesFile struct {
	Bosses []bossEntry `yaml:"bosses"`
}

type bossEntry struct {
	Name         string   `yaml:"name"`
	RespawnHours int      `yaml:"respawn_hours"`
	Schedule     []string `yaml:"schedule"`
}

// LoadRules читает таблицу правил из YAML-файла; для пустого пути берётся встроенная таблица.
func LoadRules(path string) (domain.RuleTable, error) {
	if path == "" {
		return ParseRules(defaultRules)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RuleTable{}, fmt.Errorf("read rules %s: %w", path, err)
	}
	return ParseRules(data)
}

// DefaultRules возвращает встроенную таблицу.
func DefaultRules() (domain.RuleTable, error) {
	return ParseRules(defaultRules)
}

// ParseRules компилирует YAML в таблицу правил.
func ParseRules(data []byte) (domain.RuleTable, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return domain.RuleTable{}, fmt.Errorf("%w: %v", domain.ErrInvalidRule, err)
	}
	rules := make([]domain.Rule, 0, len(file.Bosses))
	for _, entry := range file.Bosses {
		rule, err := entry.rule()
		if err != nil {
			return domain.RuleTable{}, err
		}
		rules = append(rules, rule)
	}
	return domain.NewRuleTable(rules)
}

func (e bossEntry) rule() (domain.Rule, error) {
	hasHours := e.RespawnHours != 0
	hasSchedule := len(e.Schedule) > 0
	switch {
	case hasHours && hasSchedule:
		return domain.Rule{}, fmt.Errorf("%w: %s: both respawn_hours and schedule set", domain.ErrInvalidRule, e.Name)
	case hasHours:
		return domain.Rule{Name: e.Name, Kind: domain.TimerDuration, Hours: e.RespawnHours}, nil
	case hasSchedule:
		slots := make([]domain.Slot, 0, len(e.Schedule))
		for _, raw := range e.Schedule {
			slot, err := parseSlot(raw)
			if err != nil {
				return domain.Rule{}, fmt.Errorf("%s: %w", e.Name, err)
			}
			slots = append(slots, slot)
		}
		return domain.Rule{Name: e.Name, Kind: domain.TimerWeekly, Slots: slots}, nil
	default:
		return domain.Rule{}, fmt.Errorf("%w: %s: neither respawn_hours nor schedule set", domain.ErrInvalidRule, e.Name)
	}
}

// parseSlot разбирает "monday 11:30".
func parseSlot(raw string) (domain.Slot, error) {
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return domain.Slot{}, fmt.Errorf("%w: slot %q, expected \"<weekday> HH:MM\"", domain.ErrInvalidRule, raw)
	}
	day, err := domain.ParseWeekday(fields[0])
	if err != nil {
		return domain.Slot{}, err
	}
	at, err := domain.ParseTimeOfDay(fields[1])
	if err != nil {
		return domain.Slot{}, fmt.Errorf("%w: %v", domain.ErrInvalidRule, err)
	}
	return domain.Slot{Weekday: day, At: at}, nil
}
