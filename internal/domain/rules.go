package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var timeOfDayRegex = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// TimeOfDay хранит время суток с точностью до минуты.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay парсит время формата ЧЧ:ММ (24 часа).
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	matches := timeOfDayRegex.FindStringSubmatch(strings.TrimSpace(raw))
	if len(matches) != 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
	}
	hour, _ := strconv.Atoi(matches[1])
	minute, _ := strconv.Atoi(matches[2])
	tod := TimeOfDay{Hour: hour, Minute: minute}
	if !tod.Valid() {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, raw)
	}
	return tod, nil
}

// Valid проверяет диапазоны часов и минут.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseWeekday принимает полное или трёхбуквенное английское название дня недели.
func ParseWeekday(raw string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for day := time.Sunday; day <= time.Saturday; day++ {
		full := strings.ToLower(day.String())
		if name == full || (len(name) == 3 && strings.HasPrefix(full, name)) {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRule, raw)
}

// Slot задаёт день недели и время суток недельного расписания.
type Slot struct {
	Weekday time.Weekday
	At      TimeOfDay
}

// Valid проверяет слот.
func (s Slot) Valid() bool {
	return s.Weekday >= time.Sunday && s.Weekday <= time.Saturday && s.At.Valid()
}

func (s Slot) String() string {
	return s.Weekday.String() + " " + s.At.String()
}

// Rule описывает правило респавна босса из статической таблицы.
type Rule struct {
	Name  string
	Kind  TimerKind
	Hours int
	Slots []Slot
}

// Validate проверяет правило.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: empty boss name", ErrInvalidRule)
	}
	switch r.Kind {
	case TimerDuration:
		if r.Hours <= 0 {
			return fmt.Errorf("%w: %s: respawn hours must be positive", ErrInvalidRule, r.Name)
		}
	case TimerWeekly:
		if len(r.Slots) == 0 {
			return fmt.Errorf("%w: %s: weekly rule needs at least one slot", ErrInvalidRule, r.Name)
		}
		seen := make(map[Slot]struct{}, len(r.Slots))
		for _, slot := range r.Slots {
			if !slot.Valid() {
				return fmt.Errorf("%w: %s: bad slot %v", ErrInvalidRule, r.Name, slot)
			}
			if _, dup := seen[slot]; dup {
				return fmt.Errorf("%w: %s: duplicate slot %s", ErrInvalidRule, r.Name, slot)
			}
			seen[slot] = struct{}{}
		}
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidRule, r.Name, r.Kind)
	}
	return nil
}

// RuleTable индексирует неизменяемые правила по имени босса.
type RuleTable struct {
	rules map[string]Rule
}

// NewRuleTable компилирует таблицу, проверяя каждое правило и уникальность имён.
func NewRuleTable(rules []Rule) (RuleTable, error) {
	table := RuleTable{rules: make(map[string]Rule, len(rules))}
	for _, rule := range rules {
		rule.Name = NormalizeBossName(rule.Name)
		if err := rule.Validate(); err != nil {
			return RuleTable{}, err
		}
		if _, dup := table.rules[rule.Name]; dup {
			return RuleTable{}, fmt.Errorf("%w: boss %s defined twice", ErrInvalidRule, rule.Name)
		}
		rule.Slots = append([]Slot(nil), rule.Slots...)
		table.rules[rule.Name] = rule
	}
	return table, nil
}

// Lookup возвращает правило по имени (без учёта регистра).
func (t RuleTable) Lookup(name string) (Rule, bool) {
	rule, ok := t.rules[NormalizeBossName(name)]
	if !ok {
		return Rule{}, false
	}
	rule.Slots = append([]Slot(nil), rule.Slots...)
	return rule, true
}

// Len возвращает количество правил.
func (t RuleTable) Len() int {
	return len(t.rules)
}

// Rules возвращает правила: сначала duration, затем weekly, внутри групп по имени.
func (t RuleTable) Rules() []Rule {
	out := make([]Rule, 0, len(t.rules))
	for _, rule := range t.rules {
		rule.Slots = append([]Slot(nil), rule.Slots...)
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == TimerDuration
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Weekly возвращает только недельные правила.
func (t RuleTable) Weekly() []Rule {
	var out []Rule
	for _, rule := range t.Rules() {
		if rule.Kind == TimerWeekly {
			out = append(out, rule)
		}
	}
	return out
}
