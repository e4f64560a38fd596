package telegram

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/usecase/schedule"
)

const (
	clockLayout = "3:04 PM"
	dateLayout  = "02/01"
)

// Display возвращает имя босса с заглавной буквы.
func Display(boss string) string {
	if boss == "" {
		return boss
	}
	return strings.ToUpper(boss[:1]) + boss[1:]
}

// FormatRemaining печатает оставшееся время как "Xh Ym".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Minute)
	return fmt.Sprintf("%dh %dm", total/60, total%60)
}

// WarningText строит предупреждение за 10 минут.
func WarningText(req domain.NotificationRequest, now time.Time, loc *time.Location) string {
	at := req.Target.In(loc)
	return fmt.Sprintf("⏰ %s will spawn in 10 mins!\nSpawn at %s (%s left)",
		Display(req.Boss), at.Format(clockLayout), FormatRemaining(at.Sub(now)))
}

// SpawnText строит объявление о появлении.
func SpawnText(req domain.NotificationRequest, loc *time.Location) string {
	return fmt.Sprintf("⚔️ %s SPAWNED! (%s)", strings.ToUpper(req.Boss), req.Target.In(loc).Format(clockLayout))
}

// NotificationText выбирает текст по типу уведомления.
func NotificationText(req domain.NotificationRequest, now time.Time, loc *time.Location) string {
	if req.Kind == domain.NotificationWarning {
		return WarningText(req, now, loc)
	}
	return SpawnText(req, loc)
}

// AckText подтверждает /setkill.
func AckText(ack schedule.Ack, loc *time.Location) string {
	rec := ack.Record
	name := Display(ack.Boss)
	if rec.Kind == domain.TimerWeekly {
		slots := make([]string, 0, len(rec.Slots))
		for _, slot := range rec.Slots {
			slots = append(slots, slot.String())
		}
		return fmt.Sprintf("📅 %s follows fixed schedule: %s\nNext spawn: %s",
			name, strings.Join(slots, ", "), rec.Target.In(loc).Format("Monday 15:04"))
	}
	return fmt.Sprintf("🩸 %s killed at %s.\nWill respawn at %s (+%dh).",
		name, rec.KilledAt.In(loc).Format("15:04"), rec.Target.In(loc).Format("Mon 15:04"), rec.RespawnHours)
}

// ScheduleText группирует расписание по гражданским дням.
func ScheduleText(s schedule.Schedule) string {
	if len(s.Entries) == 0 {
		return fmt.Sprintf("No boss spawns in the next %d day(s).", s.Days)
	}
	loc := s.Now.Location()
	var b strings.Builder
	var current string
	for _, e := range s.Entries {
		at := e.SpawnAt.In(loc)
		header := dayHeader(s.Now, at)
		if header != current {
			if current != "" {
				b.WriteString("\n")
			}
			b.WriteString(header + "\n")
			current = header
		}
		status := "🟢 Spawned!"
		if !e.Spawned {
			status = FormatRemaining(at.Sub(s.Now)) + " remaining"
		}
		fmt.Fprintf(&b, "%s | %s (%s)\n", at.Format(clockLayout), strings.ToUpper(e.Boss), status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func dayHeader(now, at time.Time) string {
	ny, nm, nd := now.Date()
	ay, am, ad := at.Date()
	label := fmt.Sprintf("%s, %s", at.Format("Monday"), at.Format(dateLayout))
	switch {
	case ny == ay && nm == am && nd == ad:
		return "TODAY (" + label + ")"
	case isNextDay(now, at):
		return "TOMORROW (" + label + ")"
	default:
		return strings.ToUpper(at.Format("Monday")) + " (" + at.Format(dateLayout) + ")"
	}
}

func isNextDay(now, at time.Time) bool {
	y, m, d := now.Date()
	ty, tm, td := time.Date(y, m, d+1, 12, 0, 0, 0, now.Location()).Date()
	ay, am, ad := at.Date()
	return ty == ay && tm == am && td == ad
}

// BossesText печатает таблицу правил.
func BossesText(rules []domain.Rule) string {
	var duration, weekly []string
	for _, rule := range rules {
		switch rule.Kind {
		case domain.TimerDuration:
			duration = append(duration, fmt.Sprintf("%s: %dh", Display(rule.Name), rule.Hours))
		case domain.TimerWeekly:
			slots := make([]string, 0, len(rule.Slots))
			for _, slot := range rule.Slots {
				slots = append(slots, slot.String())
			}
			weekly = append(weekly, fmt.Sprintf("%s: %s", Display(rule.Name), strings.Join(slots, ", ")))
		}
	}
	var b strings.Builder
	if len(duration) > 0 {
		b.WriteString("Respawn after kill:\n")
		b.WriteString(strings.Join(duration, "\n"))
	}
	if len(weekly) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Fixed schedule:\n")
		b.WriteString(strings.Join(weekly, "\n"))
	}
	return b.String()
}

// HelpText возвращает справку по командам.
func HelpText() string {
	return strings.Join([]string{
		"Boss timer commands:",
		"/setkill <boss> [HH:MM] - record a kill (now if time is omitted)",
		"/schedule [days] - upcoming spawns (default 2 days, max 7)",
		"/bosses - known bosses and respawn rules",
		"/help - this message",
	}, "\n")
}

// ErrorText переводит ошибку команды в ответ пользователю. ok == false означает внутреннюю ошибку.
func ErrorText(err error, boss string, loc *time.Location) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidTimeFormat):
		return "⚠️ Invalid time format. Use /setkill <boss> <HH:MM>", true
	case errors.Is(err, domain.ErrUnknownBoss):
		return fmt.Sprintf("⚠️ Unknown boss %q. See /bosses", boss), true
	case errors.Is(err, domain.ErrTimezoneAmbiguity):
		return fmt.Sprintf("⚠️ That time does not exist or is ambiguous in %s. Try another time.", loc), true
	default:
		return "⚠️ Something went wrong, try again later.", false
	}
}
