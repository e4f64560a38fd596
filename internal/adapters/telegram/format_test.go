package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/clock"
	"boss-timer-bot/internal/usecase/schedule"
)

func manila(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return loc
}

func TestFormatRemaining(t *testing.T) {
	tests := map[time.Duration]string{
		-time.Minute:                  "0h 0m",
		9*time.Minute + 55*time.Second: "0h 9m",
		10*time.Hour + 5*time.Minute:  "10h 5m",
	}
	for d, want := range tests {
		if got := FormatRemaining(d); got != want {
			t.Fatalf("FormatRemaining(%v) = %q, want %q", d, got, want)
		}
	}
}

func TestNotificationText(t *testing.T) {
	loc := manila(t)
	target := time.Date(2025, time.November, 9, 0, 0, 0, 0, loc)
	now := target.Add(-605 * time.Second)

	warning := NotificationText(domain.NotificationRequest{Kind: domain.NotificationWarning, Boss: "venatus", Target: target}, now, loc)
	if !strings.Contains(warning, "Venatus will spawn in 10 mins") || !strings.Contains(warning, "12:00 AM") {
		t.Fatalf("unexpected warning %q", warning)
	}
	spawn := NotificationText(domain.NotificationRequest{Kind: domain.NotificationSpawn, Boss: "venatus", Target: target}, now, loc)
	if !strings.Contains(spawn, "VENATUS SPAWNED!") {
		t.Fatalf("unexpected spawn %q", spawn)
	}
}

func TestAckText(t *testing.T) {
	loc := manila(t)
	duration := AckText(schedule.Ack{Boss: "venatus", Record: domain.TimerRecord{
		Kind:         domain.TimerDuration,
		KilledAt:     time.Date(2025, time.November, 8, 14, 0, 0, 0, loc),
		Target:       time.Date(2025, time.November, 9, 0, 0, 0, 0, loc),
		RespawnHours: 10,
	}}, loc)
	if duration != "🩸 Venatus killed at 14:00.\nWill respawn at Sun 00:00 (+10h)." {
		t.Fatalf("unexpected ack %q", duration)
	}

	weekly := AckText(schedule.Ack{Boss: "auraq", Record: domain.TimerRecord{
		Kind:   domain.TimerWeekly,
		Target: time.Date(2025, time.November, 12, 21, 0, 0, 0, loc),
		Slots: []domain.Slot{
			{Weekday: time.Friday, At: domain.TimeOfDay{Hour: 22}},
			{Weekday: time.Wednesday, At: domain.TimeOfDay{Hour: 21}},
		},
	}}, loc)
	if weekly != "📅 Auraq follows fixed schedule: Friday 22:00, Wednesday 21:00\nNext spawn: Wednesday 21:00" {
		t.Fatalf("unexpected weekly ack %q", weekly)
	}
}

func TestScheduleText(t *testing.T) {
	loc := manila(t)
	now := time.Date(2025, time.November, 8, 16, 30, 0, 0, loc)
	text := ScheduleText(schedule.Schedule{Now: now, Days: 3, Entries: []schedule.Entry{
		{Boss: "ego", SpawnAt: time.Date(2025, time.November, 8, 16, 0, 0, 0, loc), Spawned: true},
		{Boss: "venatus", SpawnAt: time.Date(2025, time.November, 9, 0, 0, 0, 0, loc)},
		{Boss: "auraq", SpawnAt: time.Date(2025, time.November, 10, 21, 0, 0, 0, loc)},
	}})
	want := strings.Join([]string{
		"TODAY (Saturday, 08/11)",
		"4:00 PM | EGO (🟢 Spawned!)",
		"",
		"TOMORROW (Sunday, 09/11)",
		"12:00 AM | VENATUS (7h 30m remaining)",
		"",
		"MONDAY (10/11)",
		"9:00 PM | AURAQ (52h 30m remaining)",
	}, "\n")
	if text != want {
		t.Fatalf("unexpected schedule:\n%s\nwant:\n%s", text, want)
	}

	empty := ScheduleText(schedule.Schedule{Now: now, Days: 2})
	if empty != "No boss spawns in the next 2 day(s)." {
		t.Fatalf("unexpected empty schedule %q", empty)
	}
}

func TestBossesText(t *testing.T) {
	text := BossesText([]domain.Rule{
		{Name: "venatus", Kind: domain.TimerDuration, Hours: 10},
		{Name: "milavy", Kind: domain.TimerWeekly, Slots: []domain.Slot{{Weekday: time.Saturday, At: domain.TimeOfDay{Hour: 15}}}},
	})
	want := "Respawn after kill:\nVenatus: 10h\n\nFixed schedule:\nMilavy: Saturday 15:00"
	if text != want {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestErrorText(t *testing.T) {
	loc := manila(t)
	if text, ok := ErrorText(domain.ErrUnknownBoss, "gorgon", loc); !ok || !strings.Contains(text, `"gorgon"`) {
		t.Fatalf("unexpected unknown boss text %q", text)
	}
	if _, ok := ErrorText(errors.New("db down"), "", loc); ok {
		t.Fatalf("internal errors must not be reported as user errors")
	}
}

type stubSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *stubSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if s.err != nil {
		return tgbotapi.Message{}, s.err
	}
	s.sent = append(s.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestNotifierTargetsScopeChat(t *testing.T) {
	loc := manila(t)
	sender := &stubSender{}
	fixed := clock.NewFixed(time.Date(2025, time.November, 8, 23, 50, 0, 0, loc))
	n := NewNotifier(sender, fixed, zerolog.Nop())
	req := domain.NotificationRequest{Kind: domain.NotificationSpawn, Boss: "ego", Target: fixed.Now()}

	if err := n.Notify(context.Background(), domain.Scope{GuildID: -100}, req); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if err := n.Notify(context.Background(), domain.Scope{GuildID: -100, ChannelID: -200}, req); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sender.sent) != 2 || sender.sent[0].ChatID != -100 || sender.sent[1].ChatID != -200 {
		t.Fatalf("unexpected targets %+v", sender.sent)
	}

	sender.err = errors.New("forbidden")
	if err := n.Notify(context.Background(), domain.Scope{GuildID: -100}, req); !errors.Is(err, domain.ErrDeliveryFailure) {
		t.Fatalf("expected ErrDeliveryFailure, got %v", err)
	}
}
