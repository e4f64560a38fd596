package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"boss-timer-bot/internal/adapters/telegram"
	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/metrics"
	"boss-timer-bot/internal/usecase/schedule"
)

// Messenger отправляет текст в чат.
type Messenger interface {
	Send(chatID int64, text string) error
}

// Handler обслуживает апдейты бота.
type Handler struct {
	out        Messenger
	log        zerolog.Logger
	scheduleUC *schedule.Service
	clock      domain.Clock
}

// NewHandler создаёт обработчик.
func NewHandler(out Messenger, log zerolog.Logger, scheduleUC *schedule.Service, clock domain.Clock) *Handler {
	return &Handler{
		out:        out,
		log:        log.With().Str("component", "bot").Logger(),
		scheduleUC: scheduleUC,
		clock:      clock,
	}
}

// Command хранит разобранную команду чата.
type Command struct {
	Name string
	Args []string
}

// ParseCommand разбирает "/cmd@bot arg1 arg2" и "!cmd arg1". Для обычного текста ok == false.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || (text[0] != '/' && text[0] != '!') {
		return Command{}, false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return Command{}, false
	}
	name, _, _ := strings.Cut(fields[0], "@")
	name = strings.ToLower(name)
	if name == "" {
		return Command{}, false
	}
	return Command{Name: name, Args: fields[1:]}, true
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil {
		msg = upd.ChannelPost
	}
	if msg == nil || msg.Chat == nil {
		return
	}
	cmd, ok := ParseCommand(msg.Text)
	if !ok {
		return
	}
	scope := domain.Scope{GuildID: msg.Chat.ID}
	if !h.scheduleUC.Allowed(scope) {
		h.log.Debug().Int64("chat", msg.Chat.ID).Str("command", cmd.Name).Msg("команда из чата вне allow-list проигнорирована")
		return
	}
	switch cmd.Name {
	case "setkill":
		h.handleSetKill(ctx, scope, msg.Chat.ID, cmd.Args)
	case "schedule":
		h.handleSchedule(ctx, scope, msg.Chat.ID, cmd.Args)
	case "bosses":
		metrics.IncCommand("bosses", nil)
		h.reply(msg.Chat.ID, telegram.BossesText(h.scheduleUC.Rules().Rules()))
	case "help", "start":
		metrics.IncCommand("help", nil)
		h.reply(msg.Chat.ID, telegram.HelpText())
	}
}

func (h *Handler) handleSetKill(ctx context.Context, scope domain.Scope, chatID int64, args []string) {
	if len(args) == 0 || len(args) > 2 {
		metrics.IncCommand("setkill", domain.ErrInvalidTimeFormat)
		h.reply(chatID, "Usage: /setkill <boss> [HH:MM]")
		return
	}
	boss := args[0]
	var killTime string
	if len(args) == 2 {
		killTime = args[1]
	}
	ack, err := h.scheduleUC.SetKill(ctx, scope, boss, killTime)
	metrics.IncCommand("setkill", err)
	if err != nil {
		text, userErr := telegram.ErrorText(err, boss, h.clock.Location())
		if !userErr {
			h.log.Error().Err(err).Str("scope", scope.Key()).Str("boss", boss).Msg("не удалось записать убийство")
		}
		h.reply(chatID, text)
		return
	}
	h.reply(chatID, telegram.AckText(ack, h.clock.Location()))
}

func (h *Handler) handleSchedule(ctx context.Context, scope domain.Scope, chatID int64, args []string) {
	days := 0
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			metrics.IncCommand("schedule", err)
			h.reply(chatID, "Usage: /schedule [days]")
			return
		}
		days = parsed
	}
	sched, err := h.scheduleUC.QuerySchedule(ctx, scope, days)
	metrics.IncCommand("schedule", err)
	if err != nil {
		h.log.Error().Err(err).Str("scope", scope.Key()).Msg("не удалось построить расписание")
		text, _ := telegram.ErrorText(err, "", h.clock.Location())
		h.reply(chatID, text)
		return
	}
	h.reply(chatID, telegram.ScheduleText(sched))
}

func (h *Handler) reply(chatID int64, text string) {
	if err := h.out.Send(chatID, text); err != nil {
		h.log.Error().Err(err).Msg("не удалось отправить сообщение")
	}
}
