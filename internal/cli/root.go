// Package cli реализует операторскую утилиту bossctl.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"boss-timer-bot/internal/app"
	"boss-timer-bot/internal/infra/config"
	"boss-timer-bot/internal/infra/log"
	"boss-timer-bot/internal/usecase/schedule"
)

// Factory собирает ядро приложения для одной команды.
type Factory func(ctx context.Context) (*app.App, error)

// FromEnv собирает ядро из переменных окружения, как сервисы.
func FromEnv(ctx context.Context) (*app.App, error) {
	cfg, err := config.Process()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, log.Component(log.NewLogger(cfg.AppEnv), "bossctl"))
}

// Execute запускает bossctl с конфигурацией из окружения.
func Execute(ctx context.Context) error {
	return NewRoot(FromEnv).ExecuteContext(ctx)
}

// NewRoot собирает дерево команд.
func NewRoot(factory Factory) *cobra.Command {
	root := &cobra.Command{
		Use:           "bossctl",
		Short:         "Operator CLI for boss respawn timers",
		Long:          "Operator CLI for boss respawn timers.\n\nTelegram group IDs are negative: put scopes after -- (bossctl setkill -- -1001 venatus).",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		setKillCmd(factory),
		scheduleCmd(factory),
		rulesCmd(factory),
		clearCmd(factory),
		tickCmd(factory),
	)
	return root
}

// withService открывает ядро и сервис без проверки allow-list: оператор работает с любым скоупом.
func withService(cmd *cobra.Command, factory Factory, fn func(core *app.App, svc *schedule.Service) error) error {
	core, err := factory(cmd.Context())
	if err != nil {
		return err
	}
	defer core.Close()
	svc := schedule.NewService(core.Rules, core.Calculator, core.Timers, nil, core.Log)
	return fn(core, svc)
}
