package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"boss-timer-bot/internal/adapters/telegram"
	"boss-timer-bot/internal/app"
	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/usecase/schedule"
)

func setKillCmd(factory Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "setkill <scope> <boss> [HH:MM]",
		Short: "Record a boss kill for a scope (guild or guild:channel)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := domain.ParseScope(args[0])
			if err != nil {
				return err
			}
			killTime := ""
			if len(args) == 3 {
				killTime = args[2]
			}
			return withService(cmd, factory, func(core *app.App, svc *schedule.Service) error {
				ack, err := svc.SetKill(cmd.Context(), scope, args[1], killTime)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), telegram.AckText(ack, core.Clock.Location()))
				return nil
			})
		},
	}
}

func scheduleCmd(factory Factory) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "schedule <scope>",
		Short: "Show upcoming spawns for a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := domain.ParseScope(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, factory, func(_ *app.App, svc *schedule.Service) error {
				s, err := svc.QuerySchedule(cmd.Context(), scope, days)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), telegram.ScheduleText(s))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", schedule.DefaultHorizonDays, "Horizon in days (1-7)")
	return cmd
}

func rulesCmd(factory Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List known bosses and their respawn rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			core, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer core.Close()
			fmt.Fprintln(cmd.OutOrStdout(), telegram.BossesText(core.Rules.Rules()))
			return nil
		},
	}
}

func clearCmd(factory Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <scope>",
		Short: "Drop all timers of a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := domain.ParseScope(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, factory, func(_ *app.App, svc *schedule.Service) error {
				if err := svc.Clear(cmd.Context(), scope); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", scope)
				return nil
			})
		},
	}
}

func tickCmd(factory Factory) *cobra.Command {
	var scopes []string
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one scheduler pass and print notifications instead of sending them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			core, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer core.Close()

			if len(scopes) > 0 {
				list := make([]domain.Scope, 0, len(scopes))
				for _, raw := range scopes {
					scope, err := domain.ParseScope(raw)
					if err != nil {
						return err
					}
					list = append(list, scope)
				}
				core.Allow = domain.NewAllowList(list)
			}

			out := &printNotifier{w: cmd.OutOrStdout(), clock: core.Clock}
			report := core.Poller(out).Tick(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "scopes=%d failed=%d notifications=%d\n", report.Scopes, report.Failed, report.Notifications)
			if report.Failed > 0 {
				return fmt.Errorf("%d scope(s) failed", report.Failed)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Scopes to tick instead of ALLOWED_SCOPES")
	return cmd
}

// printNotifier печатает уведомления вместо отправки в чат.
type printNotifier struct {
	w     io.Writer
	clock domain.Clock
}

func (p *printNotifier) Notify(_ context.Context, scope domain.Scope, req domain.NotificationRequest) error {
	text := telegram.NotificationText(req, p.clock.Now(), p.clock.Location())
	_, err := fmt.Fprintf(p.w, "[%s] %s\n", scope, strings.ReplaceAll(text, "\n", " "))
	return err
}
