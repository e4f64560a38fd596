package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"boss-timer-bot/internal/app"
	"boss-timer-bot/internal/infra/config"
)

func memoryFactory(t *testing.T) Factory {
	t.Helper()
	var cfg config.AppConfig
	cfg.TZ = "Asia/Manila"
	cfg.Store.Backend = "memory"
	cfg.Scheduler.Interval = 10 * time.Second
	cfg.Windows.Warn = 10 * time.Minute
	cfg.Windows.WarnTolerance = 30 * time.Second
	cfg.Windows.Grace = 2 * time.Minute
	cfg.Windows.StaleUnlock = time.Hour
	core, err := app.New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	return func(context.Context) (*app.App, error) { return core, nil }
}

func run(t *testing.T, factory Factory, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRoot(factory)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSetKillThenSchedule(t *testing.T) {
	factory := memoryFactory(t)

	out, err := run(t, factory, "setkill", "--", "-1001", "venatus")
	require.NoError(t, err)
	require.Contains(t, out, "Venatus killed at")
	require.Contains(t, out, "(+10h)")

	out, err = run(t, factory, "schedule", "--days", "2", "--", "-1001")
	require.NoError(t, err)
	require.Contains(t, out, "VENATUS")

	out, err = run(t, factory, "schedule", "--", "-1001:7")
	require.NoError(t, err)
	require.NotContains(t, out, "VENATUS")
}

func TestWeeklyAckAndRules(t *testing.T) {
	factory := memoryFactory(t)

	out, err := run(t, factory, "setkill", "--", "-1001", "auraq")
	require.NoError(t, err)
	require.Contains(t, out, "follows fixed schedule")

	out, err = run(t, factory, "rules")
	require.NoError(t, err)
	require.Contains(t, out, "Venatus: 10h")
	require.Contains(t, out, "Fixed schedule:")
}

func TestClearAndTick(t *testing.T) {
	factory := memoryFactory(t)

	_, err := run(t, factory, "setkill", "--", "-1001", "venatus")
	require.NoError(t, err)

	out, err := run(t, factory, "tick", "--scope=-1001")
	require.NoError(t, err)
	require.Contains(t, out, "scopes=1 failed=0")

	out, err = run(t, factory, "clear", "--", "-1001")
	require.NoError(t, err)
	require.Contains(t, out, "cleared -1001:0")
}

func TestCommandErrors(t *testing.T) {
	factory := memoryFactory(t)

	_, err := run(t, factory, "setkill", "guild", "venatus")
	require.Error(t, err)

	_, err = run(t, factory, "setkill", "--", "-1001", "nobody")
	require.Error(t, err)

	_, err = run(t, factory, "setkill", "--", "-1001", "venatus", "25:99")
	require.Error(t, err)

	_, err = run(t, factory, "schedule")
	require.Error(t, err)
}
