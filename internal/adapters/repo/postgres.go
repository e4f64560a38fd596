package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/metrics"
)

// Postgres реализует хранилище таймеров на основе pgxpool: один JSONB-документ на скоуп.
type Postgres struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

var _ domain.TimerStore = (*Postgres)(nil)

const timersSchema = `
CREATE TABLE IF NOT EXISTS boss_timers (
	scope_key  TEXT PRIMARY KEY,
	guild_id   BIGINT NOT NULL,
	channel_id BIGINT NOT NULL,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool, loc *time.Location) *Postgres {
	return &Postgres{pool: pool, loc: loc}
}

func (p *Postgres) connCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (p *Postgres) connCtxWithParent(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return p.connCtx()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицу таймеров, если её нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, timersSchema)
	metrics.ObserveNetworkRequest("postgres", "ensure_schema", "boss_timers", start, err)
	return err
}

// Load реализует domain.TimerStore.
func (p *Postgres) Load(ctx context.Context, scope domain.Scope) (domain.TimerMap, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var document []byte
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT document FROM boss_timers WHERE scope_key = $1`, scope.Key()).Scan(&document)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveNetworkRequest("postgres", "timers_load", "boss_timers", start, nil)
		return domain.TimerMap{}, nil
	}
	metrics.ObserveNetworkRequest("postgres", "timers_load", "boss_timers", start, err)
	if err != nil {
		return nil, err
	}
	return DecodeTimers(document, p.loc)
}

// Save реализует domain.TimerStore. Документ заменяется одним upsert.
func (p *Postgres) Save(ctx context.Context, scope domain.Scope, timers domain.TimerMap) error {
	document, err := EncodeTimers(timers)
	if err != nil {
		return err
	}
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err = p.pool.Exec(ctx, `
INSERT INTO boss_timers (scope_key, guild_id, channel_id, document, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (scope_key) DO UPDATE SET document = EXCLUDED.document, updated_at = now()
`, scope.Key(), scope.GuildID, scope.ChannelID, document)
	metrics.ObserveNetworkRequest("postgres", "timers_save", "boss_timers", start, err)
	return err
}

// Clear реализует domain.TimerStore.
func (p *Postgres) Clear(ctx context.Context, scope domain.Scope) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()
	start := time.Now()
	_, err := p.pool.Exec(ctx, `DELETE FROM boss_timers WHERE scope_key = $1`, scope.Key())
	metrics.ObserveNetworkRequest("postgres", "timers_clear", "boss_timers", start, err)
	return err
}
