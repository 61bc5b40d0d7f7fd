package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/saqibsattar03/basecamp-server/api"
	"github.com/saqibsattar03/basecamp-server/pkg/apperr"
)

// Postgres provides storage in PostgreSQL.
type Postgres struct {
	bun *bun.DB
}

// Connect connects to the database and pings the DB to ensure the
// connection is working.
func Connect(ctx context.Context, connStr string) (*Postgres, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db := bun.NewDB(sqlDB, pgdialect.New())
	return &Postgres{
		bun: db,
	}, nil
}

// EnsureSchema creates the subsystem's tables and the uniqueness
// indexes its invariants rely on: one ledger row per (message, user),
// one edge per (follower, following).
func (pg *Postgres) EnsureSchema(ctx context.Context) error {
	models := []any{
		(*user)(nil),
		(*group)(nil),
		(*groupFollower)(nil),
		(*message)(nil),
		(*messageStat)(nil),
		(*userFollower)(nil),
	}
	for _, m := range models {
		if _, err := pg.bun.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS message_stats_message_user_idx ON message_stats (message_id, user_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS user_followers_pair_idx ON user_followers (follower, following)`,
		`CREATE INDEX IF NOT EXISTS messages_group_created_idx ON messages (group_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS messages_parent_idx ON messages (parent_id)`,
	}
	for _, stmt := range indexes {
		if _, err := pg.bun.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// notFound translates sql.ErrNoRows into the NotFound kind with the
// identifying id; other errors are wrapped as-is.
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("no %s found with id %s", what, id)
	}
	return fmt.Errorf("scan: %w", err)
}

// messageCounterColumns and groupCounterColumns are the allow-lists of
// counter fields each table accepts. Counter updates never reach any
// other column.
var messageCounterColumns = map[api.CounterField]string{
	api.CounterLike:     "like_count",
	api.CounterDislike:  "dislike_count",
	api.CounterFav:      "fav_count",
	api.CounterSubReply: "sub_reply_count",
}

var groupCounterColumns = map[api.CounterField]string{
	api.CounterMessages: "messages_count",
	api.CounterMedia:    "media_count",
}

// IncrMessageCounter applies a single guarded counter delta against
// the message row. The update is conditioned on the row existing, and
// for decrements on the counter still being positive; a vanished row
// or an already-zero counter makes it a silent no-op.
func (pg *Postgres) IncrMessageCounter(ctx context.Context, messageID string, field api.CounterField, delta int) error {
	col, ok := messageCounterColumns[field]
	if !ok {
		return fmt.Errorf("counter %q is not a message counter", field)
	}
	return pg.incrCounter(ctx, (*message)(nil), messageID, col, delta)
}

// IncrGroupCounter is IncrMessageCounter for the group post counters.
func (pg *Postgres) IncrGroupCounter(ctx context.Context, groupID string, field api.CounterField, delta int) error {
	col, ok := groupCounterColumns[field]
	if !ok {
		return fmt.Errorf("counter %q is not a group counter", field)
	}
	return pg.incrCounter(ctx, (*group)(nil), groupID, col, delta)
}

func (pg *Postgres) incrCounter(ctx context.Context, model any, id, col string, delta int) error {
	q := pg.bun.NewUpdate().
		Model(model).
		Set("? = ? + ?", bun.Ident(col), bun.Ident(col), delta).
		Where("id = ?", id)
	if delta < 0 {
		q = q.Where("? > 0", bun.Ident(col))
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("update counter %s: %w", col, err)
	}
	return nil
}
