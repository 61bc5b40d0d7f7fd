package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/saqibsattar03/basecamp-server/api"
)

// GetEngagement fetches the single ledger row for the (message, user)
// pair, or NotFound when the viewer has never engaged with the
// message.
func (pg *Postgres) GetEngagement(ctx context.Context, messageID, userID string) (api.EngagementRecord, error) {
	var s messageStat
	err := pg.bun.NewSelect().
		Model(&s).
		Where("message_id = ?", messageID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return api.EngagementRecord{}, notFound(err, "engagement record", messageID)
	}
	return s.APIRecord(), nil
}

func (pg *Postgres) GetEngagementByID(ctx context.Context, id string) (api.EngagementRecord, error) {
	var s messageStat
	if err := pg.bun.NewSelect().Model(&s).Where("ms.id = ?", id).Scan(ctx); err != nil {
		return api.EngagementRecord{}, notFound(err, "engagement record", id)
	}
	return s.APIRecord(), nil
}

// InsertEngagement creates the ledger row with a generated id.
func (pg *Postgres) InsertEngagement(ctx context.Context, rec api.EngagementRecord) (api.EngagementRecord, error) {
	now := time.Now()
	s := &messageStat{
		ID:         uuid.NewString(),
		MessageID:  rec.MessageID,
		UserID:     rec.UserID,
		IsLiked:    rec.IsLiked,
		IsDisliked: rec.IsDisliked,
		IsFav:      rec.IsFav,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := pg.bun.NewInsert().Model(s).Returning("*").Exec(ctx); err != nil {
		return api.EngagementRecord{}, fmt.Errorf("insert: %w", err)
	}
	return s.APIRecord(), nil
}

// UpdateEngagementFlags persists the three flags of an existing ledger
// row. Last write wins on concurrent toggles of the same pair; the
// counters are untouched here because every delta is issued separately
// against the message row.
func (pg *Postgres) UpdateEngagementFlags(ctx context.Context, rec api.EngagementRecord) error {
	_, err := pg.bun.NewUpdate().
		Model((*messageStat)(nil)).
		Set("is_liked = ?", rec.IsLiked).
		Set("is_disliked = ?", rec.IsDisliked).
		Set("is_fav = ?", rec.IsFav).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", rec.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}

// ListEngagements returns the viewer's ledger rows restricted to the
// given message ids in one query. Pairs with no row are simply absent;
// callers default them to all-false.
func (pg *Postgres) ListEngagements(ctx context.Context, userID string, messageIDs []string) ([]api.EngagementRecord, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var stats []messageStat
	err := pg.bun.NewSelect().
		Model(&stats).
		Where("user_id = ?", userID).
		Where("message_id IN (?)", bun.In(messageIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	out := make([]api.EngagementRecord, len(stats))
	for i, s := range stats {
		out[i] = s.APIRecord()
	}
	return out, nil
}
