package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/saqibsattar03/basecamp-server/api"
	"github.com/saqibsattar03/basecamp-server/pkg/apperr"
)

// messageSortColumns is the allow-list for field sorts on messages.
// Unrecognized keys fall back to created_at.
var messageSortColumns = map[string]string{
	"created_at":      "created_at",
	"title":           "title",
	"type":            "type",
	"like_count":      "like_count",
	"dislike_count":   "dislike_count",
	"fav_count":       "fav_count",
	"sub_reply_count": "sub_reply_count",
}

// InsertMessage inserts a message into the database with a generated
// id. The returned message carries the stored row.
func (pg *Postgres) InsertMessage(ctx context.Context, msg api.Message) (api.Message, error) {
	m := &message{
		ID:        uuid.NewString(),
		Title:     msg.Title,
		Text:      msg.Text,
		ImageURL:  msg.ImageURL,
		VideoURL:  msg.VideoURL,
		CreatedBy: msg.CreatedBy,
		GroupID:   msg.GroupID,
		ParentID:  msg.ParentID,
		Type:      msg.Type,
		CreatedAt: msg.CreatedAt,
	}
	if _, err := pg.bun.NewInsert().Model(m).Returning("*").Exec(ctx); err != nil {
		return api.Message{}, fmt.Errorf("insert: %w", err)
	}
	return m.APIMessage(), nil
}

func (pg *Postgres) GetMessage(ctx context.Context, id string) (api.Message, error) {
	var m message
	if err := pg.bun.NewSelect().Model(&m).Where("m.id = ?", id).Scan(ctx); err != nil {
		return api.Message{}, notFound(err, "message", id)
	}
	return m.APIMessage(), nil
}

// DeleteMessage hard-deletes the row. Derived counters on the parent
// message and the owning group are intentionally left untouched.
func (pg *Postgres) DeleteMessage(ctx context.Context, id string) error {
	res, err := pg.bun.NewDelete().Model((*message)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("no message found with id %s", id)
	}
	return nil
}

// ListMessages returns one page of messages under the query's scope
// plus the total count of rows matching the same scope. The count runs
// as its own query, so the two are not transactionally linked.
func (pg *Postgres) ListMessages(ctx context.Context, q api.MessageQuery) ([]api.Message, int, error) {
	total, err := applyMessageScope(pg.bun.NewSelect().Model((*message)(nil)), q).Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	var msgs []message
	sel := applyMessageScope(pg.bun.NewSelect().Model(&msgs), q)
	sel = applyMessageOrder(sel, q).
		Limit(q.Limit).
		Offset(q.Offset)
	if err := sel.Scan(ctx); err != nil {
		return nil, 0, fmt.Errorf("scan: %w", err)
	}

	out := make([]api.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.APIMessage()
	}
	return out, total, nil
}

func applyMessageScope(sel *bun.SelectQuery, q api.MessageQuery) *bun.SelectQuery {
	if q.AuthorID != "" {
		sel = sel.Where("created_by = ?", q.AuthorID)
	}
	if q.GroupID != "" {
		sel = sel.Where("group_id = ?", q.GroupID)
	}
	if q.GroupIDs != nil {
		if len(q.GroupIDs) == 0 {
			// An explicit empty scope matches nothing.
			sel = sel.Where("FALSE")
		} else {
			sel = sel.Where("group_id IN (?)", bun.In(q.GroupIDs))
		}
	}
	if q.TopLevel {
		sel = sel.Where("parent_id IS NULL")
	} else if q.ParentID != "" {
		sel = sel.Where("parent_id = ?", q.ParentID)
	}
	if q.Type != nil {
		sel = sel.Where("type = ?", *q.Type)
	}
	return sel
}

func applyMessageOrder(sel *bun.SelectQuery, q api.MessageQuery) *bun.SelectQuery {
	switch q.Order {
	case api.OrderPopular:
		return sel.Order("like_count DESC")
	case api.OrderPinned:
		return sel.Order("fav_count DESC")
	case api.OrderRecent:
		return sel.Order("created_at DESC")
	default:
		col, ok := messageSortColumns[q.SortKey]
		if !ok {
			col = "created_at"
		}
		dir := "ASC"
		if q.SortDesc {
			dir = "DESC"
		}
		return sel.Order(col + " " + dir)
	}
}
