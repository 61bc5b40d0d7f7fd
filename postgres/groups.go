package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/saqibsattar03/basecamp-server/api"
	"github.com/saqibsattar03/basecamp-server/pkg/apperr"
)

var groupSortColumns = map[string]string{
	"created_at":     "created_at",
	"name":           "name",
	"username":       "username",
	"location":       "location",
	"messages_count": "messages_count",
	"media_count":    "media_count",
}

// followersCountExpr is the transient per-group rank input for the
// popularity pipeline, computed server-side over the whole filtered
// set before pagination.
const followersCountExpr = "(SELECT count(*) FROM group_followers AS gfc WHERE gfc.group_id = g.id)"

func (pg *Postgres) InsertGroup(ctx context.Context, g api.Group) (api.Group, error) {
	row := &group{
		ID:           uuid.NewString(),
		Name:         g.Name,
		Username:     g.Username,
		Location:     g.Location,
		ProfileImage: g.ProfileImage,
		CreatedBy:    g.CreatedBy,
		CreatedAt:    g.CreatedAt,
	}
	if _, err := pg.bun.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return api.Group{}, apperr.Conflict("group username %q is already taken", g.Username)
		}
		return api.Group{}, fmt.Errorf("insert: %w", err)
	}
	return row.APIGroup(), nil
}

func (pg *Postgres) GetGroup(ctx context.Context, id string) (api.Group, error) {
	var g group
	err := pg.bun.NewSelect().
		Model(&g).
		ColumnExpr("g.*").
		ColumnExpr(followersCountExpr + " AS followers_count").
		Where("g.id = ?", id).
		Scan(ctx)
	if err != nil {
		return api.Group{}, notFound(err, "group", id)
	}
	return g.APIGroup(), nil
}

// ListGroups returns one page of groups under the query's scope plus
// the total count under the same scope. Every row carries its
// follower count; the popularity order sorts by it across the full
// filtered set.
func (pg *Postgres) ListGroups(ctx context.Context, q api.GroupQuery) ([]api.Group, int, error) {
	total, err := applyGroupScope(pg.bun.NewSelect().Model((*group)(nil)), q).Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	var groups []group
	sel := applyGroupScope(pg.bun.NewSelect().Model(&groups), q).
		ColumnExpr("g.*").
		ColumnExpr(followersCountExpr + " AS followers_count")

	if q.Popular {
		sel = sel.OrderExpr("followers_count DESC")
	} else {
		col, ok := groupSortColumns[q.SortKey]
		if !ok {
			col = "created_at"
		}
		dir := "ASC"
		if q.SortDesc {
			dir = "DESC"
		}
		sel = sel.Order("g." + col + " " + dir)
	}

	if err := sel.Limit(q.Limit).Offset(q.Offset).Scan(ctx); err != nil {
		return nil, 0, fmt.Errorf("scan: %w", err)
	}

	out := make([]api.Group, len(groups))
	for i, g := range groups {
		out[i] = g.APIGroup()
	}
	return out, total, nil
}

func applyGroupScope(sel *bun.SelectQuery, q api.GroupQuery) *bun.SelectQuery {
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		sel = sel.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				WhereOr("g.name ILIKE ?", pattern).
				WhereOr("g.username ILIKE ?", pattern).
				WhereOr("g.location ILIKE ?", pattern)
		})
	}
	if q.FollowedBy != "" {
		sel = sel.
			Join("JOIN group_followers AS gf ON gf.group_id = g.id").
			Where("gf.user_id = ?", q.FollowedBy)
	}
	return sel
}

// ToggleGroupFollower removes the user from the group's follower set
// if present, otherwise adds them. The composite primary key keeps the
// set free of duplicates.
func (pg *Postgres) ToggleGroupFollower(ctx context.Context, groupID, userID string) (bool, error) {
	res, err := pg.bun.NewDelete().
		Model((*groupFollower)(nil)).
		Where("group_id = ?", groupID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete membership: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return false, nil
	}

	row := &groupFollower{
		GroupID:   groupID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	if _, err := pg.bun.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return false, apperr.Conflict("user %s already follows group %s", userID, groupID)
		}
		return false, fmt.Errorf("insert membership: %w", err)
	}
	return true, nil
}

// ListFollowedGroupIDs resolves the full followed-group id set for a
// viewer, used as the my-feed scope filter.
func (pg *Postgres) ListFollowedGroupIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := pg.bun.NewSelect().
		Model((*groupFollower)(nil)).
		Column("group_id").
		Where("user_id = ?", userID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return ids, nil
}
