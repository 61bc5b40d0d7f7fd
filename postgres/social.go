package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/saqibsattar03/basecamp-server/api"
	"github.com/saqibsattar03/basecamp-server/pkg/apperr"
)

// ToggleFollow removes the edge for the exact ordered pair if it
// exists, otherwise creates it. The bool reports the resulting state:
// true means the edge now exists.
func (pg *Postgres) ToggleFollow(ctx context.Context, follower, following string) (api.FollowEdge, bool, error) {
	res, err := pg.bun.NewDelete().
		Model((*userFollower)(nil)).
		Where("follower = ?", follower).
		Where("following = ?", following).
		Exec(ctx)
	if err != nil {
		return api.FollowEdge{}, false, fmt.Errorf("delete edge: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return api.FollowEdge{}, false, nil
	}

	edge := &userFollower{
		ID:        uuid.NewString(),
		Follower:  follower,
		Following: following,
		CreatedAt: time.Now(),
	}
	if _, err := pg.bun.NewInsert().Model(edge).Returning("*").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			// A concurrent toggle won the insert race.
			return api.FollowEdge{}, false, apperr.Conflict("follow edge %s -> %s already exists", follower, following)
		}
		return api.FollowEdge{}, false, fmt.Errorf("insert edge: %w", err)
	}
	return edge.APIEdge(), true, nil
}

// FollowExists reports edge existence without fetching the row.
func (pg *Postgres) FollowExists(ctx context.Context, follower, following string) (bool, error) {
	exists, err := pg.bun.NewSelect().
		Model((*userFollower)(nil)).
		Where("follower = ?", follower).
		Where("following = ?", following).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return exists, nil
}

func (pg *Postgres) CountFollowers(ctx context.Context, userID string) (int, error) {
	count, err := pg.bun.NewSelect().
		Model((*userFollower)(nil)).
		Where("following = ?", userID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

func (pg *Postgres) CountFollowing(ctx context.Context, userID string) (int, error) {
	count, err := pg.bun.NewSelect().
		Model((*userFollower)(nil)).
		Where("follower = ?", userID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

// ListFollowers returns one page of the users following userID,
// populated with public fields only, plus the total follower count.
func (pg *Postgres) ListFollowers(ctx context.Context, userID string, limit, offset int) ([]api.User, int, error) {
	return pg.listEdgeUsers(ctx, "following", userID, "FollowerUser", limit, offset)
}

// ListFollowings returns one page of the users userID follows.
func (pg *Postgres) ListFollowings(ctx context.Context, userID string, limit, offset int) ([]api.User, int, error) {
	return pg.listEdgeUsers(ctx, "follower", userID, "FollowingUser", limit, offset)
}

func (pg *Postgres) listEdgeUsers(ctx context.Context, scopeCol, userID, relation string, limit, offset int) ([]api.User, int, error) {
	total, err := pg.bun.NewSelect().
		Model((*userFollower)(nil)).
		Where("uf.? = ?", bun.Ident(scopeCol), userID).
		Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	var edges []userFollower
	err = pg.bun.NewSelect().
		Model(&edges).
		Relation(relation).
		Where("uf.? = ?", bun.Ident(scopeCol), userID).
		Order("uf.created_at ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("scan: %w", err)
	}

	out := make([]api.User, 0, len(edges))
	for _, e := range edges {
		u := e.FollowerUser
		if relation == "FollowingUser" {
			u = e.FollowingUser
		}
		if u == nil {
			continue
		}
		out = append(out, u.APIUser())
	}
	return out, total, nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
