package api

import (
	"context"
	"net/http"

	"github.com/saqibsattar03/basecamp-server/pkg/apperr"
)

// setEngagement toggles one of the three ledger flags for the
// (message, viewer) pair and returns the resulting record, so the
// caller can tell "now liked" from "now neutral" without a follow-up
// read.
func (a *API) setEngagement(w http.ResponseWriter, r *http.Request) {
	type request struct {
		MessageID string `json:"message_id" validate:"required"`
		Flag      string `json:"flag" validate:"required,oneof=like dislike fav"`
	}

	userID, ok := a.requireViewer(w, r)
	if !ok {
		return
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}
	if valid := a.validateBody(w, &body); !valid {
		return
	}

	rec, created, err := a.applyEngagement(r.Context(), body.MessageID, userID, EngagementFlag(body.Flag))
	if err != nil {
		a.respondAppError(w, err, "Could not update engagement")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	a.respond(w, status, rec)
}

func (a *API) getEngagement(w http.ResponseWriter, r *http.Request) {
	rec, err := a.DB.GetEngagementByID(r.Context(), r.PathValue("statID"))
	if err != nil {
		a.respondAppError(w, err, "Could not get engagement record")
		return
	}
	a.respond(w, http.StatusOK, rec)
}

// applyEngagement implements the toggle semantics. Liking while
// disliked clears the dislike first; fav is independent of both. Every
// flag flip is paired with its own guarded counter delta against the
// message row, issued before the ledger flags are persisted, so a
// failed delta never leaves a flipped flag behind. Between the two
// statements a reader can observe a flag without its counter for one
// statement's duration; that window is inherent to the two-phase
// write.
func (a *API) applyEngagement(ctx context.Context, messageID, userID string, flag EngagementFlag) (EngagementRecord, bool, error) {
	rec, err := a.DB.GetEngagement(ctx, messageID, userID)
	if err != nil {
		if !apperr.IsNotFound(err) {
			return EngagementRecord{}, false, err
		}
		return a.createEngagement(ctx, messageID, userID, flag)
	}

	switch flag {
	case FlagLike:
		if rec.IsDisliked {
			rec.IsDisliked = false
			if err := a.DB.IncrMessageCounter(ctx, messageID, CounterDislike, -1); err != nil {
				return EngagementRecord{}, false, err
			}
		}
		rec.IsLiked = !rec.IsLiked
		if err := a.DB.IncrMessageCounter(ctx, messageID, CounterLike, toggleDelta(rec.IsLiked)); err != nil {
			return EngagementRecord{}, false, err
		}
	case FlagDislike:
		if rec.IsLiked {
			rec.IsLiked = false
			if err := a.DB.IncrMessageCounter(ctx, messageID, CounterLike, -1); err != nil {
				return EngagementRecord{}, false, err
			}
		}
		rec.IsDisliked = !rec.IsDisliked
		if err := a.DB.IncrMessageCounter(ctx, messageID, CounterDislike, toggleDelta(rec.IsDisliked)); err != nil {
			return EngagementRecord{}, false, err
		}
	case FlagFav:
		rec.IsFav = !rec.IsFav
		if err := a.DB.IncrMessageCounter(ctx, messageID, CounterFav, toggleDelta(rec.IsFav)); err != nil {
			return EngagementRecord{}, false, err
		}
	default:
		return EngagementRecord{}, false, apperr.InvalidArg("unknown engagement flag %q", flag)
	}

	if err := a.DB.UpdateEngagementFlags(ctx, rec); err != nil {
		return EngagementRecord{}, false, err
	}
	return rec, false, nil
}

// createEngagement lazily creates the ledger row on first engagement,
// with only the requested flag set, then bumps the matching counter.
func (a *API) createEngagement(ctx context.Context, messageID, userID string, flag EngagementFlag) (EngagementRecord, bool, error) {
	rec := EngagementRecord{
		MessageID: messageID,
		UserID:    userID,
	}
	switch flag {
	case FlagLike:
		rec.IsLiked = true
	case FlagDislike:
		rec.IsDisliked = true
	case FlagFav:
		rec.IsFav = true
	default:
		return EngagementRecord{}, false, apperr.InvalidArg("unknown engagement flag %q", flag)
	}

	created, err := a.DB.InsertEngagement(ctx, rec)
	if err != nil {
		return EngagementRecord{}, false, err
	}
	if err := a.DB.IncrMessageCounter(ctx, messageID, flagCounter(flag), 1); err != nil {
		return EngagementRecord{}, false, err
	}
	return created, true, nil
}

func flagCounter(flag EngagementFlag) CounterField {
	switch flag {
	case FlagDislike:
		return CounterDislike
	case FlagFav:
		return CounterFav
	default:
		return CounterLike
	}
}

func toggleDelta(on bool) int {
	if on {
		return 1
	}
	return -1
}

// annotate merges the viewer's own ledger flags onto a page of
// messages with a single batched lookup. Messages with no ledger row
// keep the all-false default. A viewer-less request is left
// unannotated.
func (a *API) annotate(ctx context.Context, viewerID string, msgs []Message) error {
	if viewerID == "" || len(msgs) == 0 {
		return nil
	}
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	recs, err := a.DB.ListEngagements(ctx, viewerID, ids)
	if err != nil {
		return err
	}
	byMsg := make(map[string]EngagementRecord, len(recs))
	for _, rec := range recs {
		byMsg[rec.MessageID] = rec
	}
	for i := range msgs {
		if rec, ok := byMsg[msgs[i].ID]; ok {
			msgs[i].IsLiked = rec.IsLiked
			msgs[i].IsDisliked = rec.IsDisliked
			msgs[i].IsFav = rec.IsFav
		}
	}
	return nil
}
