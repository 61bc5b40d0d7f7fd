package api

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

type messagesResponse struct {
	Messages   []Message  `json:"messages"`
	Pagination Pagination `json:"pagination"`
}

// createMessage inserts a post or reply. Creating a reply bumps the
// parent's sub_reply_count; every message bumps the owning group's
// messages_count or media_count depending on type. Deleting a message
// later does not undo these increments.
func (a *API) createMessage(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Title    string  `json:"title" validate:"required"`
		Text     string  `json:"text"`
		ImageURL string  `json:"image_url"`
		VideoURL string  `json:"video_url"`
		GroupID  string  `json:"group_id" validate:"required"`
		ParentID *string `json:"parent_id"`
		Type     int     `json:"type"`
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

	msg, err := a.DB.InsertMessage(r.Context(), Message{
		Title:     body.Title,
		Text:      body.Text,
		ImageURL:  body.ImageURL,
		VideoURL:  body.VideoURL,
		CreatedBy: userID,
		GroupID:   body.GroupID,
		ParentID:  body.ParentID,
		Type:      body.Type,
		CreatedAt: time.Now(),
	})
	if err != nil {
		a.respondAppError(w, err, "Could not insert message")
		return
	}

	if err := a.recordMessageCreated(r.Context(), msg); err != nil {
		a.respondAppError(w, err, "Could not update counters")
		return
	}

	a.respond(w, http.StatusCreated, msg)
}

// recordMessageCreated applies the creation side effects: the parent's
// reply counter and the group's post counters. Both updates are
// guarded, so a parent or group deleted in the meantime is a silent
// no-op rather than an error.
func (a *API) recordMessageCreated(ctx context.Context, msg Message) error {
	if msg.ParentID != nil {
		if err := a.DB.IncrMessageCounter(ctx, *msg.ParentID, CounterSubReply, 1); err != nil {
			return err
		}
	}
	field := CounterMessages
	if msg.Type != 0 {
		field = CounterMedia
	}
	return a.DB.IncrGroupCounter(ctx, msg.GroupID, field, 1)
}

func (a *API) getMessage(w http.ResponseWriter, r *http.Request) {
	msg, err := a.DB.GetMessage(r.Context(), r.PathValue("messageID"))
	if err != nil {
		a.respondAppError(w, err, "Could not get message")
		return
	}

	msgs := []Message{msg}
	if err := a.annotate(r.Context(), a.viewer(r), msgs); err != nil {
		a.respondAppError(w, err, "Could not annotate message")
		return
	}
	a.respond(w, http.StatusOK, msgs[0])
}

// deleteMessage hard-deletes the row. Counters on the parent and the
// group are left as they are; orphaned ledger rows stay behind and the
// guarded counter updates tolerate them.
func (a *API) deleteMessage(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Message string `json:"message"`
	}
	if err := a.DB.DeleteMessage(r.Context(), r.PathValue("messageID")); err != nil {
		a.respondAppError(w, err, "Could not delete message")
		return
	}
	a.respond(w, http.StatusOK, response{Message: "Message removed"})
}

// messageScope builds the composable scope filters shared by every
// message listing: author, group, parent (the literal "null" means
// top-level only) and type.
func messageScope(r *http.Request) MessageQuery {
	var q MessageQuery
	params := r.URL.Query()

	q.AuthorID = params.Get("userId")
	q.GroupID = params.Get("groupId")

	if parent := params.Get("parentId"); parent == "null" {
		q.TopLevel = true
	} else if parent != "" {
		q.ParentID = parent
	}

	if t := params.Get("type"); t != "" {
		if v, err := strconv.Atoi(t); err == nil {
			q.Type = &v
		}
	}
	return q
}

func (a *API) listFilteredMessages(w http.ResponseWriter, r *http.Request) {
	q := messageScope(r)
	q.Order = OrderField
	q.SortKey = r.URL.Query().Get("filterKey")
	q.SortDesc = r.URL.Query().Get("direction") == "desc"
	a.listMessagesWith(w, r, q)
}

func (a *API) listPopularMessages(w http.ResponseWriter, r *http.Request) {
	q := messageScope(r)
	q.Order = OrderPopular
	a.listMessagesWith(w, r, q)
}

func (a *API) listPinnedMessages(w http.ResponseWriter, r *http.Request) {
	q := messageScope(r)
	q.Order = OrderPinned
	a.listMessagesWith(w, r, q)
}

// listMyGroupsMessages serves the "my feed": messages whose group the
// viewer follows, newest first. The followed-group id set is resolved
// up front (cache, then store) and applied as a scope filter before
// the count and page queries, so the pagination contract holds.
func (a *API) listMyGroupsMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireViewer(w, r)
	if !ok {
		return
	}

	groupIDs, err := a.followedGroupIDs(r.Context(), userID)
	if err != nil {
		a.respondAppError(w, err, "Could not resolve followed groups")
		return
	}
	if len(groupIDs) == 0 {
		page := pageFromRequest(r, defaultPageSize)
		a.respond(w, http.StatusOK, messagesResponse{
			Messages:   []Message{},
			Pagination: page.pagination(0),
		})
		return
	}

	q := messageScope(r)
	q.Order = OrderRecent
	q.GroupIDs = groupIDs
	a.listMessagesWith(w, r, q)
}

// followedGroupIDs resolves the viewer's followed-group id set,
// preferring the cache. Cache write failures only cost the next
// request a store round-trip, so they are logged and dropped.
func (a *API) followedGroupIDs(ctx context.Context, userID string) ([]string, error) {
	ids, hit, err := a.Cache.FollowedGroupIDs(ctx, userID)
	if err != nil {
		a.Logger.Error("Could not read followed groups from cache", "error", err.Error())
	} else if hit {
		return ids, nil
	}

	ids, err = a.DB.ListFollowedGroupIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		if err := a.Cache.SetFollowedGroupIDs(ctx, userID, ids); err != nil {
			a.Logger.Error("Could not cache followed groups", "error", err.Error())
		}
	}
	return ids, nil
}

// listMessagesWith runs the two-phase fetch-then-annotate listing:
// count and page queries under the same scope, then one batched ledger
// lookup for the viewer's flags.
func (a *API) listMessagesWith(w http.ResponseWriter, r *http.Request, q MessageQuery) {
	page := pageFromRequest(r, defaultPageSize)
	q.Limit = page.limit()
	q.Offset = page.offset()

	msgs, total, err := a.DB.ListMessages(r.Context(), q)
	if err != nil {
		a.respondAppError(w, err, "Could not list messages")
		return
	}
	if msgs == nil {
		msgs = []Message{}
	}

	if err := a.annotate(r.Context(), a.viewer(r), msgs); err != nil {
		a.respondAppError(w, err, "Could not annotate messages")
		return
	}

	a.respond(w, http.StatusOK, messagesResponse{
		Messages:   msgs,
		Pagination: page.pagination(total),
	})
}
