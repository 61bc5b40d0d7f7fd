package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/saqibsattar03/basecamp-server/pkg/apperr"
)

// A DB provides the storage layer for messages, groups, the
// engagement ledger and the follow graph.
type DB interface {
	// Messages.
	InsertMessage(ctx context.Context, msg Message) (Message, error)
	GetMessage(ctx context.Context, id string) (Message, error)
	DeleteMessage(ctx context.Context, id string) error
	ListMessages(ctx context.Context, q MessageQuery) ([]Message, int, error)

	// Derived counters. Both increments are guarded conditional
	// updates: a vanished target row is a silent no-op.
	IncrMessageCounter(ctx context.Context, messageID string, field CounterField, delta int) error
	IncrGroupCounter(ctx context.Context, groupID string, field CounterField, delta int) error

	// Engagement ledger.
	GetEngagement(ctx context.Context, messageID, userID string) (EngagementRecord, error)
	GetEngagementByID(ctx context.Context, id string) (EngagementRecord, error)
	InsertEngagement(ctx context.Context, rec EngagementRecord) (EngagementRecord, error)
	UpdateEngagementFlags(ctx context.Context, rec EngagementRecord) error
	ListEngagements(ctx context.Context, userID string, messageIDs []string) ([]EngagementRecord, error)

	// Follow graph.
	ToggleFollow(ctx context.Context, follower, following string) (FollowEdge, bool, error)
	FollowExists(ctx context.Context, follower, following string) (bool, error)
	CountFollowers(ctx context.Context, userID string) (int, error)
	CountFollowing(ctx context.Context, userID string) (int, error)
	ListFollowers(ctx context.Context, userID string, limit, offset int) ([]User, int, error)
	ListFollowings(ctx context.Context, userID string, limit, offset int) ([]User, int, error)

	// Groups.
	InsertGroup(ctx context.Context, g Group) (Group, error)
	GetGroup(ctx context.Context, id string) (Group, error)
	ListGroups(ctx context.Context, q GroupQuery) ([]Group, int, error)
	ToggleGroupFollower(ctx context.Context, groupID, userID string) (bool, error)
	ListFollowedGroupIDs(ctx context.Context, userID string) ([]string, error)
}

// A Cache provides a storage layer that caches each viewer's
// followed-group id set, used when scoping the my-groups feed.
type Cache interface {
	FollowedGroupIDs(ctx context.Context, userID string) ([]string, bool, error)
	SetFollowedGroupIDs(ctx context.Context, userID string, ids []string) error
	InvalidateFollowedGroupIDs(ctx context.Context, userID string) error
}

// API provides the REST endpoints for the engagement and feed
// subsystem.
type API struct {
	Logger *slog.Logger
	DB     DB
	Cache  Cache
	Val    *Validator

	once sync.Once
	mux  *http.ServeMux
}

func (a *API) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /messages", a.createMessage)
	mux.HandleFunc("GET /messages/filter", a.listFilteredMessages)
	mux.HandleFunc("GET /messages/popular", a.listPopularMessages)
	mux.HandleFunc("GET /messages/pinned", a.listPinnedMessages)
	mux.HandleFunc("GET /messages/my-groups", a.listMyGroupsMessages)
	mux.HandleFunc("GET /messages/{messageID}", a.getMessage)
	mux.HandleFunc("DELETE /messages/{messageID}", a.deleteMessage)

	mux.HandleFunc("POST /message-stats", a.setEngagement)
	mux.HandleFunc("GET /message-stats/{statID}", a.getEngagement)

	mux.HandleFunc("POST /user-followers", a.toggleFollow)
	mux.HandleFunc("GET /user-followers/exists", a.followExists)
	mux.HandleFunc("GET /users/{userID}/follow-counts", a.followCounts)
	mux.HandleFunc("GET /users/{userID}/followers", a.listFollowers)
	mux.HandleFunc("GET /users/{userID}/followings", a.listFollowings)

	mux.HandleFunc("POST /groups", a.createGroup)
	mux.HandleFunc("GET /groups/filter", a.listFilteredGroups)
	mux.HandleFunc("GET /groups/popular", a.listPopularGroups)
	mux.HandleFunc("GET /groups/my", a.listMyGroups)
	mux.HandleFunc("GET /groups/{groupID}", a.getGroup)
	mux.HandleFunc("PUT /groups/{groupID}/followers", a.toggleGroupFollower)

	a.mux = mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)
	a.Logger.Info("Request received", "method", r.Method, "path", r.URL.Path)
	a.mux.ServeHTTP(w, r)
}

// viewerHeader carries the authenticated user id. The identity
// collaborator sets it upstream; this subsystem trusts it as-is.
const viewerHeader = "X-User-ID"

// viewer returns the authenticated user id for the request. The empty
// string means the identity collaborator did not set one.
func (a *API) viewer(r *http.Request) string {
	return r.Header.Get(viewerHeader)
}

// requireViewer writes a 401 and returns false when the request has no
// authenticated user id.
func (a *API) requireViewer(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := a.viewer(r)
	if id == "" {
		a.respondError(w, http.StatusUnauthorized, errors.New("missing "+viewerHeader+" header"), "Missing authenticated user")
		return "", false
	}
	return id, true
}

func (a *API) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Logger.Error("Could not encode JSON body", "error", err.Error())
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, err error, msg string) {
	type response struct {
		Error string `json:"error"`
	}
	a.Logger.Error("Error", "error", err.Error())
	a.respond(w, status, response{Error: msg})
}

// respondAppError maps error kinds to HTTP statuses. NotFound,
// Conflict and InvalidArgument surface their own message; anything
// else stays opaque.
func (a *API) respondAppError(w http.ResponseWriter, err error, msg string) {
	switch apperr.CodeOf(err) {
	case apperr.CodeNotFound:
		a.respondError(w, http.StatusNotFound, err, err.Error())
	case apperr.CodeConflict:
		a.respondError(w, http.StatusConflict, err, err.Error())
	case apperr.CodeInvalidArgument:
		a.respondError(w, http.StatusBadRequest, err, err.Error())
	default:
		a.respondError(w, http.StatusInternalServerError, err, msg)
	}
}

func (a *API) validateBody(w http.ResponseWriter, s interface{}) bool {
	errs := a.Val.ValidateStruct(s)
	type response struct {
		Errors []ValidationError `json:"errors"`
	}

	if len(errs) > 0 {
		a.respond(w, http.StatusBadRequest, &response{
			Errors: errs,
		})
		return false
	}
	return true
}

func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return false
	}
	if err := r.Body.Close(); err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not close request body")
		return false
	}
	return true
}
