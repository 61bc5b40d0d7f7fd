package api

import "net/http"

type usersResponse struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// toggleFollow serves both follow and unfollow: posting the same pair
// again removes the edge. The response reports the resulting state so
// the caller does not issue a follow-up read.
func (a *API) toggleFollow(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Following string `json:"following" validate:"required"`
	}
	type response struct {
		Followed bool        `json:"followed"`
		Edge     *FollowEdge `json:"edge,omitempty"`
	}

	follower, ok := a.requireViewer(w, r)
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

	edge, followed, err := a.DB.ToggleFollow(r.Context(), follower, body.Following)
	if err != nil {
		a.respondAppError(w, err, "Could not toggle follow")
		return
	}

	res := response{Followed: followed}
	if followed {
		res.Edge = &edge
	}
	a.respond(w, http.StatusOK, res)
}

func (a *API) followExists(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Exists bool `json:"exists"`
	}

	follower := r.URL.Query().Get("follower")
	following := r.URL.Query().Get("following")
	if follower == "" {
		follower = a.viewer(r)
	}

	exists, err := a.DB.FollowExists(r.Context(), follower, following)
	if err != nil {
		a.respondAppError(w, err, "Could not check follow edge")
		return
	}
	a.respond(w, http.StatusOK, response{Exists: exists})
}

// followCounts returns both counts, computed on demand rather than
// cached.
func (a *API) followCounts(w http.ResponseWriter, r *http.Request) {
	type response struct {
		FollowerCount  int `json:"follower_count"`
		FollowingCount int `json:"following_count"`
	}

	userID := r.PathValue("userID")

	followers, err := a.DB.CountFollowers(r.Context(), userID)
	if err != nil {
		a.respondAppError(w, err, "Could not count followers")
		return
	}
	following, err := a.DB.CountFollowing(r.Context(), userID)
	if err != nil {
		a.respondAppError(w, err, "Could not count followings")
		return
	}

	a.respond(w, http.StatusOK, response{
		FollowerCount:  followers,
		FollowingCount: following,
	})
}

func (a *API) listFollowers(w http.ResponseWriter, r *http.Request) {
	page := pageFromRequest(r, defaultFollowPageSize)
	users, total, err := a.DB.ListFollowers(r.Context(), r.PathValue("userID"), page.limit(), page.offset())
	if err != nil {
		a.respondAppError(w, err, "Could not list followers")
		return
	}
	if users == nil {
		users = []User{}
	}
	a.respond(w, http.StatusOK, usersResponse{
		Users:      users,
		Pagination: page.pagination(total),
	})
}

func (a *API) listFollowings(w http.ResponseWriter, r *http.Request) {
	page := pageFromRequest(r, defaultFollowPageSize)
	users, total, err := a.DB.ListFollowings(r.Context(), r.PathValue("userID"), page.limit(), page.offset())
	if err != nil {
		a.respondAppError(w, err, "Could not list followings")
		return
	}
	if users == nil {
		users = []User{}
	}
	a.respond(w, http.StatusOK, usersResponse{
		Users:      users,
		Pagination: page.pagination(total),
	})
}
