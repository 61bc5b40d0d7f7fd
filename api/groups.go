package api

import (
	"net/http"
	"time"
)

type groupsResponse struct {
	Groups     []Group    `json:"groups"`
	Pagination Pagination `json:"pagination"`
}

func (a *API) createGroup(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Name         string `json:"name" validate:"required"`
		Username     string `json:"username" validate:"required"`
		Location     string `json:"location"`
		ProfileImage string `json:"profile_image"`
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

	group, err := a.DB.InsertGroup(r.Context(), Group{
		Name:         body.Name,
		Username:     body.Username,
		Location:     body.Location,
		ProfileImage: body.ProfileImage,
		CreatedBy:    userID,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		a.respondAppError(w, err, "Could not insert group")
		return
	}

	a.respond(w, http.StatusCreated, group)
}

func (a *API) getGroup(w http.ResponseWriter, r *http.Request) {
	group, err := a.DB.GetGroup(r.Context(), r.PathValue("groupID"))
	if err != nil {
		a.respondAppError(w, err, "Could not get group")
		return
	}
	a.respond(w, http.StatusOK, group)
}

func (a *API) listFilteredGroups(w http.ResponseWriter, r *http.Request) {
	q := GroupQuery{
		Search:   r.URL.Query().Get("search"),
		SortKey:  r.URL.Query().Get("filterKey"),
		SortDesc: r.URL.Query().Get("direction") == "desc",
	}
	a.listGroupsWith(w, r, q)
}

// listPopularGroups ranks groups by follower count. The count and the
// descending sort run server-side over the whole filtered set before
// pagination, so the rank order is correct relative to the full
// population.
func (a *API) listPopularGroups(w http.ResponseWriter, r *http.Request) {
	q := GroupQuery{
		Search:  r.URL.Query().Get("search"),
		Popular: true,
	}
	a.listGroupsWith(w, r, q)
}

func (a *API) listMyGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireViewer(w, r)
	if !ok {
		return
	}
	q := GroupQuery{
		FollowedBy: userID,
		SortKey:    "created_at",
		SortDesc:   true,
	}
	a.listGroupsWith(w, r, q)
}

// toggleGroupFollower toggles the viewer's membership in the group's
// follower set, with the same toggle semantics as the user follow
// edge. The viewer's cached followed-group set is invalidated either
// way.
func (a *API) toggleGroupFollower(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Followed bool `json:"followed"`
	}

	userID, ok := a.requireViewer(w, r)
	if !ok {
		return
	}
	groupID := r.PathValue("groupID")

	followed, err := a.DB.ToggleGroupFollower(r.Context(), groupID, userID)
	if err != nil {
		a.respondAppError(w, err, "Could not toggle group follower")
		return
	}

	if err := a.Cache.InvalidateFollowedGroupIDs(r.Context(), userID); err != nil {
		a.Logger.Error("Could not invalidate followed groups cache", "error", err.Error())
	}

	a.respond(w, http.StatusOK, response{Followed: followed})
}

func (a *API) listGroupsWith(w http.ResponseWriter, r *http.Request, q GroupQuery) {
	page := pageFromRequest(r, defaultPageSize)
	q.Limit = page.limit()
	q.Offset = page.offset()

	groups, total, err := a.DB.ListGroups(r.Context(), q)
	if err != nil {
		a.respondAppError(w, err, "Could not list groups")
		return
	}
	if groups == nil {
		groups = []Group{}
	}

	a.respond(w, http.StatusOK, groupsResponse{
		Groups:     groups,
		Pagination: page.pagination(total),
	})
}
