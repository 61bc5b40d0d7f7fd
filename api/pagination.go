package api

import (
	"net/http"
	"strconv"
)

// defaultPageSize is the number of items on a page when the caller
// does not ask for one. Follower/following listings use a larger
// default, matching what the clients render.
const (
	defaultPageSize       = 25
	defaultFollowPageSize = 40
)

// Pagination is the envelope attached to every list response.
// TotalCount comes from a count query under the same scope filters as
// the page fetch; CurrentPage echoes the caller's requested page
// verbatim, even when it is out of range.
type Pagination struct {
	TotalCount  int `json:"totalCount"`
	CurrentPage int `json:"currentPage"`
}

// A pageRequest is a parsed pageNum/numPerPage pair. Page numbers are
// 1-based; values <= 0 are treated as page 1 when computing the
// offset, but the raw requested value is still echoed back.
type pageRequest struct {
	requested  int
	numPerPage int
}

func (p pageRequest) limit() int { return p.numPerPage }

func (p pageRequest) offset() int {
	page := p.requested
	if page <= 0 {
		page = 1
	}
	return p.numPerPage * (page - 1)
}

func (p pageRequest) pagination(totalCount int) Pagination {
	return Pagination{TotalCount: totalCount, CurrentPage: p.requested}
}

// pageFromRequest reads pageNum and numPerPage from the query string.
// Missing or malformed values default rather than fail.
func pageFromRequest(r *http.Request, defaultSize int) pageRequest {
	p := pageRequest{requested: 1, numPerPage: defaultSize}
	if v, err := strconv.Atoi(r.URL.Query().Get("pageNum")); err == nil {
		p.requested = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("numPerPage")); err == nil && v > 0 {
		p.numPerPage = v
	}
	return p
}
