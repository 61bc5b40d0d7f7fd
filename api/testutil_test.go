package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/neilotoole/slogt"

	"github.com/saqibsattar03/basecamp-server/api/validator"
	"github.com/saqibsattar03/basecamp-server/pkg/apperr"
)

// memdb is an in-memory DB used by the handler tests. It mirrors the
// store contract closely enough to exercise the toggle and counter
// semantics end to end: guarded counter updates no-op on missing rows,
// decrements stop at zero, and listings filter before they paginate.
type memdb struct {
	mu       sync.Mutex
	users    map[string]User
	groups   map[string]Group
	messages map[string]Message
	stats    []EngagementRecord
	edges    []FollowEdge
	members  []groupMember
	seq      int

	// fail maps a method name to an error that method returns,
	// for exercising error paths.
	fail map[string]error
}

type groupMember struct {
	GroupID   string
	UserID    string
	CreatedAt time.Time
}

func newMemDB() *memdb {
	return &memdb{
		users:    make(map[string]User),
		groups:   make(map[string]Group),
		messages: make(map[string]Message),
		fail:     make(map[string]error),
	}
}

func (db *memdb) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *memdb) failure(method string) error {
	return db.fail[method]
}

func (db *memdb) InsertMessage(_ context.Context, msg Message) (Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("InsertMessage"); err != nil {
		return Message{}, err
	}
	if msg.ID == "" {
		msg.ID = db.nextID("msg")
	}
	db.messages[msg.ID] = msg
	return msg, nil
}

func (db *memdb) GetMessage(_ context.Context, id string) (Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	msg, ok := db.messages[id]
	if !ok {
		return Message{}, apperr.NotFound("no message found with id %s", id)
	}
	return msg, nil
}

func (db *memdb) DeleteMessage(_ context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.messages[id]; !ok {
		return apperr.NotFound("no message found with id %s", id)
	}
	delete(db.messages, id)
	return nil
}

func (db *memdb) ListMessages(_ context.Context, q MessageQuery) ([]Message, int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("ListMessages"); err != nil {
		return nil, 0, err
	}

	var all []Message
	for _, m := range db.messages {
		if q.AuthorID != "" && m.CreatedBy != q.AuthorID {
			continue
		}
		if q.GroupID != "" && m.GroupID != q.GroupID {
			continue
		}
		if q.GroupIDs != nil && !containsString(q.GroupIDs, m.GroupID) {
			continue
		}
		if q.TopLevel && m.ParentID != nil {
			continue
		}
		if q.ParentID != "" && (m.ParentID == nil || *m.ParentID != q.ParentID) {
			continue
		}
		if q.Type != nil && m.Type != *q.Type {
			continue
		}
		all = append(all, m)
	}

	sort.SliceStable(all, func(i, j int) bool {
		switch q.Order {
		case OrderPopular:
			return all[i].LikeCount > all[j].LikeCount
		case OrderPinned:
			return all[i].FavCount > all[j].FavCount
		case OrderRecent:
			return all[i].CreatedAt.After(all[j].CreatedAt)
		default:
			if q.SortDesc {
				return all[i].CreatedAt.After(all[j].CreatedAt)
			}
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
	})

	total := len(all)
	if q.Offset >= total {
		return nil, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return all[q.Offset:end], total, nil
}

func (db *memdb) IncrMessageCounter(_ context.Context, messageID string, field CounterField, delta int) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("IncrMessageCounter"); err != nil {
		return err
	}
	msg, ok := db.messages[messageID]
	if !ok {
		return nil // guarded update: vanished row is a no-op
	}
	bump := func(v int) int {
		if delta < 0 && v <= 0 {
			return v
		}
		return v + delta
	}
	switch field {
	case CounterLike:
		msg.LikeCount = bump(msg.LikeCount)
	case CounterDislike:
		msg.DislikeCount = bump(msg.DislikeCount)
	case CounterFav:
		msg.FavCount = bump(msg.FavCount)
	case CounterSubReply:
		msg.SubReplyCount = bump(msg.SubReplyCount)
	default:
		return fmt.Errorf("counter %q is not a message counter", field)
	}
	db.messages[messageID] = msg
	return nil
}

func (db *memdb) IncrGroupCounter(_ context.Context, groupID string, field CounterField, delta int) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	g, ok := db.groups[groupID]
	if !ok {
		return nil
	}
	switch field {
	case CounterMessages:
		g.MessagesCount += delta
	case CounterMedia:
		g.MediaCount += delta
	default:
		return fmt.Errorf("counter %q is not a group counter", field)
	}
	db.groups[groupID] = g
	return nil
}

func (db *memdb) GetEngagement(_ context.Context, messageID, userID string) (EngagementRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, rec := range db.stats {
		if rec.MessageID == messageID && rec.UserID == userID {
			return rec, nil
		}
	}
	return EngagementRecord{}, apperr.NotFound("no engagement record for message %s", messageID)
}

func (db *memdb) GetEngagementByID(_ context.Context, id string) (EngagementRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, rec := range db.stats {
		if rec.ID == id {
			return rec, nil
		}
	}
	return EngagementRecord{}, apperr.NotFound("no engagement record found with id %s", id)
}

func (db *memdb) InsertEngagement(_ context.Context, rec EngagementRecord) (EngagementRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	rec.ID = db.nextID("stat")
	db.stats = append(db.stats, rec)
	return rec, nil
}

func (db *memdb) UpdateEngagementFlags(_ context.Context, rec EngagementRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i := range db.stats {
		if db.stats[i].ID == rec.ID {
			db.stats[i].IsLiked = rec.IsLiked
			db.stats[i].IsDisliked = rec.IsDisliked
			db.stats[i].IsFav = rec.IsFav
			return nil
		}
	}
	return apperr.NotFound("no engagement record found with id %s", rec.ID)
}

func (db *memdb) ListEngagements(_ context.Context, userID string, messageIDs []string) ([]EngagementRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("ListEngagements"); err != nil {
		return nil, err
	}
	var out []EngagementRecord
	for _, rec := range db.stats {
		if rec.UserID == userID && containsString(messageIDs, rec.MessageID) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (db *memdb) ToggleFollow(_ context.Context, follower, following string) (FollowEdge, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i, e := range db.edges {
		if e.Follower == follower && e.Following == following {
			db.edges = append(db.edges[:i], db.edges[i+1:]...)
			return FollowEdge{}, false, nil
		}
	}
	edge := FollowEdge{
		ID:        db.nextID("edge"),
		Follower:  follower,
		Following: following,
		CreatedAt: time.Now(),
	}
	db.edges = append(db.edges, edge)
	return edge, true, nil
}

func (db *memdb) FollowExists(_ context.Context, follower, following string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, e := range db.edges {
		if e.Follower == follower && e.Following == following {
			return true, nil
		}
	}
	return false, nil
}

func (db *memdb) CountFollowers(_ context.Context, userID string) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, e := range db.edges {
		if e.Following == userID {
			n++
		}
	}
	return n, nil
}

func (db *memdb) CountFollowing(_ context.Context, userID string) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, e := range db.edges {
		if e.Follower == userID {
			n++
		}
	}
	return n, nil
}

func (db *memdb) ListFollowers(_ context.Context, userID string, limit, offset int) ([]User, int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []User
	for _, e := range db.edges {
		if e.Following == userID {
			out = append(out, db.users[e.Follower])
		}
	}
	return pageUsers(out, limit, offset)
}

func (db *memdb) ListFollowings(_ context.Context, userID string, limit, offset int) ([]User, int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []User
	for _, e := range db.edges {
		if e.Follower == userID {
			out = append(out, db.users[e.Following])
		}
	}
	return pageUsers(out, limit, offset)
}

func (db *memdb) InsertGroup(_ context.Context, g Group) (Group, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if g.ID == "" {
		g.ID = db.nextID("grp")
	}
	db.groups[g.ID] = g
	return g, nil
}

func (db *memdb) GetGroup(_ context.Context, id string) (Group, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	g, ok := db.groups[id]
	if !ok {
		return Group{}, apperr.NotFound("no group found with id %s", id)
	}
	g.FollowersCount = db.memberCount(id)
	return g, nil
}

func (db *memdb) ListGroups(_ context.Context, q GroupQuery) ([]Group, int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var all []Group
	for _, g := range db.groups {
		if q.Search != "" && !groupMatches(g, q.Search) {
			continue
		}
		if q.FollowedBy != "" && !db.isMember(g.ID, q.FollowedBy) {
			continue
		}
		g.FollowersCount = db.memberCount(g.ID)
		all = append(all, g)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if q.Popular {
			return all[i].FollowersCount > all[j].FollowersCount
		}
		if q.SortDesc {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	total := len(all)
	if q.Offset >= total {
		return nil, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return all[q.Offset:end], total, nil
}

func (db *memdb) ToggleGroupFollower(_ context.Context, groupID, userID string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i, m := range db.members {
		if m.GroupID == groupID && m.UserID == userID {
			db.members = append(db.members[:i], db.members[i+1:]...)
			return false, nil
		}
	}
	db.members = append(db.members, groupMember{GroupID: groupID, UserID: userID, CreatedAt: time.Now()})
	return true, nil
}

func (db *memdb) ListFollowedGroupIDs(_ context.Context, userID string) ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("ListFollowedGroupIDs"); err != nil {
		return nil, err
	}
	var ids []string
	for _, m := range db.members {
		if m.UserID == userID {
			ids = append(ids, m.GroupID)
		}
	}
	return ids, nil
}

func (db *memdb) memberCount(groupID string) int {
	n := 0
	for _, m := range db.members {
		if m.GroupID == groupID {
			n++
		}
	}
	return n
}

func (db *memdb) isMember(groupID, userID string) bool {
	for _, m := range db.members {
		if m.GroupID == groupID && m.UserID == userID {
			return true
		}
	}
	return false
}

func groupMatches(g Group, search string) bool {
	s := strings.ToLower(search)
	return strings.Contains(strings.ToLower(g.Name), s) ||
		strings.Contains(strings.ToLower(g.Username), s) ||
		strings.Contains(strings.ToLower(g.Location), s)
}

func pageUsers(all []User, limit, offset int) ([]User, int, error) {
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// testcache is a function-struct Cache fake. Unset functions behave
// like an always-miss cache that accepts writes.
type testcache struct {
	T                *testing.T
	followedGroupIDs func(t *testing.T, userID string) ([]string, bool, error)
	setFollowed      func(t *testing.T, userID string, ids []string) error
	invalidate       func(t *testing.T, userID string) error
}

func (c *testcache) FollowedGroupIDs(_ context.Context, userID string) ([]string, bool, error) {
	if c.followedGroupIDs == nil {
		return nil, false, nil
	}
	return c.followedGroupIDs(c.T, userID)
}

func (c *testcache) SetFollowedGroupIDs(_ context.Context, userID string, ids []string) error {
	if c.setFollowed == nil {
		return nil
	}
	return c.setFollowed(c.T, userID, ids)
}

func (c *testcache) InvalidateFollowedGroupIDs(_ context.Context, userID string) error {
	if c.invalidate == nil {
		return nil
	}
	return c.invalidate(c.T, userID)
}

func checkStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("Got HTTP status %d, want %d", got, want)
	}
}

func checkBody(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	gotBody := normalizeJSON(t, resp.Body)
	wantBody := normalizeJSON(t, bytes.NewReader([]byte(want)))
	if gotBody != wantBody {
		t.Errorf("Body does not match\nGot\n  %s\n\nWant\n  %s", gotBody, wantBody)
	}
}

func normalizeJSON(t *testing.T, r io.Reader) string {
	t.Helper()
	var buf bytes.Buffer
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Could not read JSON: %v", err)
	}
	if err := json.Indent(&buf, b, "  ", "  "); err != nil {
		t.Fatalf("Could not indent JSON: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func newTestServer(t *testing.T, db DB, cache Cache) *httptest.Server {
	t.Helper()
	if cache == nil {
		cache = &testcache{T: t}
	}
	a := &API{
		Logger: slogt.New(t),
		DB:     db,
		Cache:  cache,
		Val:    validator.New(),
	}
	srv := httptest.NewServer(a)
	t.Cleanup(srv.Close)
	return srv
}

// doRequest issues a request with the identity header set when viewer
// is non-empty.
func doRequest(t *testing.T, method, url, viewer, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	if viewer != "" {
		req.Header.Set(viewerHeader, viewer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("Could not decode response body: %v", err)
	}
}
