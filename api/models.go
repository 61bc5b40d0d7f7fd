package api

import "time"

// A User holds the public fields of a user referenced by this
// subsystem. Accounts are created and authenticated elsewhere.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Bio       string `json:"bio,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

// A Group is a named community that users can follow and post into.
// MessagesCount and MediaCount are maintained by message creation and
// are never client-settable.
type Group struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Username       string    `json:"username"`
	Location       string    `json:"location,omitempty"`
	ProfileImage   string    `json:"profile_image,omitempty"`
	CreatedBy      string    `json:"created_by"`
	MessagesCount  int       `json:"messages_count"`
	MediaCount     int       `json:"media_count"`
	FollowersCount int       `json:"followers_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// A Message is a post or a reply. ParentID is nil for top-level posts.
// Type 0 is a text post, anything else is media. The four counters are
// derived from the engagement ledger and the reply tree.
type Message struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Text          string    `json:"text,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	VideoURL      string    `json:"video_url,omitempty"`
	CreatedBy     string    `json:"created_by"`
	GroupID       string    `json:"group_id"`
	ParentID      *string   `json:"parent_id"`
	Type          int       `json:"type"`
	LikeCount     int       `json:"like_count"`
	DislikeCount  int       `json:"dislike_count"`
	FavCount      int       `json:"fav_count"`
	SubReplyCount int       `json:"sub_reply_count"`
	CreatedAt     time.Time `json:"created_at"`

	// Viewer annotation, merged in from the engagement ledger after
	// the page fetch. Defaults to false when the viewer has no record.
	IsLiked    bool `json:"is_liked"`
	IsDisliked bool `json:"is_disliked"`
	IsFav      bool `json:"is_fav"`
}

// An EngagementRecord is the per-(message, user) ledger row. IsLiked
// and IsDisliked are mutually exclusive; IsFav is independent.
type EngagementRecord struct {
	ID         string    `json:"id"`
	MessageID  string    `json:"message_id"`
	UserID     string    `json:"user_id"`
	IsLiked    bool      `json:"is_liked"`
	IsDisliked bool      `json:"is_disliked"`
	IsFav      bool      `json:"is_fav"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// A FollowEdge is a directed (follower, following) pair. At most one
// edge exists per ordered pair.
type FollowEdge struct {
	ID        string    `json:"id"`
	Follower  string    `json:"follower"`
	Following string    `json:"following"`
	CreatedAt time.Time `json:"created_at"`
}

// An EngagementFlag names one of the three toggleable ledger flags.
type EngagementFlag string

const (
	FlagLike    EngagementFlag = "like"
	FlagDislike EngagementFlag = "dislike"
	FlagFav     EngagementFlag = "fav"
)

// A CounterField names a derived counter column. The storage layer
// only accepts fields from this set, so sort and counter requests can
// never reach arbitrary columns.
type CounterField string

const (
	CounterLike     CounterField = "like_count"
	CounterDislike  CounterField = "dislike_count"
	CounterFav      CounterField = "fav_count"
	CounterSubReply CounterField = "sub_reply_count"
	CounterMessages CounterField = "messages_count"
	CounterMedia    CounterField = "media_count"
)

// A MessageOrder selects one of the mutually exclusive sort policies
// for message listings.
type MessageOrder int

const (
	// OrderField sorts by an allow-listed column, ascending by default.
	OrderField MessageOrder = iota
	// OrderPopular sorts by like_count descending.
	OrderPopular
	// OrderPinned sorts by fav_count descending.
	OrderPinned
	// OrderRecent sorts by creation time descending, ignoring any
	// requested sort field.
	OrderRecent
)

// A MessageQuery scopes, sorts and paginates a message listing. All
// scope filters are optional and combine with AND.
type MessageQuery struct {
	AuthorID string
	GroupID  string
	// GroupIDs, when non-nil, restricts results to the given groups.
	// An empty non-nil slice matches nothing.
	GroupIDs []string
	ParentID string
	// TopLevel restricts to messages with no parent.
	TopLevel bool
	Type     *int

	Order    MessageOrder
	SortKey  string
	SortDesc bool

	Limit  int
	Offset int
}

// A GroupQuery scopes, sorts and paginates a group listing. Search is
// a case-insensitive substring match over name, username and location.
type GroupQuery struct {
	Search string
	// FollowedBy restricts to groups followed by the given user.
	FollowedBy string
	// Popular sorts by follower count descending, computed over the
	// whole filtered set before pagination.
	Popular  bool
	SortKey  string
	SortDesc bool

	Limit  int
	Offset int
}
