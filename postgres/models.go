package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/saqibsattar03/basecamp-server/api"
)

// A user holds the externally-managed account row. This subsystem only
// ever reads the public fields when populating follower listings.
type user struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:",pk,type:uuid"`
	FirstName string    `bun:"first_name,notnull"`
	LastName  string    `bun:"last_name,notnull"`
	Username  string    `bun:",notnull,unique"`
	Email     string    `bun:",notnull,unique"`
	Bio       string    `bun:",nullzero"`
	Avatar    string    `bun:",nullzero"`
	CreatedAt time.Time `bun:",nullzero,default:now()"`
}

type group struct {
	bun.BaseModel `bun:"table:groups,alias:g"`

	ID            string    `bun:",pk,type:uuid"`
	Name          string    `bun:",notnull"`
	Username      string    `bun:",notnull,unique"`
	Location      string    `bun:",nullzero"`
	ProfileImage  string    `bun:"profile_image,nullzero"`
	CreatedBy     string    `bun:"created_by,notnull,type:uuid"`
	MessagesCount int       `bun:"messages_count,notnull,default:0"`
	MediaCount    int       `bun:"media_count,notnull,default:0"`
	CreatedAt     time.Time `bun:",nullzero,default:now()"`

	// Transient rank input, filled by a correlated subquery in group
	// listings. Not a column.
	FollowersCount int `bun:"followers_count,scanonly"`
}

// A groupFollower is one membership row in a group's follower set. The
// unique (group_id, user_id) pair gives the set its semantics.
type groupFollower struct {
	bun.BaseModel `bun:"table:group_followers,alias:gf"`

	GroupID   string    `bun:"group_id,pk,type:uuid"`
	UserID    string    `bun:"user_id,pk,type:uuid"`
	CreatedAt time.Time `bun:",nullzero,default:now()"`
}

type message struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID            string    `bun:",pk,type:uuid"`
	Title         string    `bun:",notnull"`
	Text          string    `bun:",nullzero"`
	ImageURL      string    `bun:"image_url,nullzero"`
	VideoURL      string    `bun:"video_url,nullzero"`
	CreatedBy     string    `bun:"created_by,notnull,type:uuid"`
	GroupID       string    `bun:"group_id,notnull,type:uuid"`
	ParentID      *string   `bun:"parent_id,type:uuid"`
	Type          int       `bun:",notnull,default:0"`
	LikeCount     int       `bun:"like_count,notnull,default:0"`
	DislikeCount  int       `bun:"dislike_count,notnull,default:0"`
	FavCount      int       `bun:"fav_count,notnull,default:0"`
	SubReplyCount int       `bun:"sub_reply_count,notnull,default:0"`
	CreatedAt     time.Time `bun:",nullzero,default:now()"`
}

// A messageStat is the per-(message, user) engagement ledger row.
type messageStat struct {
	bun.BaseModel `bun:"table:message_stats,alias:ms"`

	ID         string    `bun:",pk,type:uuid"`
	MessageID  string    `bun:"message_id,notnull,type:uuid"`
	UserID     string    `bun:"user_id,notnull,type:uuid"`
	IsLiked    bool      `bun:"is_liked,notnull,default:false"`
	IsDisliked bool      `bun:"is_disliked,notnull,default:false"`
	IsFav      bool      `bun:"is_fav,notnull,default:false"`
	CreatedAt  time.Time `bun:",nullzero,default:now()"`
	UpdatedAt  time.Time `bun:",nullzero,default:now()"`
}

type userFollower struct {
	bun.BaseModel `bun:"table:user_followers,alias:uf"`

	ID        string    `bun:",pk,type:uuid"`
	Follower  string    `bun:",notnull,type:uuid"`
	Following string    `bun:",notnull,type:uuid"`
	CreatedAt time.Time `bun:",nullzero,default:now()"`

	FollowerUser  *user `bun:"rel:belongs-to,join:follower=id"`
	FollowingUser *user `bun:"rel:belongs-to,join:following=id"`
}

func (u user) APIUser() api.User {
	return api.User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Bio:       u.Bio,
		Avatar:    u.Avatar,
	}
}

func (g group) APIGroup() api.Group {
	return api.Group{
		ID:             g.ID,
		Name:           g.Name,
		Username:       g.Username,
		Location:       g.Location,
		ProfileImage:   g.ProfileImage,
		CreatedBy:      g.CreatedBy,
		MessagesCount:  g.MessagesCount,
		MediaCount:     g.MediaCount,
		FollowersCount: g.FollowersCount,
		CreatedAt:      g.CreatedAt,
	}
}

func (m message) APIMessage() api.Message {
	return api.Message{
		ID:            m.ID,
		Title:         m.Title,
		Text:          m.Text,
		ImageURL:      m.ImageURL,
		VideoURL:      m.VideoURL,
		CreatedBy:     m.CreatedBy,
		GroupID:       m.GroupID,
		ParentID:      m.ParentID,
		Type:          m.Type,
		LikeCount:     m.LikeCount,
		DislikeCount:  m.DislikeCount,
		FavCount:      m.FavCount,
		SubReplyCount: m.SubReplyCount,
		CreatedAt:     m.CreatedAt,
	}
}

func (s messageStat) APIRecord() api.EngagementRecord {
	return api.EngagementRecord{
		ID:         s.ID,
		MessageID:  s.MessageID,
		UserID:     s.UserID,
		IsLiked:    s.IsLiked,
		IsDisliked: s.IsDisliked,
		IsFav:      s.IsFav,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

func (uf userFollower) APIEdge() api.FollowEdge {
	return api.FollowEdge{
		ID:        uf.ID,
		Follower:  uf.Follower,
		Following: uf.Following,
		CreatedAt: uf.CreatedAt,
	}
}
