package model

import "time"

const (
	RoleParent  = "parent"
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

func ValidRole(role string) bool {
	switch role {
	case RoleParent, RoleStudent, RoleAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	ID                    int64      `json:"id"`
	Name                  *string    `json:"name"`
	Email                 string     `json:"email"`
	PasswordHash          string     `json:"-"`
	Role                  string     `json:"role"`
	RefreshTokenHash      *string    `json:"-"`
	RefreshTokenExpiresAt *time.Time `json:"-"`
	OrgID                 *int64     `json:"org"`
	CreatedAt             time.Time  `json:"createdAt"`
}

// Pseudonym is the label shown on comments and replies.
func (u User) Pseudonym() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return "Anonymous"
}

type Org struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email"`
	Website   string   `json:"website"`
	Details   *string  `json:"details"`
	Logo      *string  `json:"logo"`
	MainPic   *string  `json:"mainPic"`
	OtherPics []string `json:"otherPics"`
	OrgsVideo *string  `json:"orgsVideo"`
}

type Material struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	File        *string `json:"file"`
}

// Author is the public projection of a User attached to a Post.
type Author struct {
	ID   int64   `json:"id"`
	Name *string `json:"name"`
	Role string  `json:"role"`
}

type Post struct {
	ID            int64     `json:"id"`
	Title         *string   `json:"title"`
	Content       string    `json:"content"`
	AuthorID      int64     `json:"-"`
	Author        Author    `json:"author"`
	Media         *string   `json:"media"`
	CreatedAt     time.Time `json:"createdAt"`
	LikesCount    int       `json:"likesCount"`
	DislikesCount int       `json:"dislikesCount"`
	Comments      []Comment `json:"comments,omitempty"`
}

type Comment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	PostID    int64     `json:"postId"`
	Replies   []Reply   `json:"replies"`
}

type Reply struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	CommentID int64     `json:"commentId"`
}

// Reaction is a like or a dislike. A user holds at most one reaction per post.
type Reaction string

const (
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)
