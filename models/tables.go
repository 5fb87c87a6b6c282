package models

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	FirstName    string    `gorm:"size:150" json:"first_name"`
	LastName     string    `gorm:"size:150" json:"last_name"`
	Email        string    `gorm:"size:254" json:"email,omitempty"` // left empty when a public author view is preloaded
	PasswordHash string    `gorm:"not null" json:"-"`
	IsStaff      bool      `gorm:"default:false" json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
}

type Post struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Title      string          `gorm:"size:50;not null" json:"title"`
	Subheader  string          `gorm:"size:100;not null" json:"subheader"`
	Text       string          `gorm:"type:text;not null" json:"text"`
	PubDate    datatypes.Date  `gorm:"not null;index" json:"pub_date"` // written once by content.Store.CreatePost
	ModifyDate *datatypes.Date `json:"modify_date"`
	Image      string          `gorm:"size:255" json:"image,omitempty"` // relative to the media root, e.g. posts/<name>.png
}

// ImageURL returns the public URL of the attached image, or "" when there is none.
func (p *Post) ImageURL(mediaURL string) string {
	if p.Image == "" {
		return ""
	}
	return mediaURL + p.Image
}

type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PostID      uint      `gorm:"not null;index" json:"post_id"`
	Post        *Post     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"post,omitempty"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	Author      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author,omitempty"`
	CommentText string    `gorm:"type:text;not null" json:"comment_text"`
	Created     time.Time `gorm:"autoCreateTime" json:"created"`
}

// Favourite is a like. At most one row exists per (liker, post) pair.
type Favourite struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	LikerID uint  `gorm:"not null;uniqueIndex:idx_liker_post" json:"liker_id"`
	Liker   *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	PostID  uint  `gorm:"not null;uniqueIndex:idx_liker_post" json:"post_id"`
	Post    *Post `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

type Direction string

const (
	ToAuthor   Direction = "TO_AUTHOR"
	FromAuthor Direction = "FROM_AUTHOR"
)

// Message is one entry of the conversation between the author and an interlocutor.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	InterlocutorID uint      `gorm:"not null;index" json:"interlocutor_id"`
	Interlocutor   *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Direction      Direction `gorm:"size:11;not null" json:"direction"`
	MessageText    string    `gorm:"type:text;not null" json:"message_text"`
	SendTime       time.Time `gorm:"autoCreateTime" json:"send_time"`
}

// All lists every record type in dependency order, for migrations.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Post{},
		&Comment{},
		&Favourite{},
		&Message{},
	}
}
