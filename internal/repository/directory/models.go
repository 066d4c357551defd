package directory

import (
	"errors"
	"time"
)

var (
	ErrNoMembership = errors.New("user is not a room member")
	ErrUserNotFound = errors.New("user not found")
)

type Role string

const (
	RoleHost   Role = "HOST"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// CanModerate reports whether the role may manage the room's queue.
func (r Role) CanModerate() bool {
	return r == RoleHost || r == RoleAdmin
}

// RoomMember, Video and User mirror the rows of the shared schema the
// directory reads from. They are owned by other services.
type RoomMember struct {
	ID       int64     `gorm:"primaryKey"`
	UserID   int64     `gorm:"uniqueIndex:idx_room_member_user_room;not null"`
	RoomID   int64     `gorm:"uniqueIndex:idx_room_member_user_room;not null"`
	Role     Role      `gorm:"size:16;not null;default:'MEMBER'"`
	JoinedAt time.Time `gorm:"not null"`
}

func (RoomMember) TableName() string {
	return "room_members"
}

type Video struct {
	ID    int64 `gorm:"primaryKey"`
	Title string
}

func (Video) TableName() string {
	return "videos"
}

type User struct {
	ID       int64  `gorm:"primaryKey"`
	Username string `gorm:"not null"`
}

func (User) TableName() string {
	return "users"
}
