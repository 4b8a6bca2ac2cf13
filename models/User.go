package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email" gorm:"uniqueIndex;size:256"`
	Password       string `json:"-"`
	SocialLogin    bool   `json:"socialLogin"`
	SocialProvider string `json:"socialProvider"`
	AvatarURL      string `json:"avatarURL" gorm:"size:512"`

	PushTokens          datatypes.JSON `json:"-"`
	AllowsNotifications *bool          `json:"allowsNotifications"`

	// Friendship is symmetric: every pair is stored as two rows in user_friends,
	// one per direction. The friend routes keep both rows in step.
	Friends []*User `json:"friends,omitempty" gorm:"many2many:user_friends"`
}
