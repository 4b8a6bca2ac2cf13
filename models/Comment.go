package models

import "time"

type Comment struct {
	ID      uint  `json:"id" gorm:"primaryKey"`
	EventID uint  `json:"eventID" gorm:"not null;index"`
	Event   Event `json:"-" gorm:"foreignKey:EventID"`

	AuthorID uint   `json:"authorID" gorm:"not null;index"`
	Author   User   `json:"author" gorm:"foreignKey:AuthorID"`
	Content  string `json:"content" gorm:"size:2000;not null"`

	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}
