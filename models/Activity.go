package models

import "time"

type Activity struct {
	ID      uint  `json:"id" gorm:"primaryKey"`
	EventID uint  `json:"eventID" gorm:"not null;index"`
	Event   Event `json:"-" gorm:"foreignKey:EventID"`

	Name        string     `json:"name" gorm:"size:50;not null"`
	Description string     `json:"description" gorm:"size:200"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Location    string     `json:"location" gorm:"size:50"`

	CreatedByID uint `json:"createdByID" gorm:"index"`
	CreatedBy   User `json:"createdBy" gorm:"foreignKey:CreatedByID"`
	UpdatedByID uint `json:"updatedByID"`
	UpdatedBy   User `json:"updatedBy" gorm:"foreignKey:UpdatedByID"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
