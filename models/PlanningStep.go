package models

import "time"

// PlanningStep is a checklist item for an event. CompletedByID is non-nil
// exactly when IsCompleted is true; the step routes maintain that on every
// transition.
type PlanningStep struct {
	ID      uint  `json:"id" gorm:"primaryKey"`
	EventID uint  `json:"eventID" gorm:"not null;index"`
	Event   Event `json:"-" gorm:"foreignKey:EventID"`

	Title       string     `json:"title" gorm:"size:50;not null"`
	Description string     `json:"description" gorm:"size:200"`
	DueDate     *time.Time `json:"dueDate"`

	IsCompleted   bool  `json:"isCompleted" gorm:"default:false"`
	CompletedByID *uint `json:"completedByID"`
	CompletedBy   *User `json:"completedBy" gorm:"foreignKey:CompletedByID"`

	CreatedByID uint `json:"createdByID" gorm:"index"`
	CreatedBy   User `json:"createdBy" gorm:"foreignKey:CreatedByID"`
	UpdatedByID uint `json:"updatedByID"`
	UpdatedBy   User `json:"updatedBy" gorm:"foreignKey:UpdatedByID"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
