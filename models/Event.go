package models

import "time"

// Event is the aggregate everything else hangs off. The creator stays owner for
// the event's whole lifetime; organisers and participants are stored in join
// tables and kept disjoint by the membership routes.
// state: planned, ongoing, completed, cancelled
type Event struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"size:50;not null"`
	Description string     `json:"description" gorm:"size:200"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Location    string     `json:"location" gorm:"size:50"`
	State       string     `json:"state" gorm:"size:16;default:planned;index"`

	OwnerID uint `json:"ownerID" gorm:"not null;index"`
	Owner   User `json:"owner" gorm:"foreignKey:OwnerID"`

	Organisers   []User `json:"organisers" gorm:"many2many:event_organisers"`
	Participants []User `json:"participants" gorm:"many2many:event_participants"`

	Activities    []Activity     `json:"activities,omitempty" gorm:"foreignKey:EventID"`
	PlanningSteps []PlanningStep `json:"planningSteps,omitempty" gorm:"foreignKey:EventID"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
