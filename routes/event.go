package routes

import (
	"time"

	"planmate-server/models"
	"planmate-server/storage"
	"planmate-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateEventInput struct {
	Title        string     `json:"title" validate:"required,min=2,max=50"`
	Description  string     `json:"description" validate:"max=200"`
	StartDate    *time.Time `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
	Location     string     `json:"location" validate:"max=50"`
	Participants []uint     `json:"participants"`
}

type UpdateEventInput struct {
	Title       *string    `json:"title" validate:"omitempty,min=2,max=50"`
	Description *string    `json:"description" validate:"omitempty,max=200"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Location    *string    `json:"location" validate:"omitempty,max=50"`
	State       *string    `json:"state" validate:"omitempty,oneof=planned ongoing completed cancelled"`
}

type eventSummary struct {
	models.Event
	CommentCount      int64 `json:"commentCount"`
	PlanningStepCount int64 `json:"planningStepCount"`
}

// ListEvents returns every event the caller has a role on, newest first, with
// comment and planning-step counts for the list view.
func ListEvents(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var events []models.Event
	err := storage.DB.
		Joins("LEFT JOIN event_organisers o ON o.event_id = events.id AND o.user_id = ?", userID).
		Joins("LEFT JOIN event_participants p ON p.event_id = events.id AND p.user_id = ?", userID).
		Where("events.owner_id = ? OR o.user_id IS NOT NULL OR p.user_id IS NOT NULL", userID).
		Distinct("events.*").
		Order("events.created_at DESC").
		Preload("Owner").
		Preload("Organisers").
		Preload("Participants").
		Find(&events).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ids := make([]uint, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.ID)
	}

	commentCounts, err := countByEvent(&models.Comment{}, ids)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	stepCounts, err := countByEvent(&models.PlanningStep{}, ids)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	summaries := make([]eventSummary, 0, len(events))
	for _, event := range events {
		summaries = append(summaries, eventSummary{
			Event:             event,
			CommentCount:      commentCounts[event.ID],
			PlanningStepCount: stepCounts[event.ID],
		})
	}

	ctx.JSON(iris.Map{"events": summaries})
}

func countByEvent(model interface{}, eventIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		EventID uint
		N       int64
	}
	err := storage.DB.Model(model).
		Select("event_id, COUNT(*) AS n").
		Where("event_id IN ?", eventIDs).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.EventID] = row.N
	}
	return counts, nil
}

// CreateEvent creates an event owned by the caller, optionally seeding the
// participant set.
func CreateEvent(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var input CreateEventInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var participants []models.User
	if len(input.Participants) > 0 {
		candidateIDs := make([]uint, 0, len(input.Participants))
		for _, id := range input.Participants {
			if id != userID {
				candidateIDs = append(candidateIDs, id)
			}
		}
		if len(candidateIDs) > 0 {
			if err := storage.DB.Where("id IN ?", candidateIDs).Find(&participants).Error; err != nil {
				utils.CreateInternalServerError(ctx)
				return
			}
			if len(participants) != len(candidateIDs) {
				utils.CreateError(iris.StatusBadRequest, "Validation Error", "One or more participants do not exist.", ctx)
				return
			}
		}
	}

	event := models.Event{
		Title:       input.Title,
		Description: input.Description,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Location:    input.Location,
		State:       "planned",
		OwnerID:     userID,
	}

	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		if len(participants) > 0 {
			if err := tx.Model(&event).Association("Participants").Append(&participants); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	refreshed, err := loadEventWithMembers(event.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"event": refreshed})
}

// GetEvent returns a single event with its members and children. Readable by
// the owner, organisers and participants.
func GetEvent(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return
	}

	event := getEventByID(id, ctx)
	if event == nil {
		return
	}
	readable, err := canReadEvent(event, userID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if !readable {
		utils.CreateForbidden(ctx)
		return
	}

	var full models.Event
	err = storage.DB.
		Preload("Owner").
		Preload("Organisers").
		Preload("Participants").
		Preload("Activities", func(db *gorm.DB) *gorm.DB { return db.Order("start_time ASC") }).
		Preload("Activities.CreatedBy").
		Preload("Activities.UpdatedBy").
		Preload("PlanningSteps", func(db *gorm.DB) *gorm.DB { return db.Order("due_date ASC") }).
		Preload("PlanningSteps.CreatedBy").
		Preload("PlanningSteps.CompletedBy").
		First(&full, event.ID).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"event": full})
}

// UpdateEvent applies a partial update to the event's detail fields. Owner and
// organisers only; membership changes go through the membership routes.
func UpdateEvent(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return
	}

	event := getEventByID(id, ctx)
	if event == nil {
		return
	}
	writable, err := canWriteEvent(event, userID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if !writable {
		utils.CreateForbidden(ctx)
		return
	}

	var input UpdateEventInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.StartDate != nil {
		updates["start_date"] = input.StartDate
	}
	if input.EndDate != nil {
		updates["end_date"] = input.EndDate
	}
	if input.Location != nil {
		updates["location"] = *input.Location
	}
	if input.State != nil {
		updates["state"] = *input.State
	}

	if len(updates) > 0 {
		if err := storage.DB.Model(event).Updates(updates).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	}

	refreshed, err := loadEventWithMembers(event.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"event": refreshed})
}

// DeleteEvent removes the event and everything under it. Owner only. The
// cascade runs in one transaction so a failure at any step aborts the whole
// deletion instead of leaving orphans.
func DeleteEvent(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return
	}

	event := getEventByID(id, ctx)
	if event == nil {
		return
	}
	if !isEventOwner(event, userID) {
		utils.CreateForbidden(ctx)
		return
	}

	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.Activity{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.PlanningStep{}).Error; err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", event.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		// clears the organiser/participant join rows along with the event row
		return tx.Select(clause.Associations).Delete(event).Error
	})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"message": "Event and related data deleted"})
}

// loadEventWithMembers re-reads an event with its role collections resolved to
// user records, for returning after a mutation.
func loadEventWithMembers(id uint) (*models.Event, error) {
	var event models.Event
	err := storage.DB.
		Preload("Owner").
		Preload("Organisers").
		Preload("Participants").
		First(&event, id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}
