package routes

import (
	"errors"
	"time"

	"planmate-server/models"
	"planmate-server/storage"
	"planmate-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type CreateActivityInput struct {
	EventID     uint       `json:"eventID" validate:"required"`
	Name        string     `json:"name" validate:"required,min=2,max=50"`
	Description string     `json:"description" validate:"max=200"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Location    string     `json:"location" validate:"max=50"`
}

type UpdateActivityInput struct {
	Name        *string    `json:"name" validate:"omitempty,min=2,max=50"`
	Description *string    `json:"description" validate:"omitempty,max=200"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	Location    *string    `json:"location" validate:"omitempty,max=50"`
}

// ListActivities returns activities ordered by start time. With an ?event=
// filter the caller needs read access to that event; without one the result
// covers every event the caller has a role on.
func ListActivities(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	query := storage.DB.Model(&models.Activity{})
	if eventID := ctx.URLParamUint64("event"); eventID > 0 {
		event := getEventByID(uint(eventID), ctx)
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
		query = query.Where("event_id = ?", event.ID)
	} else {
		ids, err := readableEventIDs(userID)
		if err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		query = query.Where("event_id IN ?", ids)
	}

	var activities []models.Activity
	err := query.
		Order("start_time ASC").
		Preload("CreatedBy").
		Preload("UpdatedBy").
		Find(&activities).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"activities": activities})
}

// CreateActivity adds an activity to an event. Owner and organisers only.
func CreateActivity(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var input CreateActivityInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	event := getEventByID(input.EventID, ctx)
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

	activity := models.Activity{
		EventID:     event.ID,
		Name:        input.Name,
		Description: input.Description,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Location:    input.Location,
		CreatedByID: userID,
		UpdatedByID: userID,
	}
	if err := storage.DB.Create(&activity).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	populated, err := loadActivity(activity.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"activity": populated})
}

// GetActivity returns a single activity; read access on the parent event.
func GetActivity(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	activity := getActivityByID(ctx)
	if activity == nil {
		return
	}
	event := getEventByID(activity.EventID, ctx)
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

	populated, err := loadActivity(activity.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"activity": populated})
}

// UpdateActivity applies a partial update; absent fields keep their value.
// Owner and organisers only. The caller becomes updatedBy.
func UpdateActivity(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	activity := getActivityByID(ctx)
	if activity == nil {
		return
	}
	event := getEventByID(activity.EventID, ctx)
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

	var input UpdateActivityInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{"updated_by_id": userID}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.StartTime != nil {
		updates["start_time"] = input.StartTime
	}
	if input.EndTime != nil {
		updates["end_time"] = input.EndTime
	}
	if input.Location != nil {
		updates["location"] = *input.Location
	}

	if err := storage.DB.Model(activity).Updates(updates).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	populated, err := loadActivity(activity.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"activity": populated})
}

// DeleteActivity removes an activity. Owner and organisers only.
func DeleteActivity(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	activity := getActivityByID(ctx)
	if activity == nil {
		return
	}
	event := getEventByID(activity.EventID, ctx)
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

	if err := storage.DB.Delete(activity).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"message": "Activity deleted"})
}

func getActivityByID(ctx iris.Context) *models.Activity {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return nil
	}
	var activity models.Activity
	if err := storage.DB.First(&activity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CreateError(iris.StatusNotFound, "Not Found", "Activity not found.", ctx)
		} else {
			utils.CreateInternalServerError(ctx)
		}
		return nil
	}
	return &activity
}

func loadActivity(id uint) (*models.Activity, error) {
	var activity models.Activity
	err := storage.DB.
		Preload("CreatedBy").
		Preload("UpdatedBy").
		First(&activity, id).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}
