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

type CreatePlanningStepInput struct {
	EventID     uint       `json:"eventID" validate:"required"`
	Title       string     `json:"title" validate:"required,min=2,max=50"`
	Description string     `json:"description" validate:"max=200"`
	DueDate     *time.Time `json:"dueDate"`
	IsCompleted bool       `json:"isCompleted"`
}

type UpdatePlanningStepInput struct {
	Title       *string    `json:"title" validate:"omitempty,min=2,max=50"`
	Description *string    `json:"description" validate:"omitempty,max=200"`
	DueDate     *time.Time `json:"dueDate"`
	IsCompleted *bool      `json:"isCompleted"`
}

// ListPlanningSteps returns steps ordered by due date. Same visibility rules
// as activities.
func ListPlanningSteps(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	query := storage.DB.Model(&models.PlanningStep{})
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

	var steps []models.PlanningStep
	err := query.
		Order("due_date ASC").
		Preload("CreatedBy").
		Preload("UpdatedBy").
		Preload("CompletedBy").
		Find(&steps).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"planningSteps": steps})
}

// CreatePlanningStep adds a step to an event. Owner and organisers only. A
// step created already completed records the caller as completedBy.
func CreatePlanningStep(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var input CreatePlanningStepInput
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

	step := models.PlanningStep{
		EventID:     event.ID,
		Title:       input.Title,
		Description: input.Description,
		DueDate:     input.DueDate,
		IsCompleted: input.IsCompleted,
		CreatedByID: userID,
		UpdatedByID: userID,
	}
	if input.IsCompleted {
		step.CompletedByID = &userID
	}

	if err := storage.DB.Create(&step).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	populated, err := loadPlanningStep(step.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"planningStep": populated})
}

// GetPlanningStep returns a single step; read access on the parent event.
func GetPlanningStep(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	step := getPlanningStepByID(ctx)
	if step == nil {
		return
	}
	event := getEventByID(step.EventID, ctx)
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

	populated, err := loadPlanningStep(step.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"planningStep": populated})
}

// UpdatePlanningStep applies a partial update. Completion transitions keep
// completedBy in step with isCompleted: true stamps the caller, overwriting
// any stale value; false clears it; an absent flag leaves both untouched.
func UpdatePlanningStep(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	step := getPlanningStepByID(ctx)
	if step == nil {
		return
	}
	event := getEventByID(step.EventID, ctx)
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

	var input UpdatePlanningStepInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	updates := map[string]interface{}{"updated_by_id": userID}
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.DueDate != nil {
		updates["due_date"] = input.DueDate
	}
	if input.IsCompleted != nil {
		updates["is_completed"] = *input.IsCompleted
		if *input.IsCompleted {
			updates["completed_by_id"] = userID
		} else {
			updates["completed_by_id"] = nil
		}
	}

	if err := storage.DB.Model(step).Updates(updates).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	populated, err := loadPlanningStep(step.ID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"planningStep": populated})
}

// DeletePlanningStep removes a step. Owner and organisers only.
func DeletePlanningStep(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	step := getPlanningStepByID(ctx)
	if step == nil {
		return
	}
	event := getEventByID(step.EventID, ctx)
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

	if err := storage.DB.Delete(step).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"message": "Planning step deleted"})
}

func getPlanningStepByID(ctx iris.Context) *models.PlanningStep {
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return nil
	}
	var step models.PlanningStep
	if err := storage.DB.First(&step, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CreateError(iris.StatusNotFound, "Not Found", "Planning step not found.", ctx)
		} else {
			utils.CreateInternalServerError(ctx)
		}
		return nil
	}
	return &step
}

func loadPlanningStep(id uint) (*models.PlanningStep, error) {
	var step models.PlanningStep
	err := storage.DB.
		Preload("CreatedBy").
		Preload("UpdatedBy").
		Preload("CompletedBy").
		First(&step, id).Error
	if err != nil {
		return nil, err
	}
	return &step, nil
}
