package routes

import (
	"errors"
	"fmt"
	"strings"

	"planmate-server/models"
	"planmate-server/services"
	"planmate-server/storage"
	"planmate-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

type CreateCommentInput struct {
	EventID uint   `json:"eventID" validate:"required"`
	Content string `json:"content" validate:"required,max=2000"`
}

var commentNotifier = services.NewNotificationService()

// ListComments returns an event's comments newest-first. With positive
// ?page=&limit= parameters the response carries the requested slice plus the
// full count, so clients can compute ceil(total/limit) pages; without them
// every comment is returned.
func ListComments(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	eventID := ctx.URLParamUint64("event")
	if eventID == 0 {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Event id is required.", ctx)
		return
	}

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

	page := ctx.URLParamIntDefault("page", 0)
	limit := ctx.URLParamIntDefault("limit", 0)

	if limit > 0 {
		var total int64
		if err := storage.DB.Model(&models.Comment{}).Where("event_id = ?", event.ID).Count(&total).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}

		if page < 1 {
			page = 1
		}
		offset := (page - 1) * limit

		var comments []models.Comment
		err := storage.DB.
			Where("event_id = ?", event.ID).
			Order("created_at DESC").
			Offset(offset).
			Limit(limit).
			Preload("Author").
			Find(&comments).Error
		if err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}

		ctx.JSON(iris.Map{"comments": comments, "total": total})
		return
	}

	var comments []models.Comment
	err = storage.DB.
		Where("event_id = ?", event.ID).
		Order("created_at DESC").
		Preload("Author").
		Find(&comments).Error
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"comments": comments})
}

// CreateComment posts a comment on an event. Owner and organisers only; the
// caller is stamped as author.
func CreateComment(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var input CreateCommentInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Content is required.", ctx)
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

	comment := models.Comment{
		EventID:  event.ID,
		AuthorID: userID,
		Content:  content,
	}
	if err := storage.DB.Create(&comment).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	var populated models.Comment
	if err := storage.DB.Preload("Author").First(&populated, comment.ID).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	if userID != event.OwnerID {
		authorName := fmt.Sprintf("%s %s", populated.Author.FirstName, populated.Author.LastName)
		go commentNotifier.SendCommentNotification(event.ID, event.OwnerID, authorName, event.Title)
	}

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"comment": populated})
}

// DeleteComment removes a comment. Allowed for the comment's author and for
// the event owner; organisers get no blanket moderation right over other
// people's words.
func DeleteComment(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return
	}

	var comment models.Comment
	if err := storage.DB.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CreateError(iris.StatusNotFound, "Not Found", "Comment not found.", ctx)
		} else {
			utils.CreateInternalServerError(ctx)
		}
		return
	}

	event := getEventByID(comment.EventID, ctx)
	if event == nil {
		return
	}

	if comment.AuthorID != userID && event.OwnerID != userID {
		utils.CreateForbidden(ctx)
		return
	}

	if err := storage.DB.Delete(&comment).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"message": "Comment deleted"})
}
