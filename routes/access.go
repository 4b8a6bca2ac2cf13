package routes

import (
	"errors"

	"planmate-server/models"
	"planmate-server/storage"
	"planmate-server/utils"

	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"
)

// currentUserID pulls the authenticated user out of the verified access token.
func currentUserID(ctx iris.Context) (uint, bool) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(iris.StatusUnauthorized)
		return 0, false
	}
	return tok.(*utils.AccessToken).ID, true
}

// getEventByID loads an event or replies 404. Existence is always resolved
// before any access predicate, so a missing id is reported as not found
// rather than forbidden.
func getEventByID(id uint, ctx iris.Context) *models.Event {
	var event models.Event
	if err := storage.DB.First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CreateError(iris.StatusNotFound, "Not Found", "Event not found.", ctx)
		} else {
			utils.CreateInternalServerError(ctx)
		}
		return nil
	}
	return &event
}

func isEventOwner(event *models.Event, userID uint) bool {
	return event.OwnerID == userID
}

// canWriteEvent reports whether the user may create, update or delete the
// event's sub-resources: the owner or any organiser.
func canWriteEvent(event *models.Event, userID uint) (bool, error) {
	if event.OwnerID == userID {
		return true, nil
	}
	var count int64
	err := storage.DB.Table("event_organisers").
		Where("event_id = ? AND user_id = ?", event.ID, userID).
		Count(&count).Error
	return count > 0, err
}

// canReadEvent additionally admits participants.
func canReadEvent(event *models.Event, userID uint) (bool, error) {
	ok, err := canWriteEvent(event, userID)
	if ok || err != nil {
		return ok, err
	}
	var count int64
	err = storage.DB.Table("event_participants").
		Where("event_id = ? AND user_id = ?", event.ID, userID).
		Count(&count).Error
	return count > 0, err
}

// readableEventIDs returns the ids of every event the user has any role on:
// owner, organiser or participant. Unfiltered child-resource listings are
// restricted to this set.
func readableEventIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := storage.DB.Table("events").
		Joins("LEFT JOIN event_organisers o ON o.event_id = events.id AND o.user_id = ?", userID).
		Joins("LEFT JOIN event_participants p ON p.event_id = events.id AND p.user_id = ?", userID).
		Where("events.owner_id = ? OR o.user_id IS NOT NULL OR p.user_id IS NOT NULL", userID).
		Distinct().
		Pluck("events.id", &ids).Error
	return ids, err
}
