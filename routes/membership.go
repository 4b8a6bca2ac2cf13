package routes

import (
	"errors"

	"planmate-server/models"
	"planmate-server/services"
	"planmate-server/storage"
	"planmate-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

// Membership mutations are owner-only and run inside a transaction that
// re-fetches the event, so role checks never act on stale data. The pair of
// role sets stays disjoint: promotion removes the participant row before
// adding the organiser row, demotion does the reverse and always lands the
// user in participants.

type MembershipInput struct {
	UserID uint `json:"userID" validate:"required"`
}

var membershipNotifier = services.NewNotificationService()

// AddParticipant appends a user to the event's participant set. Owner only.
func AddParticipant(ctx iris.Context) {
	event, ok := ownerAndEvent(ctx)
	if !ok {
		return
	}

	var input MembershipInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	candidate := getUserModelByID(input.UserID, ctx)
	if candidate == nil {
		return
	}

	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		fresh, err := lockEvent(tx, event.ID)
		if err != nil {
			return err
		}
		if candidate.ID == fresh.OwnerID {
			return errInvariant("The owner cannot be added as a participant.")
		}
		inParticipants, err := inRoleSet(tx, "event_participants", fresh.ID, candidate.ID)
		if err != nil {
			return err
		}
		if inParticipants {
			return errInvariant("User is already a participant.")
		}
		inOrganisers, err := inRoleSet(tx, "event_organisers", fresh.ID, candidate.ID)
		if err != nil {
			return err
		}
		if inOrganisers {
			return errInvariant("User is already an organiser.")
		}
		return tx.Model(fresh).Association("Participants").Append(candidate)
	})
	if !respondMembership(ctx, event.ID, err) {
		return
	}

	go membershipNotifier.SendEventInviteNotification(event.ID, candidate.ID, event.Title)
}

// RemoveParticipant removes a user from the participant set. Owner only.
func RemoveParticipant(ctx iris.Context) {
	event, ok := ownerAndEvent(ctx)
	if !ok {
		return
	}
	targetID, err := ctx.Params().GetUint("userID")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return
	}

	target := getUserModelByID(targetID, ctx)
	if target == nil {
		return
	}

	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		fresh, err := lockEvent(tx, event.ID)
		if err != nil {
			return err
		}
		if target.ID == fresh.OwnerID {
			return errInvariant("The owner cannot be removed.")
		}
		inParticipants, err := inRoleSet(tx, "event_participants", fresh.ID, target.ID)
		if err != nil {
			return err
		}
		if !inParticipants {
			return errInvariant("User is not a participant.")
		}
		return tx.Model(fresh).Association("Participants").Delete(target)
	})
	respondMembership(ctx, event.ID, err)
}

// PromoteOrganiser moves a user into the organiser set, dropping any
// participant role they held. Owner only.
func PromoteOrganiser(ctx iris.Context) {
	event, ok := ownerAndEvent(ctx)
	if !ok {
		return
	}

	var input MembershipInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	candidate := getUserModelByID(input.UserID, ctx)
	if candidate == nil {
		return
	}

	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		fresh, err := lockEvent(tx, event.ID)
		if err != nil {
			return err
		}
		if candidate.ID == fresh.OwnerID {
			return errInvariant("The owner is already an organiser.")
		}
		inOrganisers, err := inRoleSet(tx, "event_organisers", fresh.ID, candidate.ID)
		if err != nil {
			return err
		}
		if inOrganisers {
			return errInvariant("User is already an organiser.")
		}
		if err := tx.Model(fresh).Association("Participants").Delete(candidate); err != nil {
			return err
		}
		return tx.Model(fresh).Association("Organisers").Append(candidate)
	})
	if !respondMembership(ctx, event.ID, err) {
		return
	}

	go membershipNotifier.SendRoleChangeNotification(event.ID, candidate.ID, event.Title, "organiser")
}

// DemoteOrganiser removes a user from the organiser set. Demotion always
// yields participant status, never a memberless state. Owner only.
func DemoteOrganiser(ctx iris.Context) {
	event, ok := ownerAndEvent(ctx)
	if !ok {
		return
	}
	targetID, err := ctx.Params().GetUint("userID")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return
	}

	target := getUserModelByID(targetID, ctx)
	if target == nil {
		return
	}

	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		fresh, err := lockEvent(tx, event.ID)
		if err != nil {
			return err
		}
		if target.ID == fresh.OwnerID {
			return errInvariant("The owner cannot be demoted.")
		}
		if err := tx.Model(fresh).Association("Organisers").Delete(target); err != nil {
			return err
		}
		inParticipants, err := inRoleSet(tx, "event_participants", fresh.ID, target.ID)
		if err != nil {
			return err
		}
		if !inParticipants {
			return tx.Model(fresh).Association("Participants").Append(target)
		}
		return nil
	})
	if !respondMembership(ctx, event.ID, err) {
		return
	}

	go membershipNotifier.SendRoleChangeNotification(event.ID, target.ID, event.Title, "participant")
}

// ownerAndEvent resolves the {id} event and requires the caller to be its
// owner. Not found wins over forbidden.
func ownerAndEvent(ctx iris.Context) (*models.Event, bool) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return nil, false
	}
	id, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return nil, false
	}
	event := getEventByID(id, ctx)
	if event == nil {
		return nil, false
	}
	if !isEventOwner(event, userID) {
		utils.CreateForbidden(ctx)
		return nil, false
	}
	return event, true
}

// getUserModelByID loads a user or replies 404.
func getUserModelByID(id uint, ctx iris.Context) *models.User {
	var user models.User
	if err := storage.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CreateError(iris.StatusNotFound, "Not Found", "User not found.", ctx)
		} else {
			utils.CreateInternalServerError(ctx)
		}
		return nil
	}
	return &user
}

func lockEvent(tx *gorm.DB, id uint) (*models.Event, error) {
	var event models.Event
	if err := tx.First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func inRoleSet(tx *gorm.DB, table string, eventID, userID uint) (bool, error) {
	var count int64
	err := tx.Table(table).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	return count > 0, err
}

type invariantError struct{ msg string }

func (e invariantError) Error() string { return e.msg }

func errInvariant(msg string) error { return invariantError{msg: msg} }

// respondMembership maps the transaction outcome to a response: invariant
// violations are client errors with their specific message, anything else is
// an opaque 500. On success the refreshed event is returned.
func respondMembership(ctx iris.Context, eventID uint, err error) bool {
	if err != nil {
		var invariant invariantError
		if errors.As(err, &invariant) {
			utils.CreateError(iris.StatusBadRequest, "Membership Error", invariant.msg, ctx)
		} else {
			utils.CreateInternalServerError(ctx)
		}
		return false
	}

	refreshed, loadErr := loadEventWithMembers(eventID)
	if loadErr != nil {
		utils.CreateInternalServerError(ctx)
		return false
	}

	ctx.JSON(iris.Map{"event": refreshed})
	return true
}
