package routes

import (
	"planmate-server/models"
	"planmate-server/storage"
	"planmate-server/utils"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

// Friendship is symmetric: a pair lives as two rows in user_friends, one per
// direction, and both rows are written or removed inside one transaction. No
// read can ever observe a half-formed friendship.

// ListFriends returns the caller's friend list.
func ListFriends(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	friends, err := loadFriends(userID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"friends": friends})
}

// AddFriend creates a friendship between the caller and the {id} user.
func AddFriend(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	targetID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return
	}

	if targetID == userID {
		utils.CreateError(iris.StatusBadRequest, "Friendship Error", "You cannot add yourself as a friend.", ctx)
		return
	}

	target := getUserModelByID(targetID, ctx)
	if target == nil {
		return
	}
	caller := getUserModelByID(userID, ctx)
	if caller == nil {
		return
	}

	var existing int64
	if err := storage.DB.Table("user_friends").
		Where("user_id = ? AND friend_id = ?", userID, targetID).
		Count(&existing).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	if existing > 0 {
		utils.CreateError(iris.StatusBadRequest, "Friendship Error", "Already friends.", ctx)
		return
	}

	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(caller).Association("Friends").Append(target); err != nil {
			return err
		}
		return tx.Model(target).Association("Friends").Append(caller)
	})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	friends, err := loadFriends(userID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"friends": friends})
}

// RemoveFriend dissolves the friendship between the caller and the {id} user.
// Removing a non-friend is a no-op.
func RemoveFriend(ctx iris.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	targetID, err := ctx.Params().GetUint("id")
	if err != nil {
		ctx.StopWithStatus(iris.StatusBadRequest)
		return
	}

	if targetID == userID {
		utils.CreateError(iris.StatusBadRequest, "Friendship Error", "You cannot unfriend yourself.", ctx)
		return
	}

	target := getUserModelByID(targetID, ctx)
	if target == nil {
		return
	}
	caller := getUserModelByID(userID, ctx)
	if caller == nil {
		return
	}

	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(caller).Association("Friends").Delete(target); err != nil {
			return err
		}
		return tx.Model(target).Association("Friends").Delete(caller)
	})
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	friends, err := loadFriends(userID)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{"friends": friends})
}

func loadFriends(userID uint) ([]*models.User, error) {
	var user models.User
	err := storage.DB.Preload("Friends").First(&user, userID).Error
	if err != nil {
		return nil, err
	}
	if user.Friends == nil {
		return []*models.User{}, nil
	}
	return user.Friends, nil
}
