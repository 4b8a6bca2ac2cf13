package services

import (
	"encoding/json"
	"fmt"
	"log"

	"planmate-server/models"
	"planmate-server/storage"
	"planmate-server/utils"
)

// NotificationService handles all push notification logic
type NotificationService struct{}

// NewNotificationService creates a new notification service instance
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotificationData represents the data payload for notifications
type NotificationData struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	EventID string `json:"eventId,omitempty"`
	UserID  string `json:"userId,omitempty"`
	// Deep linking data
	Screen string `json:"screen"`           // Target screen to navigate to
	Params string `json:"params"`           // JSON string of navigation parameters
	Action string `json:"action,omitempty"` // Specific action to perform
}

// getUserPushTokens retrieves all push tokens for a user
func (ns *NotificationService) getUserPushTokens(userID uint) ([]string, error) {
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %v", err)
	}

	if user.AllowsNotifications == nil || !*user.AllowsNotifications || user.PushTokens == nil {
		return nil, fmt.Errorf("user has notifications disabled or no tokens")
	}

	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %v", err)
	}

	return tokens, nil
}

// SendNotificationToUser sends a notification to a specific user
func (ns *NotificationService) SendNotificationToUser(userID uint, title, body string, data NotificationData) error {
	tokens, err := ns.getUserPushTokens(userID)
	if err != nil {
		log.Printf("Failed to get push tokens for user %d: %v", userID, err)
		return err
	}

	dataMap := map[string]string{
		"type":    data.Type,
		"id":      data.ID,
		"eventId": data.EventID,
		"userId":  data.UserID,
		"screen":  data.Screen,
		"params":  data.Params,
		"action":  data.Action,
	}

	var lastError error
	for _, token := range tokens {
		if err := utils.SendNotification(token, title, body, dataMap); err != nil {
			log.Printf("Failed to send notification to token %s: %v", token, err)
			lastError = err
		}
	}

	return lastError
}

// SendEventInviteNotification tells a user they were added to an event
func (ns *NotificationService) SendEventInviteNotification(eventID, userID uint, eventTitle string) error {
	title := "You're In!"
	body := fmt.Sprintf("You have been added to %s", eventTitle)

	params := fmt.Sprintf(`{"eventId": %d}`, eventID)

	data := NotificationData{
		Type:    "event_invite",
		ID:      fmt.Sprintf("%d", eventID),
		EventID: fmt.Sprintf("%d", eventID),
		UserID:  fmt.Sprintf("%d", userID),
		Screen:  "EventDetails",
		Params:  params,
		Action:  "view_event",
	}

	return ns.SendNotificationToUser(userID, title, body, data)
}

// SendRoleChangeNotification tells a member their role within an event changed
func (ns *NotificationService) SendRoleChangeNotification(eventID, userID uint, eventTitle, role string) error {
	var title, body string

	switch role {
	case "organiser":
		title = "You're an Organiser!"
		body = fmt.Sprintf("You can now manage %s", eventTitle)
	default:
		title = "Role Updated"
		body = fmt.Sprintf("Your role in %s is now %s", eventTitle, role)
	}

	params := fmt.Sprintf(`{"eventId": %d, "role": "%s"}`, eventID, role)

	data := NotificationData{
		Type:    "event_role_changed",
		ID:      fmt.Sprintf("%d", eventID),
		EventID: fmt.Sprintf("%d", eventID),
		UserID:  fmt.Sprintf("%d", userID),
		Screen:  "EventDetails",
		Params:  params,
		Action:  "view_event",
	}

	return ns.SendNotificationToUser(userID, title, body, data)
}

// SendCommentNotification tells the event owner about a new comment
func (ns *NotificationService) SendCommentNotification(eventID, ownerID uint, authorName, eventTitle string) error {
	title := "New Comment"
	body := fmt.Sprintf("%s commented on %s", authorName, eventTitle)

	params := fmt.Sprintf(`{"eventId": %d}`, eventID)

	data := NotificationData{
		Type:    "event_comment",
		ID:      fmt.Sprintf("%d", eventID),
		EventID: fmt.Sprintf("%d", eventID),
		UserID:  fmt.Sprintf("%d", ownerID),
		Screen:  "EventComments",
		Params:  params,
		Action:  "view_comments",
	}

	return ns.SendNotificationToUser(ownerID, title, body, data)
}
