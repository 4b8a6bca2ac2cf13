package routes

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"planmate-server/models"
	"planmate-server/storage"
)

func seedComments(t *testing.T, eventID, authorID uint, n int) {
	t.Helper()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		comment := models.Comment{
			EventID:   eventID,
			AuthorID:  authorID,
			Content:   fmt.Sprintf("comment %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := storage.DB.Create(&comment).Error; err != nil {
			t.Fatalf("seed comment %d: %v", i, err)
		}
	}
}

func TestCommentPagination(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	owner := createTestUser(t, "Owner")
	event := createTestEvent(t, owner.ID, "Reunion")
	seedComments(t, event.ID, owner.ID, 12)

	resp := doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/comments?event=%d&page=2&limit=5", event.ID), owner.ID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var paged struct {
		Comments []models.Comment `json:"comments"`
		Total    int64            `json:"total"`
	}
	decodeBody(t, resp, &paged)
	if paged.Total != 12 {
		t.Fatalf("expected total 12, got %d", paged.Total)
	}
	if len(paged.Comments) != 5 {
		t.Fatalf("expected 5 comments on page 2, got %d", len(paged.Comments))
	}
	// newest-first: page 2 of 5 starts at the 6th newest, which is comment 7
	for i, comment := range paged.Comments {
		want := fmt.Sprintf("comment %d", 7-i)
		if comment.Content != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, comment.Content)
		}
	}

	// page past the end comes back empty but still carries the total
	resp = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/comments?event=%d&page=4&limit=5", event.ID), owner.ID, nil)
	decodeBody(t, resp, &paged)
	if len(paged.Comments) != 0 || paged.Total != 12 {
		t.Fatalf("overshoot page: expected 0 of 12, got %d of %d", len(paged.Comments), paged.Total)
	}

	// without a limit the full thread is returned newest-first
	resp = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/comments?event=%d", event.ID), owner.ID, nil)
	var full struct {
		Comments []models.Comment `json:"comments"`
	}
	decodeBody(t, resp, &full)
	if len(full.Comments) != 12 {
		t.Fatalf("expected all 12 comments, got %d", len(full.Comments))
	}
	if full.Comments[0].Content != "comment 12" {
		t.Fatalf("newest comment should come first, got %q", full.Comments[0].Content)
	}

	// the event filter is mandatory
	resp = doJSON(t, app, http.MethodGet, "/api/comments", owner.ID, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing event filter: expected 400, got %d", resp.Code)
	}
}

func TestCreateCommentValidation(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	owner := createTestUser(t, "Owner")
	participant := createTestUser(t, "Participant")
	event := createTestEvent(t, owner.ID, "Potluck")
	addParticipantDirect(t, &event, participant)

	// whitespace-only content is rejected before any access check
	resp := doJSON(t, app, http.MethodPost, "/api/comments", owner.ID, map[string]interface{}{
		"eventID": event.ID,
		"content": "   ",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("blank content: expected 400, got %d", resp.Code)
	}

	resp = doJSON(t, app, http.MethodPost, "/api/comments", owner.ID, map[string]interface{}{
		"eventID": event.ID,
		"content": "  trimmed  ",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var env struct {
		Comment models.Comment `json:"comment"`
	}
	decodeBody(t, resp, &env)
	if env.Comment.Content != "trimmed" {
		t.Fatalf("content should be trimmed, got %q", env.Comment.Content)
	}
	if env.Comment.AuthorID != owner.ID {
		t.Fatalf("author should be the caller, got %d", env.Comment.AuthorID)
	}

	// participants read the thread but do not post to it
	resp = doJSON(t, app, http.MethodPost, "/api/comments", participant.ID, map[string]interface{}{
		"eventID": event.ID,
		"content": "hello",
	})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("participant comment: expected 403, got %d", resp.Code)
	}
	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/comments?event=%d", event.ID), participant.ID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("participant list: expected 200, got %d", resp.Code)
	}
}

func TestDeleteCommentAuthority(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	owner := createTestUser(t, "Owner")
	organiser := createTestUser(t, "Organiser")
	second := createTestUser(t, "Second")
	event := createTestEvent(t, owner.ID, "Quiz Night")
	addOrganiserDirect(t, &event, organiser)
	addOrganiserDirect(t, &event, second)

	post := func(authorID uint) uint {
		resp := doJSON(t, app, http.MethodPost, "/api/comments", authorID, map[string]interface{}{
			"eventID": event.ID,
			"content": "round one",
		})
		if resp.Code != http.StatusCreated {
			t.Fatalf("post comment: expected 201, got %d", resp.Code)
		}
		var env struct {
			Comment models.Comment `json:"comment"`
		}
		decodeBody(t, resp, &env)
		return env.Comment.ID
	}

	// authors delete their own comments
	id := post(organiser.ID)
	resp := doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/comments/%d", id), organiser.ID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("author delete: expected 200, got %d", resp.Code)
	}

	// the owner moderates anyone's comments
	id = post(organiser.ID)
	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/comments/%d", id), owner.ID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("owner delete: expected 200, got %d", resp.Code)
	}

	// other organisers get no moderation rights
	id = post(organiser.ID)
	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/comments/%d", id), second.ID, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("organiser deleting someone else's comment: expected 403, got %d", resp.Code)
	}

	resp = doJSON(t, app, http.MethodDelete, "/api/comments/9999", owner.ID, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("missing comment: expected 404, got %d", resp.Code)
	}
}
