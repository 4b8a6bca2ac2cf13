package routes

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"planmate-server/models"
)

type eventEnvelope struct {
	Event struct {
		ID           uint          `json:"id"`
		Title        string        `json:"title"`
		OwnerID      uint          `json:"ownerID"`
		Organisers   []models.User `json:"organisers"`
		Participants []models.User `json:"participants"`
	} `json:"event"`
}

func containsUser(users []models.User, id uint) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}

func membershipState(t *testing.T, resp *httptest.ResponseRecorder) eventEnvelope {
	t.Helper()
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var env eventEnvelope
	decodeBody(t, resp, &env)
	return env
}

func TestMembershipRoleTransitions(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	owner := createTestUser(t, "Owner")
	alice := createTestUser(t, "Alice")
	event := createTestEvent(t, owner.ID, "Christmas Dinner")

	base := fmt.Sprintf("/api/events/%d", event.ID)

	// owner adds alice as participant
	resp := doJSON(t, app, http.MethodPost, base+"/participants", owner.ID, map[string]uint{"userID": alice.ID})
	env := membershipState(t, resp)
	if !containsUser(env.Event.Participants, alice.ID) {
		t.Fatalf("alice should be a participant: %+v", env.Event)
	}
	if containsUser(env.Event.Organisers, alice.ID) {
		t.Fatalf("alice should not be an organiser yet")
	}

	// promote to organiser moves her between the sets
	resp = doJSON(t, app, http.MethodPost, base+"/organisers", owner.ID, map[string]uint{"userID": alice.ID})
	env = membershipState(t, resp)
	if !containsUser(env.Event.Organisers, alice.ID) {
		t.Fatalf("alice should be an organiser after promotion")
	}
	if containsUser(env.Event.Participants, alice.ID) {
		t.Fatalf("promotion must remove alice from participants")
	}

	// demote moves her back
	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("%s/organisers/%d", base, alice.ID), owner.ID, nil)
	env = membershipState(t, resp)
	if containsUser(env.Event.Organisers, alice.ID) {
		t.Fatalf("alice should no longer be an organiser after demotion")
	}
	if !containsUser(env.Event.Participants, alice.ID) {
		t.Fatalf("demotion must return alice to participants")
	}

	// and removal empties both sets
	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("%s/participants/%d", base, alice.ID), owner.ID, nil)
	env = membershipState(t, resp)
	if len(env.Event.Participants) != 0 || len(env.Event.Organisers) != 0 {
		t.Fatalf("expected empty membership, got %+v", env.Event)
	}
}

func TestOwnerMembershipImmutable(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	owner := createTestUser(t, "Owner")
	event := createTestEvent(t, owner.ID, "Launch Party")

	base := fmt.Sprintf("/api/events/%d", event.ID)
	attempts := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodPost, base + "/participants", map[string]uint{"userID": owner.ID}},
		{http.MethodDelete, fmt.Sprintf("%s/participants/%d", base, owner.ID), nil},
		{http.MethodPost, base + "/organisers", map[string]uint{"userID": owner.ID}},
		{http.MethodDelete, fmt.Sprintf("%s/organisers/%d", base, owner.ID), nil},
	}

	for _, attempt := range attempts {
		resp := doJSON(t, app, attempt.method, attempt.path, owner.ID, attempt.body)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s %s on owner: expected 400, got %d: %s",
				attempt.method, attempt.path, resp.Code, resp.Body.String())
		}
	}
}

func TestMembershipRejectsDuplicatesAndNonMembers(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	owner := createTestUser(t, "Owner")
	alice := createTestUser(t, "Alice")
	bob := createTestUser(t, "Bob")
	event := createTestEvent(t, owner.ID, "Offsite")

	base := fmt.Sprintf("/api/events/%d", event.ID)

	resp := doJSON(t, app, http.MethodPost, base+"/participants", owner.ID, map[string]uint{"userID": alice.ID})
	membershipState(t, resp)

	// adding twice is an error
	resp = doJSON(t, app, http.MethodPost, base+"/participants", owner.ID, map[string]uint{"userID": alice.ID})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("duplicate add: expected 400, got %d", resp.Code)
	}

	// a current organiser cannot be re-added as participant
	resp = doJSON(t, app, http.MethodPost, base+"/organisers", owner.ID, map[string]uint{"userID": alice.ID})
	membershipState(t, resp)
	resp = doJSON(t, app, http.MethodPost, base+"/participants", owner.ID, map[string]uint{"userID": alice.ID})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("adding an organiser as participant: expected 400, got %d", resp.Code)
	}

	// a fresh user can be made organiser directly, skipping participant
	resp = doJSON(t, app, http.MethodPost, base+"/organisers", owner.ID, map[string]uint{"userID": bob.ID})
	env := membershipState(t, resp)
	if !containsUser(env.Event.Organisers, bob.ID) || containsUser(env.Event.Participants, bob.ID) {
		t.Fatalf("direct promotion should land bob in organisers only: %+v", env.Event)
	}
	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("%s/organisers/%d", base, bob.ID), owner.ID, nil)
	membershipState(t, resp)

	// removing someone who is not a participant is an error
	carol := createTestUser(t, "Carol")
	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("%s/participants/%d", base, carol.ID), owner.ID, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("remove non-participant: expected 400, got %d", resp.Code)
	}
}

func TestMembershipOwnerOnly(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)

	owner := createTestUser(t, "Owner")
	organiser := createTestUser(t, "Organiser")
	outsider := createTestUser(t, "Outsider")
	target := createTestUser(t, "Target")
	event := createTestEvent(t, owner.ID, "Retreat")
	addOrganiserDirect(t, &event, organiser)

	base := fmt.Sprintf("/api/events/%d", event.ID)

	// organisers can edit content but not membership
	resp := doJSON(t, app, http.MethodPost, base+"/participants", organiser.ID, map[string]uint{"userID": target.ID})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("organiser mutating membership: expected 403, got %d", resp.Code)
	}

	resp = doJSON(t, app, http.MethodPost, base+"/participants", outsider.ID, map[string]uint{"userID": target.ID})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("outsider mutating membership: expected 403, got %d", resp.Code)
	}

	// a missing event reads as 404 even for non-owners
	resp = doJSON(t, app, http.MethodPost, "/api/events/9999/participants", outsider.ID, map[string]uint{"userID": target.ID})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("missing event: expected 404, got %d", resp.Code)
	}
}
