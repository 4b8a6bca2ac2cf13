package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"planmate-server/models"
	"planmate-server/storage"
	"planmate-server/utils"

	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB points storage.DB at a fresh in-memory sqlite database for the
// duration of one test. A single connection keeps the shared-cache memory
// database alive.
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Activity{},
		&models.PlanningStep{},
		&models.Comment{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	storage.DB = db
	// Nothing should reach a real redis in tests: Set errors are ignored by
	// the token code and Get just fails.
	storage.Redis = redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})

	t.Cleanup(func() { sqlDB.Close() })
}

// buildTestApp wires the full route surface against the real access token
// verifier, same as main.go.
func buildTestApp(t *testing.T) *iris.Application {
	t.Helper()

	os.Setenv("ACCESS_TOKEN_SECRET", "testsecret")

	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", Register)
		user.Post("/login", Login)
		user.Get("/search", accessTokenVerifierMiddleware, SearchUsers)
		user.Get("/me", accessTokenVerifierMiddleware, CurrentUser)
		user.Patch("/me", accessTokenVerifierMiddleware, UpdateUserProfile)
		user.Get("/friends", accessTokenVerifierMiddleware, ListFriends)
		user.Post("/friends/{id:uint}", accessTokenVerifierMiddleware, AddFriend)
		user.Delete("/friends/{id:uint}", accessTokenVerifierMiddleware, RemoveFriend)
	}

	event := app.Party("/api/events", accessTokenVerifierMiddleware)
	{
		event.Get("/", ListEvents)
		event.Post("/", CreateEvent)
		event.Get("/{id:uint}", GetEvent)
		event.Patch("/{id:uint}", UpdateEvent)
		event.Delete("/{id:uint}", DeleteEvent)
		event.Post("/{id:uint}/participants", AddParticipant)
		event.Delete("/{id:uint}/participants/{userID:uint}", RemoveParticipant)
		event.Post("/{id:uint}/organisers", PromoteOrganiser)
		event.Delete("/{id:uint}/organisers/{userID:uint}", DemoteOrganiser)
	}

	activity := app.Party("/api/activities", accessTokenVerifierMiddleware)
	{
		activity.Get("/", ListActivities)
		activity.Post("/", CreateActivity)
		activity.Get("/{id:uint}", GetActivity)
		activity.Patch("/{id:uint}", UpdateActivity)
		activity.Delete("/{id:uint}", DeleteActivity)
	}

	planningStep := app.Party("/api/planning-steps", accessTokenVerifierMiddleware)
	{
		planningStep.Get("/", ListPlanningSteps)
		planningStep.Post("/", CreatePlanningStep)
		planningStep.Get("/{id:uint}", GetPlanningStep)
		planningStep.Patch("/{id:uint}", UpdatePlanningStep)
		planningStep.Delete("/{id:uint}", DeletePlanningStep)
	}

	comment := app.Party("/api/comments", accessTokenVerifierMiddleware)
	{
		comment.Get("/", ListComments)
		comment.Post("/", CreateComment)
		comment.Delete("/{id:uint}", DeleteComment)
	}

	if err := app.Build(); err != nil {
		t.Fatalf("build test app: %v", err)
	}
	return app
}

func signAccessToken(userID uint) string {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 15*time.Minute)
	token, _ := signer.Sign(utils.AccessToken{ID: userID})
	return string(token)
}

func createTestUser(t *testing.T, name string) models.User {
	t.Helper()
	user := models.User{
		FirstName: name,
		LastName:  "Tester",
		Email:     strings.ToLower(name) + "@example.com",
		Password:  "irrelevant",
	}
	if err := storage.DB.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func createTestEvent(t *testing.T, ownerID uint, title string) models.Event {
	t.Helper()
	event := models.Event{Title: title, OwnerID: ownerID, State: "planned"}
	if err := storage.DB.Create(&event).Error; err != nil {
		t.Fatalf("create event %s: %v", title, err)
	}
	return event
}

func addParticipantDirect(t *testing.T, event *models.Event, user models.User) {
	t.Helper()
	if err := storage.DB.Model(event).Association("Participants").Append(&user); err != nil {
		t.Fatalf("seed participant: %v", err)
	}
}

func addOrganiserDirect(t *testing.T, event *models.Event, user models.User) {
	t.Helper()
	if err := storage.DB.Model(event).Association("Organisers").Append(&user); err != nil {
		t.Fatalf("seed organiser: %v", err)
	}
}

// doJSON performs a request against the test app, optionally authenticated
// and optionally carrying a JSON body.
func doJSON(t *testing.T, app *iris.Application, method, path string, asUser uint, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if asUser != 0 {
		req.Header.Set("Authorization", "Bearer "+signAccessToken(asUser))
	}

	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(resp.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", resp.Body.String(), err)
	}
}
