package main

import (
	"fmt"
	"log"
	"os"

	"planmate-server/routes"
	"planmate-server/storage"
	"planmate-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	storage.InitializeDB()
	storage.InitializeRedis()

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	// JWT Verifiers
	resetTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("EMAIL_TOKEN_SECRET")))
	resetTokenVerifier.WithDefaultBlocklist()
	resetTokenVerifierMiddleware := resetTokenVerifier.Verify(func() interface{} {
		return new(utils.ForgotPasswordToken)
	})

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Post("/google", routes.GoogleLoginOrSignUp)
		user.Post("/apple", routes.AppleLoginOrSignUp)
		user.Post("/forgotpassword", routes.ForgotPassword)
		user.Post("/resetpassword", resetTokenVerifierMiddleware, routes.ResetPassword)
		user.Get("/search", accessTokenVerifierMiddleware, routes.SearchUsers)
		user.Get("/me", accessTokenVerifierMiddleware, routes.CurrentUser)
		user.Patch("/me", accessTokenVerifierMiddleware, routes.UpdateUserProfile)
		user.Get("/friends", accessTokenVerifierMiddleware, routes.ListFriends)
		user.Post("/friends/{id:uint}", accessTokenVerifierMiddleware, routes.AddFriend)
		user.Delete("/friends/{id:uint}", accessTokenVerifierMiddleware, routes.RemoveFriend)
		user.Patch("/{id}/pushtoken", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AlterPushToken)
		user.Patch("/{id}/settings/notifications", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.AllowsNotifications)
	}

	event := app.Party("/api/events", accessTokenVerifierMiddleware)
	{
		event.Get("/", routes.ListEvents)
		event.Post("/", routes.CreateEvent)
		event.Get("/{id:uint}", routes.GetEvent)
		event.Patch("/{id:uint}", routes.UpdateEvent)
		event.Delete("/{id:uint}", routes.DeleteEvent)

		event.Post("/{id:uint}/participants", routes.AddParticipant)
		event.Delete("/{id:uint}/participants/{userID:uint}", routes.RemoveParticipant)
		event.Post("/{id:uint}/organisers", routes.PromoteOrganiser)
		event.Delete("/{id:uint}/organisers/{userID:uint}", routes.DemoteOrganiser)
	}

	activity := app.Party("/api/activities", accessTokenVerifierMiddleware)
	{
		activity.Get("/", routes.ListActivities)
		activity.Post("/", routes.CreateActivity)
		activity.Get("/{id:uint}", routes.GetActivity)
		activity.Patch("/{id:uint}", routes.UpdateActivity)
		activity.Delete("/{id:uint}", routes.DeleteActivity)
	}

	planningStep := app.Party("/api/planning-steps", accessTokenVerifierMiddleware)
	{
		planningStep.Get("/", routes.ListPlanningSteps)
		planningStep.Post("/", routes.CreatePlanningStep)
		planningStep.Get("/{id:uint}", routes.GetPlanningStep)
		planningStep.Patch("/{id:uint}", routes.UpdatePlanningStep)
		planningStep.Delete("/{id:uint}", routes.DeletePlanningStep)
	}

	comment := app.Party("/api/comments", accessTokenVerifierMiddleware)
	{
		comment.Get("/", routes.ListComments)
		comment.Post("/", routes.CreateComment)
		comment.Delete("/{id:uint}", routes.DeleteComment)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Println("Starting server on", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
