package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"meetscribe/internal/http/middleware"
	"meetscribe/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Everything
// under /api requires a valid bearer token.
func RegisterRoutes(app *fiber.App, db *sql.DB, meetingSvc service.MeetingService, pipeline service.PipelineService, jwtSecret string) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api", middleware.Auth(jwtSecret))

	api.Post("/upload", UploadAudio(pipeline))

	api.Get("/meetings", ListMeetings(meetingSvc))
	api.Post("/meetings", CreateMeeting(meetingSvc))
	api.Get("/meetings/:id", GetMeeting(meetingSvc))
	api.Put("/meetings/:id", UpdateMeeting(meetingSvc))
	api.Delete("/meetings/:id", DeleteMeeting(meetingSvc))

	api.Post("/meetings/:id/summary", CreateSummary(meetingSvc))
	api.Put("/meetings/:id/summary", UpdateSummary(meetingSvc))

	api.Get("/meetings/:id/export", ExportMeeting(meetingSvc))
}
