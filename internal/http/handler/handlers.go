package handler

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"meetscribe/internal/http/middleware"
	"meetscribe/internal/model"
	"meetscribe/internal/service"
)

// uploadSummary is the summary portion of the upload response.
type uploadSummary struct {
	KeyPoints   []string `json:"keyPoints"`
	Decisions   []string `json:"decisions"`
	ActionItems []string `json:"actionItems"`
}

// uploadResponse is the body returned for a completed upload.
type uploadResponse struct {
	AudioURL   string         `json:"audioUrl"`
	Duration   int            `json:"duration"`
	Transcript string         `json:"transcript"`
	Summary    uploadSummary  `json:"summary"`
	Meeting    *model.Meeting `json:"meeting"`
}

// HealthCheck reports readiness by pinging the database.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness probe.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// UploadAudio accepts a multipart audio upload (field name: file) and runs
// it through the processing pipeline synchronously.
func UploadAudio(pipeline service.PipelineService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "No file uploaded.")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_READ_ERROR", "cannot read uploaded file")
		}

		meeting, err := pipeline.ProcessUpload(c.UserContext(), middleware.UserID(c), service.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Data:        data,
		})
		if err != nil {
			return writeServiceError(c, err)
		}

		res := uploadResponse{
			AudioURL: meeting.AudioURL,
			Duration: meeting.Duration,
			Meeting:  meeting,
		}
		if meeting.Summary != nil {
			res.Transcript = meeting.Summary.Transcript
			res.Summary = uploadSummary{
				KeyPoints:   meeting.Summary.KeyPoints,
				Decisions:   meeting.Summary.Decisions,
				ActionItems: meeting.Summary.ActionItems,
			}
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// ListMeetings returns all meetings owned by the authenticated user.
func ListMeetings(svc service.MeetingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		meetings, err := svc.List(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"data": meetings, "total": len(meetings)})
	}
}

// CreateMeeting creates a meeting record without audio.
func CreateMeeting(svc service.MeetingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.CreateMeetingInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		meeting, err := svc.Create(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(meeting)
	}
}

// GetMeeting returns one meeting by ID, summary and associations included.
func GetMeeting(svc service.MeetingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := meetingID(c)
		if !ok {
			return invalidID(c)
		}
		meeting, err := svc.Get(c.UserContext(), id, middleware.UserID(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(meeting)
	}
}

// UpdateMeeting applies a partial update to a meeting.
func UpdateMeeting(svc service.MeetingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := meetingID(c)
		if !ok {
			return invalidID(c)
		}
		var in service.UpdateMeetingInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		meeting, err := svc.Update(c.UserContext(), id, middleware.UserID(c), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(meeting)
	}
}

// DeleteMeeting removes a meeting along with its stored audio.
func DeleteMeeting(svc service.MeetingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := meetingID(c)
		if !ok {
			return invalidID(c)
		}
		if err := svc.Delete(c.UserContext(), id, middleware.UserID(c)); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// CreateSummary attaches a summary to a meeting that has none yet.
func CreateSummary(svc service.MeetingService) fiber.Handler {
	return summaryHandler(func(c *fiber.Ctx, svcIn service.SummaryInput, id string) (*model.Meeting, error) {
		return svc.CreateSummary(c.UserContext(), id, middleware.UserID(c), svcIn)
	}, fiber.StatusCreated)
}

// UpdateSummary replaces the summary of a meeting.
func UpdateSummary(svc service.MeetingService) fiber.Handler {
	return summaryHandler(func(c *fiber.Ctx, svcIn service.SummaryInput, id string) (*model.Meeting, error) {
		return svc.UpdateSummary(c.UserContext(), id, middleware.UserID(c), svcIn)
	}, fiber.StatusOK)
}

func summaryHandler(save func(*fiber.Ctx, service.SummaryInput, string) (*model.Meeting, error), okStatus int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := meetingID(c)
		if !ok {
			return invalidID(c)
		}
		var in service.SummaryInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		meeting, err := save(c, in, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(okStatus).JSON(meeting)
	}
}

// ExportMeeting renders a meeting as a downloadable JSON or Markdown file.
// The format query parameter defaults to json.
func ExportMeeting(svc service.MeetingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := meetingID(c)
		if !ok {
			return invalidID(c)
		}
		format := c.Query("format", service.FormatJSON)
		if format != service.FormatJSON && format != service.FormatMarkdown {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FORMAT", "format must be json or markdown")
		}

		meeting, err := svc.Get(c.UserContext(), id, middleware.UserID(c))
		if err != nil {
			return writeServiceError(c, err)
		}

		var body []byte
		contentType := fiber.MIMEApplicationJSONCharsetUTF8
		if format == service.FormatMarkdown {
			body = service.ExportMarkdown(meeting)
			contentType = "text/markdown; charset=utf-8"
		} else {
			body, err = service.ExportJSON(meeting)
			if err != nil {
				return writeServiceError(c, err)
			}
		}

		c.Set(fiber.HeaderContentType, contentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", service.ExportFilename(meeting, format)))
		return c.Send(body)
	}
}

// meetingID validates the :id path parameter. ok is false when the id is
// not a UUID; the caller then writes the 400 response.
func meetingID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func invalidID(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
}
