package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	aipkg "meetscribe/internal/ai"
	"meetscribe/internal/model"
	"meetscribe/internal/service"
	serviceMocks "meetscribe/internal/service/mocks"
)

// withUser fakes the auth middleware by pinning the user id in locals.
func withUser(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	}
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func multipartUpload(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	h["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestUploadAudio(t *testing.T) {
	mockSvc := new(serviceMocks.MockPipelineService)
	app := fiber.New()
	app.Post("/api/upload", withUser("user-1"), UploadAudio(mockSvc))

	t.Run("success", func(t *testing.T) {
		completed := &model.Meeting{
			ID:       "m1",
			Title:    "Release Standup",
			AudioURL: "http://cdn.local/uploads/m1-abc.mp3",
			Duration: 245,
			Status:   model.StatusCompleted,
			Summary: &model.Summary{
				Transcript:  "we shipped",
				KeyPoints:   []string{"release shipped"},
				Decisions:   []string{},
				ActionItems: []string{"update changelog"},
			},
		}
		mockSvc.On("ProcessUpload", mock.Anything, "user-1", mock.MatchedBy(func(up service.Upload) bool {
			return up.Filename == "standup.mp3" && up.ContentType == "audio/mpeg" && string(up.Data) == "fake-audio"
		})).Return(completed, nil).Once()

		body, ct := multipartUpload(t, "file", "standup.mp3", "audio/mpeg", []byte("fake-audio"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)

		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var res uploadResponse
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "http://cdn.local/uploads/m1-abc.mp3", res.AudioURL)
		assert.Equal(t, 245, res.Duration)
		assert.Equal(t, "we shipped", res.Transcript)
		assert.Equal(t, []string{"release shipped"}, res.Summary.KeyPoints)
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "No file uploaded.", body.Error.Message)
	})

	t.Run("unsupported type", func(t *testing.T) {
		mockSvc.On("ProcessUpload", mock.Anything, "user-1", mock.Anything).
			Return(nil, service.ErrUnsupportedType).Once()

		body, ct := multipartUpload(t, "file", "movie.mp4", "video/mp4", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)

		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "Unsupported file type.", payload.Error.Message)
	})

	t.Run("too large", func(t *testing.T) {
		mockSvc.On("ProcessUpload", mock.Anything, "user-1", mock.Anything).
			Return(nil, service.ErrFileTooLarge).Once()

		body, ct := multipartUpload(t, "file", "long.mp3", "audio/mpeg", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)

		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "File too large.", payload.Error.Message)
	})

	t.Run("transcription failure", func(t *testing.T) {
		mockSvc.On("ProcessUpload", mock.Anything, "user-1", mock.Anything).
			Return(nil, &aipkg.Error{Code: aipkg.CodeTranscriptionFailed, Cause: errors.New("backend down")}).Once()

		body, ct := multipartUpload(t, "file", "standup.mp3", "audio/mpeg", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", ct)

		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "TRANSCRIPTION_FAILED", payload.Error.Code)
	})
}

func TestListMeetings(t *testing.T) {
	mockSvc := new(serviceMocks.MockMeetingService)
	app := fiber.New()
	app.Get("/api/meetings", withUser("user-1"), ListMeetings(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, "user-1").
			Return([]model.Meeting{{ID: uuid.NewString(), Title: "Standup"}}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/meetings", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result struct {
			Data  []model.Meeting `json:"data"`
			Total int             `json:"total"`
		}
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Data, 1)
		assert.Equal(t, 1, result.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, "user-1").Return(nil, errors.New("boom")).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/meetings", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestGetMeeting(t *testing.T) {
	mockSvc := new(serviceMocks.MockMeetingService)
	app := fiber.New()
	app.Get("/api/meetings/:id", withUser("user-1"), GetMeeting(mockSvc))

	id := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, id, "user-1").
			Return(&model.Meeting{ID: id, Title: "Standup"}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/meetings/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var meeting model.Meeting
		json.NewDecoder(resp.Body).Decode(&meeting)
		assert.Equal(t, id, meeting.ID)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/meetings/not-a-uuid", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "INVALID_ID", payload.Error.Code)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, id, "user-1").Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/meetings/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestUpdateMeeting(t *testing.T) {
	mockSvc := new(serviceMocks.MockMeetingService)
	app := fiber.New()
	app.Put("/api/meetings/:id", withUser("user-1"), UpdateMeeting(mockSvc))

	id := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Update", mock.Anything, id, "user-1", mock.MatchedBy(func(in service.UpdateMeetingInput) bool {
			return in.Title != nil && *in.Title == "Renamed" && in.Tags == nil
		})).Return(&model.Meeting{ID: id, Title: "Renamed"}, nil).Once()

		req := httptest.NewRequest(http.MethodPut, "/api/meetings/"+id,
			bytes.NewBufferString(`{"title":"Renamed"}`))
		req.Header.Set("Content-Type", "application/json")

		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("bad body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/meetings/"+id, bytes.NewBufferString(`{`))
		req.Header.Set("Content-Type", "application/json")

		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDeleteMeeting(t *testing.T) {
	mockSvc := new(serviceMocks.MockMeetingService)
	app := fiber.New()
	app.Delete("/api/meetings/:id", withUser("user-1"), DeleteMeeting(mockSvc))

	id := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, id, "user-1").Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/api/meetings/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, id, "user-1").Return(service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/api/meetings/"+id, nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCreateSummary(t *testing.T) {
	mockSvc := new(serviceMocks.MockMeetingService)
	app := fiber.New()
	app.Post("/api/meetings/:id/summary", withUser("user-1"), CreateSummary(mockSvc))

	id := uuid.NewString()

	t.Run("success", func(t *testing.T) {
		mockSvc.On("CreateSummary", mock.Anything, id, "user-1", mock.MatchedBy(func(in service.SummaryInput) bool {
			return in.Transcript == "we talked"
		})).Return(&model.Meeting{ID: id}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/meetings/"+id+"/summary",
			bytes.NewBufferString(`{"transcript":"we talked","keyPoints":["a"]}`))
		req.Header.Set("Content-Type", "application/json")

		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("conflict when summary exists", func(t *testing.T) {
		mockSvc.On("CreateSummary", mock.Anything, id, "user-1", mock.Anything).
			Return(nil, service.ErrConflict).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/meetings/"+id+"/summary",
			bytes.NewBufferString(`{"transcript":"we talked"}`))
		req.Header.Set("Content-Type", "application/json")

		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		var payload errorPayload
		json.NewDecoder(resp.Body).Decode(&payload)
		assert.Equal(t, "CONFLICT", payload.Error.Code)
	})
}

func TestUpdateSummary(t *testing.T) {
	mockSvc := new(serviceMocks.MockMeetingService)
	app := fiber.New()
	app.Put("/api/meetings/:id/summary", withUser("user-1"), UpdateSummary(mockSvc))

	id := uuid.NewString()

	mockSvc.On("UpdateSummary", mock.Anything, id, "user-1", mock.Anything).
		Return(&model.Meeting{ID: id}, nil).Once()

	req := httptest.NewRequest(http.MethodPut, "/api/meetings/"+id+"/summary",
		bytes.NewBufferString(`{"transcript":"edited"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	mockSvc.AssertExpectations(t)
}

func TestExportMeeting(t *testing.T) {
	mockSvc := new(serviceMocks.MockMeetingService)
	app := fiber.New()
	app.Get("/api/meetings/:id/export", withUser("user-1"), ExportMeeting(mockSvc))

	id := uuid.NewString()
	meeting := &model.Meeting{
		ID:    id,
		Title: "Q3 Planning",
		Summary: &model.Summary{
			Transcript: "we planned",
			KeyPoints:  []string{"budget"},
		},
	}

	t.Run("json by default", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, id, "user-1").Return(meeting, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/meetings/"+id+"/export", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "q3-planning.json")

		raw, _ := io.ReadAll(resp.Body)
		var back model.Meeting
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.Equal(t, "Q3 Planning", back.Title)
	})

	t.Run("markdown", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, id, "user-1").Return(meeting, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/meetings/"+id+"/export?format=markdown", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/markdown")
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "q3-planning.md")

		raw, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(raw), "# Q3 Planning")
	})

	t.Run("bad format", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/meetings/"+id+"/export?format=xml", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
