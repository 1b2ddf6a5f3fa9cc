package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"meetscribe/internal/ai"
	"meetscribe/internal/audio"
	"meetscribe/internal/config"
	"meetscribe/internal/model"
	"meetscribe/internal/repository"
	"meetscribe/internal/storage"
	"meetscribe/internal/tempfile"
)

// allowedAudioTypes is the upload allow-list. Anything else is rejected
// before a meeting record is created.
var allowedAudioTypes = map[string]struct{}{
	"audio/mpeg":  {},
	"audio/mp3":   {},
	"audio/wav":   {},
	"audio/x-wav": {},
	"audio/wave":  {},
	"audio/mp4":   {},
	"audio/m4a":   {},
	"audio/x-m4a": {},
}

// Upload is one audio file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// PipelineService runs the full upload pipeline: store the audio,
// transcribe it, summarize the transcript, and persist the result.
type PipelineService interface {
	ProcessUpload(ctx context.Context, userID string, up Upload) (*model.Meeting, error)
}

type pipelineService struct {
	repo        repository.MeetingRepository
	store       storage.BlobStore
	transcriber ai.Transcriber
	summarizer  ai.Summarizer
	extractor   audio.Extractor
	staging     *tempfile.Manager
	cfg         config.UploadConfig
	log         *logrus.Entry
	runs        *prometheus.CounterVec
}

// NewPipelineService constructs a PipelineService. The runs counter is
// registered on reg and labelled by outcome.
func NewPipelineService(
	repo repository.MeetingRepository,
	store storage.BlobStore,
	transcriber ai.Transcriber,
	summarizer ai.Summarizer,
	extractor audio.Extractor,
	staging *tempfile.Manager,
	cfg config.UploadConfig,
	log *logrus.Entry,
	reg prometheus.Registerer,
) (PipelineService, error) {
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of upload pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)
	if err := reg.Register(runs); err != nil {
		return nil, err
	}
	return &pipelineService{
		repo:        repo,
		store:       store,
		transcriber: transcriber,
		summarizer:  summarizer,
		extractor:   extractor,
		staging:     staging,
		cfg:         cfg,
		log:         log,
		runs:        runs,
	}, nil
}

func (s *pipelineService) ProcessUpload(ctx context.Context, userID string, up Upload) (*model.Meeting, error) {
	if userID == "" {
		return nil, ErrIDRequired
	}
	if len(up.Data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidInput)
	}
	if _, ok := allowedAudioTypes[strings.ToLower(up.ContentType)]; !ok {
		return nil, ErrUnsupportedType
	}
	if s.cfg.MaxFileSize > 0 && int64(len(up.Data)) > s.cfg.MaxFileSize {
		return nil, ErrFileTooLarge
	}

	now := time.Now().UTC()
	meeting := &model.Meeting{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     titleFromFilename(up.Filename),
		FileSize:  int64(len(up.Data)),
		Date:      now,
		Status:    model.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	meeting, err := s.repo.Create(ctx, meeting)
	if err != nil {
		s.runs.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("create meeting: %w", err)
	}

	result, err := s.run(ctx, meeting, up)
	if err != nil {
		s.markFailed(ctx, meeting.ID)
		s.runs.WithLabelValues("failed").Inc()
		return nil, err
	}
	s.runs.WithLabelValues("completed").Inc()
	return result, nil
}

// run drives the meeting through the pipeline stages. The status is
// advanced before each fallible stage so a crash mid-stage leaves the
// record showing where it stopped.
func (s *pipelineService) run(ctx context.Context, meeting *model.Meeting, up Upload) (*model.Meeting, error) {
	log := s.log.WithFields(logrus.Fields{"meeting_id": meeting.ID, "filename": up.Filename})

	if err := s.repo.SetStatus(ctx, meeting.ID, model.StatusProcessing); err != nil {
		return nil, fmt.Errorf("set status processing: %w", err)
	}

	// The upload is staged to local disk for the duration of the run and
	// streamed to durable storage from there.
	staged, err := s.staging.Stage(up.Data, up.Filename)
	if err != nil {
		return nil, err
	}
	defer staged.Cleanup()

	key := fmt.Sprintf("uploads/%s-%s%s", meeting.ID, uuid.New().String(), filepath.Ext(up.Filename))

	// Object upload and duration extraction are independent of each other.
	var (
		wg       sync.WaitGroup
		putErr   error
		duration int
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		f, err := os.Open(staged.Path)
		if err != nil {
			putErr = err
			return
		}
		defer f.Close()
		_, putErr = s.store.Put(ctx, key, f, storage.PutObjectOptions{
			Size:        int64(len(up.Data)),
			ContentType: up.ContentType,
		})
	}()
	go func() {
		defer wg.Done()
		duration = s.extractor.Duration(up.Data, up.ContentType)
	}()
	wg.Wait()
	if putErr != nil {
		return nil, fmt.Errorf("store audio: %w", putErr)
	}

	audioURL := s.publicURL(key)
	if err := s.repo.SetAudio(ctx, meeting.ID, audioURL); err != nil {
		return nil, fmt.Errorf("record audio url: %w", err)
	}
	log.WithField("audio_url", audioURL).Info("audio stored")

	if err := s.repo.SetStatus(ctx, meeting.ID, model.StatusTranscribing); err != nil {
		return nil, fmt.Errorf("set status transcribing: %w", err)
	}
	transcription, err := s.transcriber.Transcribe(ctx, up.Data, up.ContentType, up.Filename)
	if err != nil {
		return nil, err
	}
	log.WithField("transcript_len", len(transcription.Text)).Info("transcription done")

	if err := s.repo.SetStatus(ctx, meeting.ID, model.StatusSummarizing); err != nil {
		return nil, fmt.Errorf("set status summarizing: %w", err)
	}
	summary, err := s.summarizer.Summarize(ctx, transcription.Text)
	if err != nil {
		return nil, err
	}
	log.WithField("title", summary.Title).Info("summarization done")

	completed, err := s.repo.Complete(ctx, meeting.ID, repository.Completion{
		Title:    summary.Title,
		Duration: duration,
		Summary: repository.SummaryContent{
			Transcript:  transcription.Text,
			KeyPoints:   summary.KeyPoints,
			Decisions:   summary.Decisions,
			ActionItems: summary.ActionItems,
		},
		Tags:         summary.Tags,
		Participants: summary.Participants,
	})
	if err != nil {
		return nil, fmt.Errorf("complete meeting: %w", err)
	}
	return completed, nil
}

// markFailed flips the record to failed. The pipeline error is what the
// caller sees; a failure here is only logged. The flip runs detached from
// the request context so a caller-side cancel cannot strand the meeting
// in a transient status.
func (s *pipelineService) markFailed(ctx context.Context, meetingID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.repo.SetStatus(ctx, meetingID, model.StatusFailed); err != nil {
		s.log.WithField("meeting_id", meetingID).WithError(err).Warn("could not mark meeting failed")
	}
}

func (s *pipelineService) publicURL(key string) string {
	if s.cfg.PublicBaseURL == "" {
		return key
	}
	return strings.TrimSuffix(s.cfg.PublicBaseURL, "/") + "/" + key
}

// titleFromFilename is the provisional title used until summarization
// produces a real one.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." {
		return "Untitled meeting"
	}
	return name
}
