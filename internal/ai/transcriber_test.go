package ai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetscribe/internal/tempfile"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestTranscriber(t *testing.T, srv *httptest.Server) (*openAITranscriber, string) {
	t.Helper()
	stagingDir := t.TempDir()
	return &openAITranscriber{
		baseURL: srv.URL,
		apiKey:  "test-key",
		model:   "gpt-4o-transcribe",
		lang:    "en",
		client:  &http.Client{Timeout: 5 * time.Second},
		staging: tempfile.NewManager(stagingDir, testLogger()),
		log:     testLogger(),
	}, stagingDir
}

func stagedFileCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestTranscribe(t *testing.T) {
	var gotAuth, gotModel, gotLang, gotFilename string
	var gotAudio []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		gotLang = r.FormValue("language")

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		gotAudio, err = io.ReadAll(file)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hello from the meeting","language":"en"}`))
	}))
	defer srv.Close()

	tr, stagingDir := newTestTranscriber(t, srv)

	result, err := tr.Transcribe(context.Background(), []byte("fake-audio"), "audio/mpeg", "standup.mp3")

	require.NoError(t, err)
	assert.Equal(t, "hello from the meeting", result.Text)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o-transcribe", gotModel)
	assert.Equal(t, "en", gotLang)
	assert.Equal(t, "standup.mp3", gotFilename)
	assert.Equal(t, []byte("fake-audio"), gotAudio)
	assert.Zero(t, stagedFileCount(t, stagingDir), "staged audio should be removed after success")
}

func TestTranscribe_EmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"   "}`))
	}))
	defer srv.Close()

	tr, stagingDir := newTestTranscriber(t, srv)

	result, err := tr.Transcribe(context.Background(), []byte("fake-audio"), "audio/mpeg", "standup.mp3")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, IsCode(err, CodeTranscriptionFailed))
	assert.Zero(t, stagedFileCount(t, stagingDir), "staged audio should be removed after failure")
}

func TestTranscribe_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr, stagingDir := newTestTranscriber(t, srv)

	_, err := tr.Transcribe(context.Background(), []byte("fake-audio"), "audio/wav", "call.wav")

	require.Error(t, err)
	assert.True(t, IsCode(err, CodeTranscriptionFailed))
	assert.Contains(t, err.Error(), "503")
	assert.Zero(t, stagedFileCount(t, stagingDir), "staged audio should be removed after backend error")
}

func TestTranscribe_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can observe the client disconnect;
		// with an unread body the request context is never canceled and
		// srv.Close deadlocks.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	tr, stagingDir := newTestTranscriber(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := tr.Transcribe(ctx, []byte("fake-audio"), "audio/mpeg", "standup.mp3")

	require.Error(t, err)
	assert.True(t, IsCode(err, CodeTranscriptionFailed))
	assert.Zero(t, stagedFileCount(t, stagingDir))
}
