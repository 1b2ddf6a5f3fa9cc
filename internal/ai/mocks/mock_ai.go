package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"meetscribe/internal/ai"
)

type MockTranscriber struct {
	mock.Mock
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, contentType, filename string) (*ai.Transcription, error) {
	args := m.Called(ctx, audio, contentType, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.Transcription), args.Error(1)
}

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, transcript string) (*ai.SummaryResult, error) {
	args := m.Called(ctx, transcript)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.SummaryResult), args.Error(1)
}
