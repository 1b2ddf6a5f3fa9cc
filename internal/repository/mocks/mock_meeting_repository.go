package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"meetscribe/internal/model"
	"meetscribe/internal/repository"
)

type MockMeetingRepository struct {
	mock.Mock
}

func (m *MockMeetingRepository) Create(ctx context.Context, mt *model.Meeting) (*model.Meeting, error) {
	args := m.Called(ctx, mt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Meeting), args.Error(1)
}

func (m *MockMeetingRepository) FindByID(ctx context.Context, id, userID string) (*model.Meeting, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Meeting), args.Error(1)
}

func (m *MockMeetingRepository) List(ctx context.Context, userID string) ([]model.Meeting, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Meeting), args.Error(1)
}

func (m *MockMeetingRepository) Update(ctx context.Context, id, userID string, u repository.MeetingUpdate) (*model.Meeting, error) {
	args := m.Called(ctx, id, userID, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Meeting), args.Error(1)
}

func (m *MockMeetingRepository) SetStatus(ctx context.Context, id string, status model.MeetingStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockMeetingRepository) SetAudio(ctx context.Context, id, audioURL string) error {
	args := m.Called(ctx, id, audioURL)
	return args.Error(0)
}

func (m *MockMeetingRepository) CreateSummary(ctx context.Context, meetingID string, c repository.SummaryContent) (*model.Summary, error) {
	args := m.Called(ctx, meetingID, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Summary), args.Error(1)
}

func (m *MockMeetingRepository) UpdateSummary(ctx context.Context, meetingID string, c repository.SummaryContent) (*model.Summary, error) {
	args := m.Called(ctx, meetingID, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Summary), args.Error(1)
}

func (m *MockMeetingRepository) Complete(ctx context.Context, id string, c repository.Completion) (*model.Meeting, error) {
	args := m.Called(ctx, id, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Meeting), args.Error(1)
}

func (m *MockMeetingRepository) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}
