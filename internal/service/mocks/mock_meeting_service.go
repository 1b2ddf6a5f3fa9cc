package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"meetscribe/internal/model"
	"meetscribe/internal/service"
)

// MockMeetingService is a testify mock of service.MeetingService.
type MockMeetingService struct {
	mock.Mock
}

func (m *MockMeetingService) Create(ctx context.Context, userID string, in service.CreateMeetingInput) (*model.Meeting, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Meeting), args.Error(1)
}

func (m *MockMeetingService) Get(ctx context.Context, id, userID string) (*model.Meeting, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Meeting), args.Error(1)
}

func (m *MockMeetingService) List(ctx context.Context, userID string) ([]model.Meeting, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Meeting), args.Error(1)
}

func (m *MockMeetingService) Update(ctx context.Context, id, userID string, in service.UpdateMeetingInput) (*model.Meeting, error) {
	args := m.Called(ctx, id, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Meeting), args.Error(1)
}

func (m *MockMeetingService) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockMeetingService) CreateSummary(ctx context.Context, meetingID, userID string, in service.SummaryInput) (*model.Meeting, error) {
	args := m.Called(ctx, meetingID, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Meeting), args.Error(1)
}

func (m *MockMeetingService) UpdateSummary(ctx context.Context, meetingID, userID string, in service.SummaryInput) (*model.Meeting, error) {
	args := m.Called(ctx, meetingID, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Meeting), args.Error(1)
}

// MockPipelineService is a testify mock of service.PipelineService.
type MockPipelineService struct {
	mock.Mock
}

func (m *MockPipelineService) ProcessUpload(ctx context.Context, userID string, up service.Upload) (*model.Meeting, error) {
	args := m.Called(ctx, userID, up)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Meeting), args.Error(1)
}
