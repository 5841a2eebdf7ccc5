package service

import (
	"context"
	"testing"

	"taskhub_miniapp/internal/model"
	"taskhub_miniapp/internal/notifier"
	"taskhub_miniapp/internal/repository"
	"taskhub_miniapp/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestTaskService_CreateTask(t *testing.T) {
	tests := []struct {
		name      string
		task      *model.Task
		mockSetup func(repo *mocks.MockTaskRepository)
		wantErr   bool
	}{
		{
			name: "Valid task gets an id and becomes active",
			task: &model.Task{Kind: model.TaskKindSubscribe, Title: "Subscribe to channel", Reward: 5},
			mockSetup: func(repo *mocks.MockTaskRepository) {
				repo.On("CreateTask", mock.Anything, mock.MatchedBy(func(task *model.Task) bool {
					return task.TaskID != uuid.Nil && task.Active && !task.CreatedAt.IsZero()
				})).Return(nil)
			},
		},
		{
			name:      "Unknown kind is rejected",
			task:      &model.Task{Kind: "like", Title: "nope", Reward: 5},
			mockSetup: func(repo *mocks.MockTaskRepository) {},
			wantErr:   true,
		},
		{
			name:      "Non-positive reward is rejected",
			task:      &model.Task{Kind: model.TaskKindView, Title: "Watch", Reward: 0},
			mockSetup: func(repo *mocks.MockTaskRepository) {},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockTaskRepository{}
			tt.mockSetup(mockRepo)

			svc := NewTaskService(mockRepo, &mocks.MockNotifier{})
			id, err := svc.CreateTask(context.Background(), tt.task)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, uuid.Nil, id)
			} else {
				assert.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, id)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_SubmitProof(t *testing.T) {
	taskID := uuid.New()

	t.Run("Proof is required", func(t *testing.T) {
		svc := NewTaskService(&mocks.MockTaskRepository{}, &mocks.MockNotifier{})
		err := svc.SubmitProof(context.Background(), 1, taskID, nil)
		assert.ErrorIs(t, err, ErrNoProofAttached)
	})

	t.Run("Submitting an unstarted task maps cleanly", func(t *testing.T) {
		mockRepo := &mocks.MockTaskRepository{}
		mockRepo.On("SubmitProof", mock.Anything, int64(1), taskID, []string{"file1"}).
			Return(repository.ErrTaskNotStarted)

		svc := NewTaskService(mockRepo, &mocks.MockNotifier{})
		err := svc.SubmitProof(context.Background(), 1, taskID, []string{"file1"})
		assert.ErrorIs(t, err, ErrTaskNotStarted)
	})

	t.Run("Successful submission", func(t *testing.T) {
		mockRepo := &mocks.MockTaskRepository{}
		mockRepo.On("SubmitProof", mock.Anything, int64(1), taskID, []string{"file1", "file2"}).
			Return(nil)

		svc := NewTaskService(mockRepo, &mocks.MockNotifier{})
		err := svc.SubmitProof(context.Background(), 1, taskID, []string{"file1", "file2"})
		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}

func TestTaskService_StartTask(t *testing.T) {
	taskID := uuid.New()

	tests := []struct {
		name          string
		repoErr       error
		expectedError error
	}{
		{"Already started", repository.ErrTaskAlreadyStarted, ErrTaskAlreadyStarted},
		{"Task missing", repository.ErrTaskNotFound, ErrTaskNotFound},
		{"Success", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockTaskRepository{}
			mockRepo.On("StartTask", mock.Anything, int64(7), taskID).Return(tt.repoErr)

			svc := NewTaskService(mockRepo, &mocks.MockNotifier{})
			err := svc.StartTask(context.Background(), 7, taskID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTaskService_ApproveSubmission(t *testing.T) {
	taskID := uuid.New()

	t.Run("Approval notifies the worker after payout", func(t *testing.T) {
		mockRepo := &mocks.MockTaskRepository{}
		mockNotifier := &mocks.MockNotifier{}

		mockRepo.On("ApproveSubmission", mock.Anything, int64(9), taskID).Return(10, nil)
		mockNotifier.On("NotifyUser", int64(9), mock.Anything).Return()
		mockNotifier.On("PublishEvent", int64(9), notifier.EventTaskApproved, mock.MatchedBy(func(payload map[string]any) bool {
			return payload["reward"] == 10
		})).Return()

		svc := NewTaskService(mockRepo, mockNotifier)
		err := svc.ApproveSubmission(context.Background(), 9, taskID)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockNotifier.AssertExpectations(t)
	})

	t.Run("Nothing pending means no notification", func(t *testing.T) {
		mockRepo := &mocks.MockTaskRepository{}
		mockNotifier := &mocks.MockNotifier{}

		mockRepo.On("ApproveSubmission", mock.Anything, int64(9), taskID).
			Return(0, repository.ErrSubmissionNotPending)

		svc := NewTaskService(mockRepo, mockNotifier)
		err := svc.ApproveSubmission(context.Background(), 9, taskID)

		assert.ErrorIs(t, err, ErrSubmissionNotPending)
		mockNotifier.AssertExpectations(t)
	})
}

func TestTaskService_RejectSubmission(t *testing.T) {
	taskID := uuid.New()

	mockRepo := &mocks.MockTaskRepository{}
	mockNotifier := &mocks.MockNotifier{}

	mockRepo.On("RejectSubmission", mock.Anything, int64(9), taskID).Return(nil)
	mockNotifier.On("NotifyUser", int64(9), mock.Anything).Return()
	mockNotifier.On("PublishEvent", int64(9), notifier.EventTaskRejected, mock.Anything).Return()

	svc := NewTaskService(mockRepo, mockNotifier)
	err := svc.RejectSubmission(context.Background(), 9, taskID)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockNotifier.AssertExpectations(t)
}
