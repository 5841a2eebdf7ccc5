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

func TestWithdrawalService_RequestWithdrawal(t *testing.T) {
	tests := []struct {
		name          string
		amount        int
		destination   string
		mockSetup     func(repo *mocks.MockWithdrawalRepository)
		expectedError error
	}{
		{
			name:          "Zero amount is rejected",
			amount:        0,
			destination:   "TON:abc",
			mockSetup:     func(repo *mocks.MockWithdrawalRepository) {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:        "Insufficient balance maps cleanly",
			amount:      50,
			destination: "TON:abc",
			mockSetup: func(repo *mocks.MockWithdrawalRepository) {
				repo.On("CreateWithdrawal", mock.Anything, int64(1), 50, "TON:abc").
					Return(nil, repository.ErrInsufficientBalance)
			},
			expectedError: ErrInsufficientBalance,
		},
		{
			name:        "Successful request",
			amount:      10,
			destination: "TON:abc",
			mockSetup: func(repo *mocks.MockWithdrawalRepository) {
				repo.On("CreateWithdrawal", mock.Anything, int64(1), 10, "TON:abc").
					Return(&model.Withdrawal{
						ID:     uuid.New(),
						UserID: 1,
						Amount: 10,
						Status: model.WithdrawalPending,
					}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockWithdrawalRepository{}
			tt.mockSetup(mockRepo)

			svc := NewWithdrawalService(mockRepo, &mocks.MockNotifier{})
			w, err := svc.RequestWithdrawal(context.Background(), 1, tt.amount, tt.destination)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, w)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, model.WithdrawalPending, w.Status)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestWithdrawalService_RejectWithdrawal(t *testing.T) {
	id := uuid.New()

	mockRepo := &mocks.MockWithdrawalRepository{}
	mockNotifier := &mocks.MockNotifier{}

	mockRepo.On("RejectWithdrawal", mock.Anything, id).
		Return(&model.Withdrawal{ID: id, UserID: 3, Amount: 25, Status: model.WithdrawalRejected}, nil)
	mockNotifier.On("NotifyUser", int64(3), mock.Anything).Return()
	mockNotifier.On("PublishEvent", int64(3), notifier.EventWithdrawalProcessed, mock.Anything).Return()

	svc := NewWithdrawalService(mockRepo, mockNotifier)
	err := svc.RejectWithdrawal(context.Background(), id)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockNotifier.AssertExpectations(t)
}

func TestWithdrawalService_ApproveWithdrawal_NotPending(t *testing.T) {
	id := uuid.New()

	mockRepo := &mocks.MockWithdrawalRepository{}
	mockNotifier := &mocks.MockNotifier{}

	mockRepo.On("ApproveWithdrawal", mock.Anything, id).
		Return(nil, repository.ErrWithdrawalNotPending)

	svc := NewWithdrawalService(mockRepo, mockNotifier)
	err := svc.ApproveWithdrawal(context.Background(), id)

	assert.ErrorIs(t, err, ErrWithdrawalNotPending)
	mockNotifier.AssertExpectations(t)
}
