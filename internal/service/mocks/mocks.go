package mocks

import (
	"context"
	"time"

	"taskhub_miniapp/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) UpsertUser(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) ResolveReferralCode(ctx context.Context, code string) (*int64, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

func (m *MockUserRepository) IssueSignupBonus(ctx context.Context, telegramID int64, bonus int) (bool, *int64, error) {
	args := m.Called(ctx, telegramID, bonus)
	var referrerID *int64
	if args.Get(1) != nil {
		referrerID = args.Get(1).(*int64)
	}
	return args.Bool(0), referrerID, args.Error(2)
}

func (m *MockUserRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserRepository) GetUserReferrals(ctx context.Context, telegramID int64) ([]*model.UserReferral, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.UserReferral), args.Error(1)
}

func (m *MockUserRepository) AdjustBalance(ctx context.Context, telegramID int64, delta int) error {
	args := m.Called(ctx, telegramID, delta)
	return args.Error(0)
}

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) CreateTask(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) GetTasksData(ctx context.Context, telegramID int64) ([]*model.Task, []*model.UserTask, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]*model.Task), args.Get(1).([]*model.UserTask), args.Error(2)
}

func (m *MockTaskRepository) StartTask(ctx context.Context, telegramID int64, taskID uuid.UUID) error {
	args := m.Called(ctx, telegramID, taskID)
	return args.Error(0)
}

func (m *MockTaskRepository) SubmitProof(ctx context.Context, telegramID int64, taskID uuid.UUID, fileIDs []string) error {
	args := m.Called(ctx, telegramID, taskID, fileIDs)
	return args.Error(0)
}

func (m *MockTaskRepository) ApproveSubmission(ctx context.Context, telegramID int64, taskID uuid.UUID) (int, error) {
	args := m.Called(ctx, telegramID, taskID)
	return args.Int(0), args.Error(1)
}

func (m *MockTaskRepository) RejectSubmission(ctx context.Context, telegramID int64, taskID uuid.UUID) error {
	args := m.Called(ctx, telegramID, taskID)
	return args.Error(0)
}

func (m *MockTaskRepository) ListPendingSubmissions(ctx context.Context) ([]*model.PendingSubmission, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PendingSubmission), args.Error(1)
}

func (m *MockTaskRepository) ExpireAbandonedTasks(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) CreateWithdrawal(ctx context.Context, telegramID int64, amount int, destination string) (*model.Withdrawal, error) {
	args := m.Called(ctx, telegramID, amount, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) GetUserWithdrawals(ctx context.Context, telegramID int64) ([]*model.Withdrawal, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) ListPendingWithdrawals(ctx context.Context) ([]*model.Withdrawal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) ApproveWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) RejectWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyReferrer(referrerID int64, newUserName string) {
	m.Called(referrerID, newUserName)
}

func (m *MockNotifier) NotifyUser(telegramID int64, text string) {
	m.Called(telegramID, text)
}

func (m *MockNotifier) PublishEvent(telegramID int64, eventType string, payload map[string]any) {
	m.Called(telegramID, eventType, payload)
}
