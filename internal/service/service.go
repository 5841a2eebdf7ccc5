package service

import (
	"context"
	"errors"
	"time"

	"taskhub_miniapp/internal/model"

	"github.com/google/uuid"
)

var (
	ErrInvalidUserPayload   = errors.New("user payload is missing or invalid")
	ErrUserNotFound         = errors.New("user not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskAlreadyStarted   = errors.New("task already started")
	ErrTaskNotStarted       = errors.New("task has not been started")
	ErrNoProofAttached      = errors.New("at least one proof screenshot is required")
	ErrSubmissionNotPending = errors.New("submission is not awaiting review")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInsufficientBalance  = errors.New("balance does not cover the requested amount")
	ErrWithdrawalNotPending = errors.New("withdrawal is not pending")
)

type Service struct {
	*UserService
	*TaskService
	*WithdrawalService
}

func NewService(userService *UserService, taskService *TaskService, withdrawalService *WithdrawalService) *Service {
	return &Service{
		UserService:       userService,
		TaskService:       taskService,
		WithdrawalService: withdrawalService,
	}
}

type UserServiceI interface {
	Authenticate(ctx context.Context, profile *model.User, referralToken string) (*AuthResult, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetLeaderboard(ctx context.Context) ([]*model.User, error)
	GetUserReferrals(ctx context.Context, telegramID int64) ([]*model.UserReferral, error)
	AdjustBalance(ctx context.Context, telegramID int64, delta int) error
}

type UserRepository interface {
	UpsertUser(ctx context.Context, user *model.User) (*model.User, error)
	ResolveReferralCode(ctx context.Context, code string) (*int64, error)
	IssueSignupBonus(ctx context.Context, telegramID int64, bonus int) (bool, *int64, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetTopUsers(ctx context.Context, limit int) ([]*model.User, error)
	GetUserReferrals(ctx context.Context, telegramID int64) ([]*model.UserReferral, error)
	AdjustBalance(ctx context.Context, telegramID int64, delta int) error
}

type TaskServiceI interface {
	CreateTask(ctx context.Context, task *model.Task) (uuid.UUID, error)
	GetUserTasks(ctx context.Context, telegramID int64) ([]*model.Task, []*model.UserTask, error)
	StartTask(ctx context.Context, telegramID int64, taskID uuid.UUID) error
	SubmitProof(ctx context.Context, telegramID int64, taskID uuid.UUID, fileIDs []string) error
	ApproveSubmission(ctx context.Context, telegramID int64, taskID uuid.UUID) error
	RejectSubmission(ctx context.Context, telegramID int64, taskID uuid.UUID) error
	ListPendingSubmissions(ctx context.Context) ([]*model.PendingSubmission, error)
	ExpireAbandonedTasks(ctx context.Context, olderThan time.Duration) (int64, error)
}

type TaskRepository interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTasksData(ctx context.Context, telegramID int64) ([]*model.Task, []*model.UserTask, error)
	StartTask(ctx context.Context, telegramID int64, taskID uuid.UUID) error
	SubmitProof(ctx context.Context, telegramID int64, taskID uuid.UUID, fileIDs []string) error
	ApproveSubmission(ctx context.Context, telegramID int64, taskID uuid.UUID) (int, error)
	RejectSubmission(ctx context.Context, telegramID int64, taskID uuid.UUID) error
	ListPendingSubmissions(ctx context.Context) ([]*model.PendingSubmission, error)
	ExpireAbandonedTasks(ctx context.Context, olderThan time.Duration) (int64, error)
}

type WithdrawalServiceI interface {
	RequestWithdrawal(ctx context.Context, telegramID int64, amount int, destination string) (*model.Withdrawal, error)
	GetUserWithdrawals(ctx context.Context, telegramID int64) ([]*model.Withdrawal, error)
	ListPendingWithdrawals(ctx context.Context) ([]*model.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, id uuid.UUID) error
	RejectWithdrawal(ctx context.Context, id uuid.UUID) error
}

type WithdrawalRepository interface {
	CreateWithdrawal(ctx context.Context, telegramID int64, amount int, destination string) (*model.Withdrawal, error)
	GetUserWithdrawals(ctx context.Context, telegramID int64) ([]*model.Withdrawal, error)
	ListPendingWithdrawals(ctx context.Context) ([]*model.Withdrawal, error)
	ApproveWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error)
	RejectWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error)
}

// Notifier is fire-and-forget: implementations enqueue and never report
// delivery failures back to the ledger code paths calling them.
type Notifier interface {
	NotifyReferrer(referrerID int64, newUserName string)
	NotifyUser(telegramID int64, text string)
	PublishEvent(telegramID int64, eventType string, payload map[string]any)
}
