package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskhub_miniapp/internal/model"
	"taskhub_miniapp/internal/notifier"
	"taskhub_miniapp/internal/repository"

	"github.com/google/uuid"
)

type TaskService struct {
	repo     TaskRepository
	notifier Notifier
}

func NewTaskService(repo TaskRepository, n Notifier) *TaskService {
	return &TaskService{
		repo:     repo,
		notifier: n,
	}
}

func (s *TaskService) CreateTask(ctx context.Context, task *model.Task) (uuid.UUID, error) {
	if !task.Kind.Valid() {
		return uuid.Nil, fmt.Errorf("unknown task kind %q", task.Kind)
	}
	if task.Title == "" {
		return uuid.Nil, fmt.Errorf("task title is required")
	}
	if task.Reward <= 0 {
		return uuid.Nil, ErrInvalidAmount
	}

	if task.TaskID == uuid.Nil {
		task.TaskID = uuid.New()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	task.Active = true

	if err := s.repo.CreateTask(ctx, task); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task.TaskID, nil
}

func (s *TaskService) GetUserTasks(ctx context.Context, telegramID int64) ([]*model.Task, []*model.UserTask, error) {
	tasks, userTasks, err := s.repo.GetTasksData(ctx, telegramID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get tasks data: %w", err)
	}
	return tasks, userTasks, nil
}

func (s *TaskService) StartTask(ctx context.Context, telegramID int64, taskID uuid.UUID) error {
	err := s.repo.StartTask(ctx, telegramID, taskID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTaskAlreadyStarted):
			return ErrTaskAlreadyStarted
		case errors.Is(err, repository.ErrTaskNotFound):
			return ErrTaskNotFound
		default:
			return fmt.Errorf("failed to start task: %w", err)
		}
	}
	return nil
}

func (s *TaskService) SubmitProof(ctx context.Context, telegramID int64, taskID uuid.UUID, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return ErrNoProofAttached
	}

	err := s.repo.SubmitProof(ctx, telegramID, taskID, fileIDs)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotStarted) {
			return ErrTaskNotStarted
		}
		return fmt.Errorf("failed to submit proof: %w", err)
	}

	return nil
}

// ApproveSubmission pays out the task and notifies the worker after the
// payout transaction has committed.
func (s *TaskService) ApproveSubmission(ctx context.Context, telegramID int64, taskID uuid.UUID) error {
	reward, err := s.repo.ApproveSubmission(ctx, telegramID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrSubmissionNotPending) {
			return ErrSubmissionNotPending
		}
		return fmt.Errorf("failed to approve submission: %w", err)
	}

	s.notifier.NotifyUser(telegramID, fmt.Sprintf("Your task was approved, %d points credited.", reward))
	s.notifier.PublishEvent(telegramID, notifier.EventTaskApproved, map[string]any{
		"task_id": taskID.String(),
		"reward":  reward,
	})

	return nil
}

func (s *TaskService) RejectSubmission(ctx context.Context, telegramID int64, taskID uuid.UUID) error {
	err := s.repo.RejectSubmission(ctx, telegramID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrSubmissionNotPending) {
			return ErrSubmissionNotPending
		}
		return fmt.Errorf("failed to reject submission: %w", err)
	}

	s.notifier.NotifyUser(telegramID, "Your task submission was rejected. Check the proof and try again.")
	s.notifier.PublishEvent(telegramID, notifier.EventTaskRejected, map[string]any{
		"task_id": taskID.String(),
	})

	return nil
}

func (s *TaskService) ListPendingSubmissions(ctx context.Context) ([]*model.PendingSubmission, error) {
	subs, err := s.repo.ListPendingSubmissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending submissions: %w", err)
	}
	return subs, nil
}

func (s *TaskService) ExpireAbandonedTasks(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.repo.ExpireAbandonedTasks(ctx, olderThan)
}
