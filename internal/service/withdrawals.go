package service

import (
	"context"
	"errors"
	"fmt"

	"taskhub_miniapp/internal/model"
	"taskhub_miniapp/internal/notifier"
	"taskhub_miniapp/internal/repository"

	"github.com/google/uuid"
)

type WithdrawalService struct {
	repo     WithdrawalRepository
	notifier Notifier
}

func NewWithdrawalService(repo WithdrawalRepository, n Notifier) *WithdrawalService {
	return &WithdrawalService{
		repo:     repo,
		notifier: n,
	}
}

func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, telegramID int64, amount int, destination string) (*model.Withdrawal, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if destination == "" {
		return nil, fmt.Errorf("destination is required")
	}

	w, err := s.repo.CreateWithdrawal(ctx, telegramID, amount, destination)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	return w, nil
}

func (s *WithdrawalService) GetUserWithdrawals(ctx context.Context, telegramID int64) ([]*model.Withdrawal, error) {
	ws, err := s.repo.GetUserWithdrawals(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawals: %w", err)
	}
	return ws, nil
}

func (s *WithdrawalService) ListPendingWithdrawals(ctx context.Context) ([]*model.Withdrawal, error) {
	ws, err := s.repo.ListPendingWithdrawals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending withdrawals: %w", err)
	}
	return ws, nil
}

func (s *WithdrawalService) ApproveWithdrawal(ctx context.Context, id uuid.UUID) error {
	w, err := s.repo.ApproveWithdrawal(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrWithdrawalNotPending) {
			return ErrWithdrawalNotPending
		}
		return fmt.Errorf("failed to approve withdrawal: %w", err)
	}

	s.notifier.NotifyUser(w.UserID, fmt.Sprintf("Your withdrawal of %d points was approved.", w.Amount))
	s.notifier.PublishEvent(w.UserID, notifier.EventWithdrawalProcessed, map[string]any{
		"withdrawal_id": w.ID.String(),
		"status":        string(w.Status),
	})

	return nil
}

// RejectWithdrawal refunds the held amount; the user is told in both cases.
func (s *WithdrawalService) RejectWithdrawal(ctx context.Context, id uuid.UUID) error {
	w, err := s.repo.RejectWithdrawal(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrWithdrawalNotPending) {
			return ErrWithdrawalNotPending
		}
		return fmt.Errorf("failed to reject withdrawal: %w", err)
	}

	s.notifier.NotifyUser(w.UserID, fmt.Sprintf("Your withdrawal of %d points was rejected, the amount is back on your balance.", w.Amount))
	s.notifier.PublishEvent(w.UserID, notifier.EventWithdrawalProcessed, map[string]any{
		"withdrawal_id": w.ID.String(),
		"status":        string(w.Status),
	})

	return nil
}
