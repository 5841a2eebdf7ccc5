package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskhub_miniapp/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type withdrawal struct {
	ID          uuid.UUID  `db:"id"`
	UserID      int64      `db:"user_telegram_id"`
	Amount      int        `db:"amount"`
	Destination string     `db:"destination"`
	Status      string     `db:"status"`
	CreatedAt   time.Time  `db:"created_at"`
	ReviewedAt  *time.Time `db:"reviewed_at"`
}

func (w *withdrawal) toModel() *model.Withdrawal {
	return &model.Withdrawal{
		ID:          w.ID,
		UserID:      w.UserID,
		Amount:      w.Amount,
		Destination: w.Destination,
		Status:      model.WithdrawalStatus(w.Status),
		CreatedAt:   w.CreatedAt,
		ReviewedAt:  w.ReviewedAt,
	}
}

// CreateWithdrawal debits the balance and records the pending request in one
// transaction. The debit is conditional on the balance covering the amount,
// which keeps the balance non-negative under concurrent requests.
func (r *Repository) CreateWithdrawal(ctx context.Context, telegramID int64, amount int, destination string) (*model.Withdrawal, error) {
	w := &model.Withdrawal{
		ID:          uuid.New(),
		UserID:      telegramID,
		Amount:      amount,
		Destination: destination,
		Status:      model.WithdrawalPending,
		CreatedAt:   time.Now().UTC(),
	}

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		debitQuery, debitArgs, err := squirrel.
			Update("users").
			Set("balance", squirrel.Expr("balance - ?", amount)).
			Where(squirrel.Eq{"telegram_id": telegramID}).
			Where(squirrel.GtOrEq{"balance": amount}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build debit query: %w", err)
		}

		res, err := tx.ExecContext(ctx, debitQuery, debitArgs...)
		if err != nil {
			return fmt.Errorf("failed to debit balance: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrInsufficientBalance
		}

		insertQuery, insertArgs, err := squirrel.
			Insert("withdrawals").
			SetMap(map[string]interface{}{
				"id":               w.ID,
				"user_telegram_id": w.UserID,
				"amount":           w.Amount,
				"destination":      w.Destination,
				"status":           string(w.Status),
				"created_at":       w.CreatedAt,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build withdrawal insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, insertQuery, insertArgs...)
		if err != nil {
			return fmt.Errorf("failed to insert withdrawal: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return w, nil
}

// ApproveWithdrawal is terminal: the balance was already debited at request
// time, so only the status moves.
func (r *Repository) ApproveWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	return r.reviewWithdrawal(ctx, id, model.WithdrawalApproved, false)
}

// RejectWithdrawal refunds the debited amount back to the user in the same
// transaction that flips the status.
func (r *Repository) RejectWithdrawal(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	return r.reviewWithdrawal(ctx, id, model.WithdrawalRejected, true)
}

func (r *Repository) reviewWithdrawal(ctx context.Context, id uuid.UUID, status model.WithdrawalStatus, refund bool) (*model.Withdrawal, error) {
	var out *model.Withdrawal

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("withdrawals").
			Set("status", string(status)).
			Set("reviewed_at", time.Now().UTC()).
			Where(squirrel.Eq{
				"id":     id,
				"status": string(model.WithdrawalPending),
			}).
			Suffix("RETURNING id, user_telegram_id, amount, destination, status, created_at, reviewed_at").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build withdrawal review query: %w", err)
		}

		var row withdrawal
		err = tx.QueryRowxContext(ctx, query, args...).StructScan(&row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrWithdrawalNotPending
			}
			return fmt.Errorf("failed to review withdrawal: %w", err)
		}

		if refund {
			refundQuery, refundArgs, err := squirrel.
				Update("users").
				Set("balance", squirrel.Expr("balance + ?", row.Amount)).
				Where(squirrel.Eq{"telegram_id": row.UserID}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, refundQuery, refundArgs...)
			if err != nil {
				return fmt.Errorf("failed to refund withdrawal: %w", err)
			}
		}

		out = row.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *Repository) GetUserWithdrawals(ctx context.Context, telegramID int64) ([]*model.Withdrawal, error) {
	return r.selectWithdrawals(ctx, squirrel.Eq{"user_telegram_id": telegramID})
}

func (r *Repository) ListPendingWithdrawals(ctx context.Context) ([]*model.Withdrawal, error) {
	return r.selectWithdrawals(ctx, squirrel.Eq{"status": string(model.WithdrawalPending)})
}

func (r *Repository) selectWithdrawals(ctx context.Context, where squirrel.Eq) ([]*model.Withdrawal, error) {
	query, args, err := squirrel.
		Select("id", "user_telegram_id", "amount", "destination", "status", "created_at", "reviewed_at").
		From("withdrawals").
		Where(where).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*withdrawal
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select withdrawals: %w", err)
	}

	out := make([]*model.Withdrawal, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}

	return out, nil
}
