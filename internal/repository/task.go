package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"taskhub_miniapp/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// referralSharePct is the cut of every approved task reward that goes to the
// worker's referrer, rounded up.
const referralSharePct = 0.1

type taskWithProgress struct {
	TaskID       uuid.UUID      `db:"task_id"`
	Kind         string         `db:"kind"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	Link         string         `db:"link"`
	Reward       int            `db:"reward"`
	Active       bool           `db:"active"`
	CreatedAt    time.Time      `db:"created_at"`
	Status       *string        `db:"status"`
	ProofFileIDs pq.StringArray `db:"proof_file_ids"`
	StartedAt    *time.Time     `db:"started_at"`
	SubmittedAt  *time.Time     `db:"submitted_at"`
	ReviewedAt   *time.Time     `db:"reviewed_at"`
}

func (r *Repository) CreateTask(ctx context.Context, task *model.Task) error {
	query, args, err := squirrel.
		Insert("tasks").
		SetMap(map[string]interface{}{
			"task_id":     task.TaskID,
			"kind":        string(task.Kind),
			"title":       task.Title,
			"description": task.Description,
			"link":        task.Link,
			"reward":      task.Reward,
			"active":      task.Active,
			"created_at":  task.CreatedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build task insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// GetTasksData returns all active tasks together with the given user's
// progress on each, proof screenshots aggregated per task.
func (r *Repository) GetTasksData(ctx context.Context, telegramID int64) ([]*model.Task, []*model.UserTask, error) {
	query := squirrel.Select(
		"t.task_id",
		"t.kind",
		"t.title",
		"t.description",
		"t.link",
		"t.reward",
		"t.active",
		"t.created_at",
		"ut.status",
		"array_agg(tp.file_id) FILTER (WHERE tp.file_id IS NOT NULL) as proof_file_ids",
		"ut.started_at",
		"ut.submitted_at",
		"ut.reviewed_at",
	).
		From("tasks t").
		LeftJoin("users_tasks ut ON ut.task_id = t.task_id AND ut.user_telegram_id = ?", telegramID).
		LeftJoin("task_proofs tp ON tp.task_id = t.task_id AND tp.user_telegram_id = ?", telegramID).
		Where(squirrel.Eq{"t.active": true}).
		GroupBy("t.task_id", "ut.status", "ut.started_at", "ut.submitted_at", "ut.reviewed_at").
		OrderBy("t.created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, nil, err
	}

	var rows []*taskWithProgress
	err = r.db.SelectContext(ctx, &rows, sqlQuery, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*model.Task{}, []*model.UserTask{}, nil
		}
		return nil, nil, err
	}

	tasks := make([]*model.Task, len(rows))
	userTasks := make([]*model.UserTask, len(rows))
	for i, row := range rows {
		tasks[i] = &model.Task{
			TaskID:      row.TaskID,
			Kind:        model.TaskKind(row.Kind),
			Title:       row.Title,
			Description: row.Description,
			Link:        row.Link,
			Reward:      row.Reward,
			Active:      row.Active,
			CreatedAt:   row.CreatedAt,
		}
		if row.Status != nil {
			userTasks[i] = &model.UserTask{
				TaskID:       row.TaskID,
				UserID:       telegramID,
				Status:       model.SubmissionStatus(*row.Status),
				ProofFileIDs: row.ProofFileIDs,
				StartedAt:    derefTime(row.StartedAt),
				SubmittedAt:  row.SubmittedAt,
				ReviewedAt:   row.ReviewedAt,
			}
		}
	}

	return tasks, userTasks, nil
}

func (r *Repository) StartTask(ctx context.Context, telegramID int64, taskID uuid.UUID) error {
	query, args, err := squirrel.
		Insert("users_tasks").
		SetMap(map[string]interface{}{
			"task_id":          taskID,
			"user_telegram_id": telegramID,
			"status":           string(model.SubmissionStarted),
			"started_at":       time.Now().UTC(),
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build task start query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // duplicate users_tasks row
				return ErrTaskAlreadyStarted
			case "23503": // no such task
				return ErrTaskNotFound
			}
		}
		return fmt.Errorf("failed to start task: %w", err)
	}

	return nil
}

// SubmitProof moves a started task to the review queue and records the proof
// screenshots, replacing any proofs left from an earlier rejected attempt.
func (r *Repository) SubmitProof(ctx context.Context, telegramID int64, taskID uuid.UUID, fileIDs []string) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("users_tasks").
			Set("status", string(model.SubmissionSubmitted)).
			Set("submitted_at", time.Now().UTC()).
			Where(squirrel.Eq{
				"task_id":          taskID,
				"user_telegram_id": telegramID,
				"status": []string{
					string(model.SubmissionStarted),
					string(model.SubmissionRejected),
				},
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build proof update query: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to submit proof: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrTaskNotStarted
		}

		deleteQuery, deleteArgs, err := squirrel.
			Delete("task_proofs").
			Where(squirrel.Eq{"task_id": taskID, "user_telegram_id": telegramID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, deleteQuery, deleteArgs...)
		if err != nil {
			return fmt.Errorf("failed to clear old proofs: %w", err)
		}

		builder := squirrel.
			Insert("task_proofs").
			Columns("task_id", "user_telegram_id", "file_id")
		for _, fileID := range fileIDs {
			builder = builder.Values(taskID, telegramID, fileID)
		}

		insertQuery, insertArgs, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, insertQuery, insertArgs...)
		if err != nil {
			return fmt.Errorf("failed to insert proofs: %w", err)
		}

		return nil
	})
}

// ApproveSubmission pays out a reviewed task in one transaction: the worker's
// balance credit and, when the worker was referred, the referrer's revenue
// share into balance and referral_earned.
func (r *Repository) ApproveSubmission(ctx context.Context, telegramID int64, taskID uuid.UUID) (int, error) {
	var reward int

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("users_tasks").
			Set("status", string(model.SubmissionApproved)).
			Set("reviewed_at", time.Now().UTC()).
			Where(squirrel.Eq{
				"task_id":          taskID,
				"user_telegram_id": telegramID,
				"status":           string(model.SubmissionSubmitted),
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build approval query: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to approve submission: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrSubmissionNotPending
		}

		rewardQuery, rewardArgs, err := squirrel.
			Select("reward").
			From("tasks").
			Where(squirrel.Eq{"task_id": taskID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		err = tx.GetContext(ctx, &reward, rewardQuery, rewardArgs...)
		if err != nil {
			return fmt.Errorf("failed to get task reward: %w", err)
		}

		creditQuery, creditArgs, err := squirrel.
			Update("users").
			Set("balance", squirrel.Expr("balance + ?", reward)).
			Where(squirrel.Eq{"telegram_id": telegramID}).
			Suffix("RETURNING referred_by").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		var referredBy sql.NullInt64
		err = tx.QueryRowContext(ctx, creditQuery, creditArgs...).Scan(&referredBy)
		if err != nil {
			return fmt.Errorf("failed to credit worker: %w", err)
		}

		if referredBy.Valid {
			share := int(math.Ceil(float64(reward) * referralSharePct))

			shareQuery, shareArgs, err := squirrel.
				Update("users").
				Set("balance", squirrel.Expr("balance + ?", share)).
				Set("referral_earned", squirrel.Expr("referral_earned + ?", share)).
				Where(squirrel.Eq{"telegram_id": referredBy.Int64}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, shareQuery, shareArgs...)
			if err != nil {
				return fmt.Errorf("failed to credit referrer share: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return reward, nil
}

func (r *Repository) RejectSubmission(ctx context.Context, telegramID int64, taskID uuid.UUID) error {
	query, args, err := squirrel.
		Update("users_tasks").
		Set("status", string(model.SubmissionRejected)).
		Set("reviewed_at", time.Now().UTC()).
		Where(squirrel.Eq{
			"task_id":          taskID,
			"user_telegram_id": telegramID,
			"status":           string(model.SubmissionSubmitted),
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build rejection query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to reject submission: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSubmissionNotPending
	}

	return nil
}

type pendingSubmission struct {
	TaskID       uuid.UUID      `db:"task_id"`
	TaskTitle    string         `db:"title"`
	Reward       int            `db:"reward"`
	UserID       int64          `db:"user_telegram_id"`
	Username     string         `db:"username"`
	ProofFileIDs pq.StringArray `db:"proof_file_ids"`
	SubmittedAt  time.Time      `db:"submitted_at"`
}

func (r *Repository) ListPendingSubmissions(ctx context.Context) ([]*model.PendingSubmission, error) {
	query := squirrel.Select(
		"ut.task_id",
		"t.title",
		"t.reward",
		"ut.user_telegram_id",
		"u.username",
		"array_agg(tp.file_id) FILTER (WHERE tp.file_id IS NOT NULL) as proof_file_ids",
		"ut.submitted_at",
	).
		From("users_tasks ut").
		Join("tasks t ON t.task_id = ut.task_id").
		Join("users u ON u.telegram_id = ut.user_telegram_id").
		LeftJoin("task_proofs tp ON tp.task_id = ut.task_id AND tp.user_telegram_id = ut.user_telegram_id").
		Where(squirrel.Eq{"ut.status": string(model.SubmissionSubmitted)}).
		GroupBy("ut.task_id", "t.title", "t.reward", "ut.user_telegram_id", "u.username", "ut.submitted_at").
		OrderBy("ut.submitted_at ASC").
		PlaceholderFormat(squirrel.Dollar)

	sqlQuery, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []*pendingSubmission
	err = r.db.SelectContext(ctx, &rows, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending submissions: %w", err)
	}

	out := make([]*model.PendingSubmission, len(rows))
	for i, row := range rows {
		out[i] = &model.PendingSubmission{
			TaskID:       row.TaskID,
			TaskTitle:    row.TaskTitle,
			Reward:       row.Reward,
			UserID:       row.UserID,
			Username:     row.Username,
			ProofFileIDs: row.ProofFileIDs,
			SubmittedAt:  row.SubmittedAt,
		}
	}

	return out, nil
}

// ExpireAbandonedTasks drops started-but-never-submitted rows older than the
// cutoff so the task shows as fresh again for the user.
func (r *Repository) ExpireAbandonedTasks(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	query, args, err := squirrel.
		Delete("users_tasks").
		Where(squirrel.Eq{"status": string(model.SubmissionStarted)}).
		Where(squirrel.Lt{"started_at": cutoff}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to expire abandoned tasks: %w", err)
	}

	return res.RowsAffected()
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
