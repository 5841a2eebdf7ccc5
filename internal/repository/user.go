package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskhub_miniapp/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type User struct {
	TelegramID       int64     `db:"telegram_id"`
	Username         string    `db:"username"`
	FirstName        string    `db:"first_name"`
	LastName         string    `db:"last_name"`
	PhotoURL         string    `db:"photo_url"`
	Balance          int       `db:"balance"`
	ReferralCode     string    `db:"referral_code"`
	ReferredBy       *int64    `db:"referred_by"`
	ReferralCount    int       `db:"referral_count"`
	ReferralEarned   int       `db:"referral_earned"`
	IsFirstLogin     bool      `db:"is_first_login"`
	IsAdmin          bool      `db:"is_admin"`
	RegistrationDate time.Time `db:"registration_date"`
	AuthDate         time.Time `db:"last_auth_date"`
}

func (u *User) toModel() *model.User {
	return &model.User{
		TelegramID:       u.TelegramID,
		Username:         u.Username,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		PhotoURL:         u.PhotoURL,
		Balance:          u.Balance,
		ReferralCode:     u.ReferralCode,
		ReferredBy:       u.ReferredBy,
		ReferralCount:    u.ReferralCount,
		ReferralEarned:   u.ReferralEarned,
		IsFirstLogin:     u.IsFirstLogin,
		IsAdmin:          u.IsAdmin,
		RegistrationDate: u.RegistrationDate,
		AuthDate:         u.AuthDate,
	}
}

var userColumns = []string{
	"telegram_id",
	"username",
	"first_name",
	"last_name",
	"photo_url",
	"balance",
	"referral_code",
	"referred_by",
	"referral_count",
	"referral_earned",
	"is_first_login",
	"is_admin",
	"registration_date",
	"last_auth_date",
}

// UpsertUser creates the profile on first contact or refreshes the display
// fields on every later sync. referral_code and referred_by are first-write-wins:
// once set they survive any later upsert.
func (r *Repository) UpsertUser(ctx context.Context, user *model.User) (*model.User, error) {
	query, args, err := squirrel.
		Insert("users").
		Columns(
			"telegram_id",
			"username",
			"first_name",
			"last_name",
			"photo_url",
			"referral_code",
			"referred_by",
			"registration_date",
			"last_auth_date",
		).
		Values(
			user.TelegramID,
			user.Username,
			user.FirstName,
			user.LastName,
			user.PhotoURL,
			user.ReferralCode,
			user.ReferredBy,
			user.RegistrationDate,
			user.AuthDate,
		).
		Suffix(`ON CONFLICT (telegram_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			photo_url = EXCLUDED.photo_url,
			last_auth_date = EXCLUDED.last_auth_date,
			referral_code = COALESCE(users.referral_code, EXCLUDED.referral_code),
			referred_by = COALESCE(users.referred_by, EXCLUDED.referred_by)
			RETURNING ` + strings.Join(userColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user upsert query: %w", err)
	}

	var row User
	err = r.db.QueryRowxContext(ctx, query, args...).StructScan(&row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return row.toModel(), nil
}

// ResolveReferralCode maps a referral code to the owning user's telegram id.
// An unknown code resolves to nil, not an error.
func (r *Repository) ResolveReferralCode(ctx context.Context, code string) (*int64, error) {
	query, args, err := squirrel.
		Select("telegram_id").
		From("users").
		Where(squirrel.Eq{"referral_code": code}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var telegramID int64
	err = r.db.GetContext(ctx, &telegramID, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}

	return &telegramID, nil
}

// IssueSignupBonus runs the one-shot first-login transition. The flag flip,
// the bonus credit and the referrer counter increment commit as one
// transaction. The UPDATE is guarded by the old flag value, so two racing
// first contacts cannot both credit: the second one matches zero rows and
// returns granted=false.
func (r *Repository) IssueSignupBonus(ctx context.Context, telegramID int64, bonus int) (bool, *int64, error) {
	var (
		granted    bool
		referrerID *int64
	)

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("users").
			Set("is_first_login", false).
			Set("balance", squirrel.Expr("balance + CASE WHEN referred_by IS NOT NULL THEN ? ELSE 0 END", bonus)).
			Where(squirrel.Eq{"telegram_id": telegramID, "is_first_login": true}).
			Suffix("RETURNING referred_by").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build bonus update query: %w", err)
		}

		var referredBy sql.NullInt64
		err = tx.QueryRowContext(ctx, query, args...).Scan(&referredBy)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// flag already consumed, nothing to do
				return nil
			}
			return fmt.Errorf("failed to apply signup bonus: %w", err)
		}

		if !referredBy.Valid {
			return nil
		}

		updateQuery, updateArgs, err := squirrel.
			Update("users").
			Set("referral_count", squirrel.Expr("referral_count + 1")).
			Where(squirrel.Eq{"telegram_id": referredBy.Int64}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build referrer update query: %w", err)
		}

		_, err = tx.ExecContext(ctx, updateQuery, updateArgs...)
		if err != nil {
			return fmt.Errorf("failed to update referrer: %w", err)
		}

		granted = true
		referrerID = &referredBy.Int64
		return nil
	})
	if err != nil {
		return false, nil, err
	}

	return granted, referrerID, nil
}

func (r *Repository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

// AdjustBalance applies an admin balance correction. Negative deltas are
// refused when they would take the balance below zero.
func (r *Repository) AdjustBalance(ctx context.Context, telegramID int64, delta int) error {
	query, args, err := squirrel.
		Update("users").
		Set("balance", squirrel.Expr("balance + ?", delta)).
		Where(squirrel.Eq{"telegram_id": telegramID}).
		Where(squirrel.Expr("balance + ? >= 0", delta)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientBalance
	}

	return nil
}

func (r *Repository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	query, args, err := squirrel.
		Select("telegram_id", "username", "balance", "referral_count", "referral_earned").
		From("users").
		OrderBy("balance DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var users []User
	err = r.db.SelectContext(ctx, &users, query, args...)
	if err != nil {
		return nil, err
	}

	userList := make([]*model.User, len(users))
	for i := range users {
		userList[i] = users[i].toModel()
	}

	return userList, nil
}

type userReferral struct {
	TelegramID    int64  `db:"telegram_id"`
	Username      string `db:"username"`
	Balance       int    `db:"balance"`
	ReferralCount int    `db:"referral_count"`
}

func (r *Repository) GetUserReferrals(ctx context.Context, telegramID int64) ([]*model.UserReferral, error) {
	query, args, err := squirrel.
		Select("telegram_id", "username", "balance", "referral_count").
		From("users").
		Where(squirrel.Eq{"referred_by": telegramID}).
		OrderBy("registration_date DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var referrals []*userReferral
	err = r.db.SelectContext(ctx, &referrals, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get user referrals: %w", err)
	}

	refs := make([]*model.UserReferral, len(referrals))
	for i, ref := range referrals {
		refs[i] = &model.UserReferral{
			TelegramID:    ref.TelegramID,
			Username:      ref.Username,
			Balance:       ref.Balance,
			ReferralCount: ref.ReferralCount,
		}
	}

	return refs, nil
}
