package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskhub_miniapp/internal/model"
	"taskhub_miniapp/internal/notifier"
	"taskhub_miniapp/internal/repository"
)

// SignupBonus is credited once to a new user who registered through a valid
// referral link.
const SignupBonus = 2

const referralCodePrefix = "ref_"

type UserService struct {
	repo     UserRepository
	notifier Notifier
}

func NewUserService(repo UserRepository, n Notifier) *UserService {
	return &UserService{
		repo:     repo,
		notifier: n,
	}
}

type AuthResult struct {
	User         *model.User
	BonusGranted bool
}

// Authenticate is the single registration path shared by the Mini-App auth
// endpoint and the bot /start handler. It upserts the profile, then runs the
// one-shot first-login bonus transition; the referrer notification goes out
// only after that transaction has committed.
func (s *UserService) Authenticate(ctx context.Context, profile *model.User, referralToken string) (*AuthResult, error) {
	if profile == nil || profile.TelegramID == 0 {
		return nil, ErrInvalidUserPayload
	}

	referrerID, err := s.resolveReferrer(ctx, profile.TelegramID, referralToken)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	profile.ReferralCode = ReferralCodeFor(profile.TelegramID)
	profile.ReferredBy = referrerID
	if profile.RegistrationDate.IsZero() {
		profile.RegistrationDate = now
	}
	if profile.AuthDate.IsZero() {
		profile.AuthDate = now
	}

	user, err := s.repo.UpsertUser(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	granted, bonusReferrerID, err := s.repo.IssueSignupBonus(ctx, profile.TelegramID, SignupBonus)
	if err != nil {
		return nil, fmt.Errorf("failed to issue signup bonus: %w", err)
	}

	if granted {
		user, err = s.repo.GetUserByTelegramID(ctx, profile.TelegramID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload user: %w", err)
		}
		s.notifier.NotifyReferrer(*bonusReferrerID, user.DisplayName())
	}

	return &AuthResult{User: user, BonusGranted: granted}, nil
}

// resolveReferrer turns an inbound referral token into a referrer id. An
// unknown code and a self-referral both resolve to no referrer, not an error.
func (s *UserService) resolveReferrer(ctx context.Context, selfID int64, token string) (*int64, error) {
	code := NormalizeReferralToken(token)
	if code == "" {
		return nil, nil
	}

	referrerID, err := s.repo.ResolveReferralCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}
	if referrerID == nil || *referrerID == selfID {
		return nil, nil
	}

	return referrerID, nil
}

// ReferralCodeFor derives the user's permanent referral code.
func ReferralCodeFor(telegramID int64) string {
	return fmt.Sprintf("%s%d", referralCodePrefix, telegramID)
}

// NormalizeReferralToken canonicalizes a deep-link start parameter or a
// client-supplied code: whitespace trimmed, marker prefix optional.
func NormalizeReferralToken(token string) string {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, referralCodePrefix)
	if token == "" {
		return ""
	}
	return referralCodePrefix + token
}

func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by telegram ID: %w", err)
	}
	return user, nil
}

func (s *UserService) GetLeaderboard(ctx context.Context) ([]*model.User, error) {
	users, err := s.repo.GetTopUsers(ctx, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	return users, nil
}

func (s *UserService) GetUserReferrals(ctx context.Context, telegramID int64) ([]*model.UserReferral, error) {
	refs, err := s.repo.GetUserReferrals(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user referrals: %w", err)
	}
	return refs, nil
}

// AdjustBalance applies an admin correction and tells the user about it.
func (s *UserService) AdjustBalance(ctx context.Context, telegramID int64, delta int) error {
	err := s.repo.AdjustBalance(ctx, telegramID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			return ErrInsufficientBalance
		}
		return fmt.Errorf("failed to adjust balance: %w", err)
	}

	s.notifier.NotifyUser(telegramID, fmt.Sprintf("Your balance was adjusted by %+d points.", delta))
	s.notifier.PublishEvent(telegramID, notifier.EventBalanceAdjusted, map[string]any{"delta": delta})

	return nil
}
