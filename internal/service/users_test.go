package service

import (
	"context"
	"testing"
	"time"

	"taskhub_miniapp/internal/model"
	"taskhub_miniapp/internal/service/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestUserService_Authenticate(t *testing.T) {
	referrerID := int64(100)

	tests := []struct {
		name          string
		profile       *model.User
		referralToken string
		mockSetup     func(repo *mocks.MockUserRepository, n *mocks.MockNotifier)
		expectedError error
		expectedBonus bool
	}{
		{
			name:          "New user with valid referrer gets the bonus once",
			profile:       &model.User{TelegramID: 200, Username: "newbie"},
			referralToken: "ref_100",
			mockSetup: func(repo *mocks.MockUserRepository, n *mocks.MockNotifier) {
				repo.On("ResolveReferralCode", mock.Anything, "ref_100").
					Return(&referrerID, nil)

				repo.On("UpsertUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.TelegramID == 200 &&
						u.ReferralCode == "ref_200" &&
						u.ReferredBy != nil && *u.ReferredBy == 100
				})).Return(&model.User{TelegramID: 200, Username: "newbie", IsFirstLogin: true}, nil)

				repo.On("IssueSignupBonus", mock.Anything, int64(200), SignupBonus).
					Return(true, &referrerID, nil)

				repo.On("GetUserByTelegramID", mock.Anything, int64(200)).
					Return(&model.User{TelegramID: 200, Username: "newbie", Balance: SignupBonus}, nil)

				n.On("NotifyReferrer", int64(100), "@newbie").Return()
			},
			expectedBonus: true,
		},
		{
			name:          "Repeat call leaves the ledger untouched",
			profile:       &model.User{TelegramID: 200, Username: "newbie"},
			referralToken: "ref_100",
			mockSetup: func(repo *mocks.MockUserRepository, n *mocks.MockNotifier) {
				repo.On("ResolveReferralCode", mock.Anything, "ref_100").
					Return(&referrerID, nil)

				repo.On("UpsertUser", mock.Anything, mock.Anything).
					Return(&model.User{TelegramID: 200, Username: "newbie", Balance: SignupBonus}, nil)

				repo.On("IssueSignupBonus", mock.Anything, int64(200), SignupBonus).
					Return(false, nil, nil)
			},
			expectedBonus: false,
		},
		{
			name:          "Self-referral is dropped",
			profile:       &model.User{TelegramID: 100, Username: "loop"},
			referralToken: "ref_100",
			mockSetup: func(repo *mocks.MockUserRepository, n *mocks.MockNotifier) {
				repo.On("ResolveReferralCode", mock.Anything, "ref_100").
					Return(&referrerID, nil)

				repo.On("UpsertUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.TelegramID == 100 && u.ReferredBy == nil
				})).Return(&model.User{TelegramID: 100, Username: "loop"}, nil)

				repo.On("IssueSignupBonus", mock.Anything, int64(100), SignupBonus).
					Return(false, nil, nil)
			},
			expectedBonus: false,
		},
		{
			name:          "Unknown referral code means no referrer",
			profile:       &model.User{TelegramID: 300, Username: "solo"},
			referralToken: "ref_999999",
			mockSetup: func(repo *mocks.MockUserRepository, n *mocks.MockNotifier) {
				repo.On("ResolveReferralCode", mock.Anything, "ref_999999").
					Return(nil, nil)

				repo.On("UpsertUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.ReferredBy == nil
				})).Return(&model.User{TelegramID: 300, Username: "solo"}, nil)

				repo.On("IssueSignupBonus", mock.Anything, int64(300), SignupBonus).
					Return(false, nil, nil)
			},
			expectedBonus: false,
		},
		{
			name:    "Empty token skips resolution entirely",
			profile: &model.User{TelegramID: 400},
			mockSetup: func(repo *mocks.MockUserRepository, n *mocks.MockNotifier) {
				repo.On("UpsertUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
					return u.ReferredBy == nil
				})).Return(&model.User{TelegramID: 400}, nil)

				repo.On("IssueSignupBonus", mock.Anything, int64(400), SignupBonus).
					Return(false, nil, nil)
			},
			expectedBonus: false,
		},
		{
			name:          "Storage failure during the bonus transition surfaces",
			profile:       &model.User{TelegramID: 500},
			referralToken: "ref_100",
			mockSetup: func(repo *mocks.MockUserRepository, n *mocks.MockNotifier) {
				repo.On("ResolveReferralCode", mock.Anything, "ref_100").
					Return(&referrerID, nil)

				repo.On("UpsertUser", mock.Anything, mock.Anything).
					Return(&model.User{TelegramID: 500, IsFirstLogin: true}, nil)

				repo.On("IssueSignupBonus", mock.Anything, int64(500), SignupBonus).
					Return(false, nil, assert.AnError)
			},
			expectedError: assert.AnError,
		},
		{
			name:          "Missing payload is rejected before any storage call",
			profile:       nil,
			mockSetup:     func(repo *mocks.MockUserRepository, n *mocks.MockNotifier) {},
			expectedError: ErrInvalidUserPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &mocks.MockUserRepository{}
			mockNotifier := &mocks.MockNotifier{}
			tt.mockSetup(mockRepo, mockNotifier)

			svc := NewUserService(mockRepo, mockNotifier)
			result, err := svc.Authenticate(context.Background(), tt.profile, tt.referralToken)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, result)
				assert.Equal(t, tt.expectedBonus, result.BonusGranted)
			}

			mockRepo.AssertExpectations(t)
			mockNotifier.AssertExpectations(t)
		})
	}
}

func TestUserService_Authenticate_SetsRegistrationDate(t *testing.T) {
	mockRepo := &mocks.MockUserRepository{}
	mockNotifier := &mocks.MockNotifier{}

	mockRepo.On("UpsertUser", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return !u.RegistrationDate.IsZero() &&
			time.Since(u.RegistrationDate) < 2*time.Second
	})).Return(&model.User{TelegramID: 1}, nil)

	mockRepo.On("IssueSignupBonus", mock.Anything, int64(1), SignupBonus).
		Return(false, nil, nil)

	svc := NewUserService(mockRepo, mockNotifier)
	_, err := svc.Authenticate(context.Background(), &model.User{TelegramID: 1}, "")

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestNormalizeReferralToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"bare prefix", "ref_", ""},
		{"full code", "ref_100", "ref_100"},
		{"prefixless code", "100", "ref_100"},
		{"padded code", "  ref_100  ", "ref_100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeReferralToken(tt.token))
		})
	}
}

func TestReferralCodeFor(t *testing.T) {
	assert.Equal(t, "ref_100", ReferralCodeFor(100))
}

func TestUserService_AdjustBalance(t *testing.T) {
	mockRepo := &mocks.MockUserRepository{}
	mockNotifier := &mocks.MockNotifier{}

	mockRepo.On("AdjustBalance", mock.Anything, int64(42), -5).Return(nil)
	mockNotifier.On("NotifyUser", int64(42), mock.Anything).Return()
	mockNotifier.On("PublishEvent", int64(42), "balance_adjusted", mock.Anything).Return()

	svc := NewUserService(mockRepo, mockNotifier)
	err := svc.AdjustBalance(context.Background(), 42, -5)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockNotifier.AssertExpectations(t)
}
