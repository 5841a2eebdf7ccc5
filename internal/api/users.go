package api

import (
	"errors"
	"net/http"
	"strconv"

	"taskhub_miniapp/internal/model"
	"taskhub_miniapp/internal/service"
	"taskhub_miniapp/pkg/auth"
	"taskhub_miniapp/pkg/logger"

	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type userRoutes struct {
	us service.UserServiceI
	a  *auth.TelegramAuth
}

func NewUserRoutes(handler *gin.RouterGroup, us service.UserServiceI, a *auth.TelegramAuth) {
	r := &userRoutes{us: us, a: a}
	h := handler.Group("/users")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("/auth", r.Authenticate)
		h.GET("/leaderboard", r.GetLeaderboard)
		h.GET("/:telegram_id", r.GetUserByTelegramID)
		h.GET("/:telegram_id/referrals", r.GetUserReferrals)
	}
}

type AuthRequest struct {
	ReferralCode string `json:"referral_code"`
}

func (r *userRoutes) Authenticate(c *gin.Context) {
	log := logger.Logger()

	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	tgUser, ok := telegramUserFromContext(c)
	if !ok {
		return
	}

	profile := &model.User{
		TelegramID: tgUser.ID,
		Username:   tgUser.Username,
		FirstName:  tgUser.FirstName,
		LastName:   tgUser.LastName,
		PhotoURL:   tgUser.PhotoURL,
		AuthDate:   tgUser.AuthDate,
	}

	result, err := r.us.Authenticate(c.Request.Context(), profile, req.ReferralCode)
	if err != nil {
		if errors.Is(err, service.ErrInvalidUserPayload) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user payload"})
			return
		}
		log.Error("failed to authenticate user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to authenticate user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":              true,
		"user":                 userJSON(result.User),
		"referral_bonus_given": result.BonusGranted,
	})
}

func (r *userRoutes) GetUserByTelegramID(c *gin.Context) {
	log := logger.Logger()

	id, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		log.Error("failed to parse telegram_id", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return
	}

	user, err := r.us.GetUserByTelegramID(c.Request.Context(), id)
	if err != nil {
		log.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "no user associated with the provided telegram_id"})
		return
	}

	c.JSON(http.StatusOK, userJSON(user))
}

func (r *userRoutes) GetLeaderboard(c *gin.Context) {
	log := logger.Logger()

	users, err := r.us.GetLeaderboard(c.Request.Context())
	if err != nil {
		log.Error("failed to get leaderboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	response := make([]gin.H, len(users))
	for i, user := range users {
		response[i] = gin.H{
			"username":  user.Username,
			"balance":   user.Balance,
			"referrals": user.ReferralCount,
			"level":     model.LevelForEarned(user.Balance + user.ReferralEarned).Number,
		}
	}

	c.JSON(http.StatusOK, response)
}

type userReferral struct {
	TelegramUsername string `json:"telegram_username"`
	Balance          int    `json:"balance"`
	ReferralCount    int    `json:"referral_count"`
}

func (r *userRoutes) GetUserReferrals(c *gin.Context) {
	log := logger.Logger()

	id, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		log.Error("failed to parse telegram_id", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return
	}

	referrals, err := r.us.GetUserReferrals(c.Request.Context(), id)
	if err != nil {
		log.Error("failed to get user referrals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user referrals"})
		return
	}

	out := make([]userReferral, len(referrals))
	for i, ref := range referrals {
		out[i] = userReferral{
			TelegramUsername: ref.Username,
			Balance:          ref.Balance,
			ReferralCount:    ref.ReferralCount,
		}
	}

	c.JSON(http.StatusOK, out)
}

func userJSON(user *model.User) gin.H {
	level := model.LevelForEarned(user.Balance + user.ReferralEarned)

	return gin.H{
		"telegram_id":       user.TelegramID,
		"username":          user.Username,
		"first_name":        user.FirstName,
		"last_name":         user.LastName,
		"photo_url":         user.PhotoURL,
		"balance":           user.Balance,
		"referral_code":     user.ReferralCode,
		"referred_by":       user.ReferredBy,
		"referral_count":    user.ReferralCount,
		"referral_earned":   user.ReferralEarned,
		"level":             level.Number,
		"level_progress":    level.ProgressPct,
		"registration_date": user.RegistrationDate,
		"auth_date":         user.AuthDate,
	}
}

func telegramUserFromContext(c *gin.Context) (*auth.TelegramUserData, bool) {
	log := logger.Logger()

	userData, exists := c.Get("telegram_user")
	if !exists {
		log.Error("telegram user data not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, false
	}

	user, ok := userData.(*auth.TelegramUserData)
	if !ok {
		log.Error("invalid type assertion for telegram user data")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, false
	}

	return user, true
}
