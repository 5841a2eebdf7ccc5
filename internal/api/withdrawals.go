package api

import (
	"context"
	"errors"
	"net/http"

	"taskhub_miniapp/internal/middleware"
	"taskhub_miniapp/internal/model"
	"taskhub_miniapp/internal/service"
	"taskhub_miniapp/pkg/auth"
	"taskhub_miniapp/pkg/logger"

	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type withdrawalRoutes struct {
	ws service.WithdrawalServiceI
	a  *auth.TelegramAuth
}

func NewWithdrawalRoutes(handler *gin.RouterGroup, ws service.WithdrawalServiceI, a *auth.TelegramAuth, authz *middleware.Authorization) {
	r := &withdrawalRoutes{ws: ws, a: a}
	h := handler.Group("/withdrawals")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.POST("/", r.RequestWithdrawal)
		h.GET("/", r.GetUserWithdrawals)
	}

	admin := h.Group("/")
	admin.Use(authz.AdminOnly())
	{
		admin.GET("/pending", r.ListPendingWithdrawals)
		admin.POST("/:id/approve", r.ApproveWithdrawal)
		admin.POST("/:id/reject", r.RejectWithdrawal)
	}
}

type WithdrawalRequest struct {
	Amount      int    `json:"amount"`
	Destination string `json:"destination"`
}

func (r *withdrawalRoutes) RequestWithdrawal(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := telegramUserFromContext(c)
	if !ok {
		return
	}

	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	w, err := r.ws.RequestWithdrawal(c.Request.Context(), tgUser.ID, req.Amount, req.Destination)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		case errors.Is(err, service.ErrInsufficientBalance):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient balance"})
		default:
			log.Error("failed to create withdrawal", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create withdrawal"})
		}
		return
	}

	c.JSON(http.StatusCreated, withdrawalJSON(w))
}

func (r *withdrawalRoutes) GetUserWithdrawals(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := telegramUserFromContext(c)
	if !ok {
		return
	}

	ws, err := r.ws.GetUserWithdrawals(c.Request.Context(), tgUser.ID)
	if err != nil {
		log.Error("failed to get withdrawals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get withdrawals"})
		return
	}

	c.JSON(http.StatusOK, withdrawalsJSON(ws))
}

func (r *withdrawalRoutes) ListPendingWithdrawals(c *gin.Context) {
	log := logger.Logger()

	ws, err := r.ws.ListPendingWithdrawals(c.Request.Context())
	if err != nil {
		log.Error("failed to list pending withdrawals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list withdrawals"})
		return
	}

	c.JSON(http.StatusOK, withdrawalsJSON(ws))
}

func (r *withdrawalRoutes) ApproveWithdrawal(c *gin.Context) {
	r.reviewWithdrawal(c, r.ws.ApproveWithdrawal)
}

func (r *withdrawalRoutes) RejectWithdrawal(c *gin.Context) {
	r.reviewWithdrawal(c, r.ws.RejectWithdrawal)
}

func (r *withdrawalRoutes) reviewWithdrawal(c *gin.Context, review func(ctx context.Context, id uuid.UUID) error) {
	log := logger.Logger()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid withdrawal id"})
		return
	}

	err = review(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrWithdrawalNotPending) {
			c.JSON(http.StatusConflict, gin.H{"error": "withdrawal is not pending"})
			return
		}
		log.Error("failed to review withdrawal", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to review withdrawal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func withdrawalJSON(w *model.Withdrawal) gin.H {
	return gin.H{
		"id":          w.ID,
		"amount":      w.Amount,
		"destination": w.Destination,
		"status":      w.Status,
		"created_at":  w.CreatedAt,
		"reviewed_at": w.ReviewedAt,
	}
}

func withdrawalsJSON(ws []*model.Withdrawal) []gin.H {
	out := make([]gin.H, len(ws))
	for i, w := range ws {
		out[i] = withdrawalJSON(w)
	}
	return out
}
