package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"taskhub_miniapp/internal/middleware"
	"taskhub_miniapp/internal/model"
	"taskhub_miniapp/internal/service"
	"taskhub_miniapp/pkg/auth"
	"taskhub_miniapp/pkg/logger"

	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type taskRoutes struct {
	ts service.TaskServiceI
	a  *auth.TelegramAuth
}

func NewTaskRoutes(handler *gin.RouterGroup, ts service.TaskServiceI, a *auth.TelegramAuth, authz *middleware.Authorization) {
	r := &taskRoutes{ts: ts, a: a}
	h := handler.Group("/tasks")
	h.Use(a.TelegramAuthMiddleware())
	{
		h.GET("/", r.GetUserTasks)
		h.POST("/:task_id/start", r.StartTask)
		h.POST("/:task_id/proof", r.SubmitProof)
	}

	admin := h.Group("/")
	admin.Use(authz.AdminOnly())
	{
		admin.POST("/", r.CreateTask)
		admin.GET("/submissions", r.ListPendingSubmissions)
		admin.POST("/:task_id/approve/:telegram_id", r.ApproveSubmission)
		admin.POST("/:task_id/reject/:telegram_id", r.RejectSubmission)
	}
}

func (r *taskRoutes) GetUserTasks(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := telegramUserFromContext(c)
	if !ok {
		return
	}

	tasks, userTasks, err := r.ts.GetUserTasks(c.Request.Context(), tgUser.ID)
	if err != nil {
		log.Error("failed to get tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get tasks"})
		return
	}

	response := make([]gin.H, len(tasks))
	for i, task := range tasks {
		item := gin.H{
			"task_id":     task.TaskID,
			"kind":        task.Kind,
			"title":       task.Title,
			"description": task.Description,
			"link":        task.Link,
			"reward":      task.Reward,
		}
		if userTasks[i] != nil {
			item["status"] = userTasks[i].Status
			item["started_at"] = userTasks[i].StartedAt
			item["submitted_at"] = userTasks[i].SubmittedAt
		}
		response[i] = item
	}

	c.JSON(http.StatusOK, response)
}

func (r *taskRoutes) StartTask(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := telegramUserFromContext(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("task_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task_id"})
		return
	}

	err = r.ts.StartTask(c.Request.Context(), tgUser.ID, taskID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		case errors.Is(err, service.ErrTaskAlreadyStarted):
			c.JSON(http.StatusConflict, gin.H{"error": "task already started"})
		default:
			log.Error("failed to start task", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start task"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": model.SubmissionStarted})
}

type SubmitProofRequest struct {
	FileIDs []string `json:"file_ids"`
}

func (r *taskRoutes) SubmitProof(c *gin.Context) {
	log := logger.Logger()

	tgUser, ok := telegramUserFromContext(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("task_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task_id"})
		return
	}

	var req SubmitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err = r.ts.SubmitProof(c.Request.Context(), tgUser.ID, taskID, req.FileIDs)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoProofAttached):
			c.JSON(http.StatusBadRequest, gin.H{"error": "at least one proof screenshot is required"})
		case errors.Is(err, service.ErrTaskNotStarted):
			c.JSON(http.StatusConflict, gin.H{"error": "task has not been started"})
		default:
			log.Error("failed to submit proof", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit proof"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": model.SubmissionSubmitted})
}

type CreateTaskRequest struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Reward      int    `json:"reward"`
}

func (r *taskRoutes) CreateTask(c *gin.Context) {
	log := logger.Logger()

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	taskID, err := r.ts.CreateTask(c.Request.Context(), &model.Task{
		Kind:        model.TaskKind(req.Kind),
		Title:       req.Title,
		Description: req.Description,
		Link:        req.Link,
		Reward:      req.Reward,
	})
	if err != nil {
		log.Error("failed to create task", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"task_id": taskID})
}

func (r *taskRoutes) ListPendingSubmissions(c *gin.Context) {
	log := logger.Logger()

	subs, err := r.ts.ListPendingSubmissions(c.Request.Context())
	if err != nil {
		log.Error("failed to list pending submissions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list submissions"})
		return
	}

	response := make([]gin.H, len(subs))
	for i, sub := range subs {
		response[i] = gin.H{
			"task_id":        sub.TaskID,
			"task_title":     sub.TaskTitle,
			"reward":         sub.Reward,
			"telegram_id":    sub.UserID,
			"username":       sub.Username,
			"proof_file_ids": sub.ProofFileIDs,
			"submitted_at":   sub.SubmittedAt,
		}
	}

	c.JSON(http.StatusOK, response)
}

func (r *taskRoutes) ApproveSubmission(c *gin.Context) {
	r.reviewSubmission(c, r.ts.ApproveSubmission)
}

func (r *taskRoutes) RejectSubmission(c *gin.Context) {
	r.reviewSubmission(c, r.ts.RejectSubmission)
}

func (r *taskRoutes) reviewSubmission(c *gin.Context, review func(ctx context.Context, telegramID int64, taskID uuid.UUID) error) {
	log := logger.Logger()

	taskID, err := uuid.Parse(c.Param("task_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task_id"})
		return
	}

	telegramID, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid telegram_id"})
		return
	}

	err = review(c.Request.Context(), telegramID, taskID)
	if err != nil {
		if errors.Is(err, service.ErrSubmissionNotPending) {
			c.JSON(http.StatusConflict, gin.H{"error": "submission is not awaiting review"})
			return
		}
		log.Error("failed to review submission", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to review submission"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
