package scheduler

import (
	"context"
	"time"

	"taskhub_miniapp/internal/service"
	"taskhub_miniapp/pkg/logger"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// DefaultAbandonAfter is how long a started task may sit without a proof
// submission before the slot is released again.
const DefaultAbandonAfter = 48 * time.Hour

type Scheduler struct {
	scheduler    *gocron.Scheduler
	tasks        service.TaskServiceI
	abandonAfter time.Duration
}

func New(tasks service.TaskServiceI, abandonAfter time.Duration) *Scheduler {
	if abandonAfter <= 0 {
		abandonAfter = DefaultAbandonAfter
	}
	return &Scheduler{
		scheduler:    gocron.NewScheduler(time.UTC),
		tasks:        tasks,
		abandonAfter: abandonAfter,
	}
}

// Start runs the maintenance jobs in the background.
func (s *Scheduler) Start() {
	s.scheduler.Every(1).Hour().Do(s.expireAbandonedTasks)
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) expireAbandonedTasks() {
	log := logger.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	expired, err := s.tasks.ExpireAbandonedTasks(ctx, s.abandonAfter)
	if err != nil {
		log.Error("failed to expire abandoned tasks", zap.Error(err))
		return
	}

	if expired > 0 {
		log.Info("expired abandoned tasks", zap.Int64("count", expired))
	}
}
