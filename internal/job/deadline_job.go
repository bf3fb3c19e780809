package job

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"taskflow/internal/domain"
	"taskflow/internal/metrics"
	"taskflow/internal/repository"
	"taskflow/internal/service"
)

// DeadlineJob scans for tasks due within the configured window and notifies
// each task's creator at most once per task. The store-level unique index on
// (user_id, task_id) for deadline notifications makes repeated scans safe.
type DeadlineJob struct {
	taskRepo            repository.TaskRepository
	notificationService service.NotificationService
	window              time.Duration
	metrics             *metrics.Metrics
	logger              *zap.Logger

	running atomic.Bool
}

// NewDeadlineJob creates a new DeadlineJob
func NewDeadlineJob(
	taskRepo repository.TaskRepository,
	notificationService service.NotificationService,
	window time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) *DeadlineJob {
	return &DeadlineJob{
		taskRepo:            taskRepo,
		notificationService: notificationService,
		window:              window,
		metrics:             m,
		logger:              logger,
	}
}

// Run executes one scan tick. Overlapping ticks are skipped rather than
// queued; a failure on one task never stops the rest of the scan.
func (j *DeadlineJob) Run() {
	if !j.running.CompareAndSwap(false, true) {
		j.metrics.IncrementDeadlineScanSkipped()
		j.logger.Warn("Deadline scan still running, skipping tick")
		return
	}
	defer j.running.Store(false)

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := time.Now().UTC()
	tasks, err := j.taskRepo.FindDueBetween(ctx, now, now.Add(j.window))
	if err != nil {
		j.logger.Error("Deadline scan failed to load due tasks", zap.Error(err))
		return
	}

	notified := 0
	for _, task := range tasks {
		if err := j.notifyTask(ctx, task); err != nil {
			j.logger.Error("Failed to notify about due task",
				zap.String("taskId", task.ID.String()),
				zap.Error(err))
			continue
		}
		notified++
	}

	j.metrics.RecordDeadlineScan(time.Since(start))
	j.logger.Info("Deadline scan finished",
		zap.Int("due_tasks", len(tasks)),
		zap.Int("processed", notified),
		zap.Duration("took", time.Since(start)))
}

func (j *DeadlineJob) notifyTask(ctx context.Context, task *domain.Task) error {
	notification := &domain.Notification{
		UserID:  task.CreatorID,
		Type:    domain.NotificationTaskDeadline,
		BoardID: task.BoardID,
		TaskID:  &task.ID,
		Message: fmt.Sprintf("Task %q is due soon", task.Title),
	}
	_, err := j.notificationService.CreateAndPush(ctx, notification)
	return err
}
