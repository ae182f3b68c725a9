package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"consultbooking/internal/service"
)

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	sweeper  *service.SweeperService
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(sweeper *service.SweeperService, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("sweep_interval", s.interval),
	)

	// Запускаем задачу просрочки pending консультаций
	go s.runTimeoutSweepTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runTimeoutSweepTask периодически просрочивает зависшие pending консультации
func (s *Scheduler) runTimeoutSweepTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("Timeout sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Timeout sweep task cancelled")
			return
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	expired := s.sweeper.SweepAll(ctx)
	if expired > 0 {
		s.logger.Info("Timeout sweep completed", zap.Int64("expired", expired))
	}
}
