package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor periodically evicts rooms that have sat empty for longer than ttl
type Janitor struct {
	cron     *cron.Cron
	registry *RoomRegistry
	ttl      time.Duration
	logger   *zap.Logger
}

// NewJanitor schedules eviction with a cron spec such as "@every 5m"
func NewJanitor(registry *RoomRegistry, schedule string, ttl time.Duration, logger *zap.Logger) (*Janitor, error) {
	j := &Janitor{
		cron:     cron.New(),
		registry: registry,
		ttl:      ttl,
		logger:   logger,
	}

	if _, err := j.cron.AddFunc(schedule, j.Sweep); err != nil {
		return nil, err
	}

	return j, nil
}

// Start runs the schedule in the background
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule; the returned context is done once a running sweep finishes
func (j *Janitor) Stop() context.Context {
	return j.cron.Stop()
}

// Sweep evicts idle rooms once
func (j *Janitor) Sweep() {
	evicted := j.registry.EvictIdle(j.ttl)
	if len(evicted) > 0 {
		j.logger.Info("janitor sweep", zap.Int("evicted", len(evicted)), zap.Int("remaining", j.registry.GetSessionCount()))
	}
}
