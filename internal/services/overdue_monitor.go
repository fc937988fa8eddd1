package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/propcare/backend/internal/database"
)

const overdueLeaseKey = "monitor:overdue"

// OverdueMonitor periodically promotes past-due tickets to overdue. A
// short Redis lease keeps concurrent instances from running the same
// pass at once; the promotion itself is idempotent either way.
type OverdueMonitor struct {
	tickets  TicketService
	cache    *database.CacheStore
	logger   *zap.Logger
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewOverdueMonitor(tickets TicketService, cache *database.CacheStore, logger *zap.Logger, interval time.Duration) *OverdueMonitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &OverdueMonitor{
		tickets:  tickets,
		cache:    cache,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the background loop. Call Stop to shut it down.
func (m *OverdueMonitor) Start() {
	m.logger.Info("starting overdue monitor", zap.Duration("interval", m.interval))
	go m.run()
}

func (m *OverdueMonitor) Stop() {
	close(m.stop)
	<-m.done
	m.logger.Info("overdue monitor stopped")
}

func (m *OverdueMonitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// One pass at startup so a long interval doesn't delay the first
	// promotion.
	m.runPass()

	for {
		select {
		case <-ticker.C:
			m.runPass()
		case <-m.stop:
			return
		}
	}
}

func (m *OverdueMonitor) runPass() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if m.cache != nil {
		acquired, err := m.cache.AcquireLease(ctx, overdueLeaseKey, m.interval)
		if err != nil {
			m.logger.Warn("overdue lease check failed, running anyway", zap.Error(err))
		} else if !acquired {
			return
		}
	}

	if _, err := m.tickets.PromoteOverdue(ctx); err != nil {
		m.logger.Error("overdue promotion pass failed", zap.Error(err))
	}
}
