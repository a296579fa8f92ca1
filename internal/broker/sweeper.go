// internal/broker/sweeper.go
package broker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SweeperConfig separates the two sweep cadences: connection staleness and
// queue expiry need not share an interval.
type SweeperConfig struct {
	ConnectionInterval time.Duration
	QueueInterval      time.Duration
	InactivityWindow   time.Duration
}

func (c SweeperConfig) withDefaults() SweeperConfig {
	if c.ConnectionInterval <= 0 {
		c.ConnectionInterval = 30 * time.Second
	}
	if c.QueueInterval <= 0 {
		c.QueueInterval = 60 * time.Second
	}
	if c.InactivityWindow <= 0 {
		c.InactivityWindow = 5 * time.Minute
	}
	return c
}

// Sweeper is the background maintenance loop: it force-closes connections
// with no activity inside the inactivity window and evicts expired queue
// entries. Both duties are best effort and independently scheduled.
type Sweeper struct {
	broker *Broker
	cfg    SweeperConfig
	logger *zap.Logger
}

func NewSweeper(b *Broker, cfg SweeperConfig, logger *zap.Logger) *Sweeper {
	return &Sweeper{broker: b, cfg: cfg.withDefaults(), logger: logger}
}

// Run blocks until ctx is cancelled, ticking both sweep duties.
func (s *Sweeper) Run(ctx context.Context) {
	connTicker := time.NewTicker(s.cfg.ConnectionInterval)
	queueTicker := time.NewTicker(s.cfg.QueueInterval)
	defer connTicker.Stop()
	defer queueTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-connTicker.C:
			s.SweepConnections(time.Now())
		case <-queueTicker.C:
			s.SweepQueue(time.Now())
		}
	}
}

// SweepConnections unregisters every connection stale at now. A failure
// closing one connection must not halt the sweep of the rest, so each
// cleanup is isolated.
func (s *Sweeper) SweepConnections(now time.Time) {
	cutoff := now.Add(-s.cfg.InactivityWindow)
	stale := s.broker.registry.StaleBefore(cutoff)

	for _, conn := range stale {
		s.closeStale(conn)
	}
	if len(stale) > 0 {
		s.logger.Info("pruned stale connections", zap.Int("count", len(stale)))
	}
}

func (s *Sweeper) closeStale(conn *Connection) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("stale connection cleanup panicked",
				zap.Any("panic", r),
				zap.String("connection_id", conn.ID),
			)
		}
	}()

	if s.broker.registry.Unregister(conn.ID) {
		s.logger.Debug("closed stale connection",
			zap.String("connection_id", conn.ID),
			zap.String("identity", conn.Identity),
			zap.Time("last_seen", conn.LastSeen()),
		)
	}
}

// SweepQueue evicts expired offline-queue entries and prunes the broker's
// acknowledgment table.
func (s *Sweeper) SweepQueue(now time.Time) {
	if removed := s.broker.queue.SweepExpired(now); removed > 0 {
		s.logger.Info("evicted expired queue entries", zap.Int("count", removed))
	}
	s.broker.pruneAcks(now)
}
