package core

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/coregx/sqlrow/internal/logger"
)

const healthPingTimeout = 5 * time.Second

// healthChecker pings the pool in the background so a dead server shows up
// before the next statement.
type healthChecker struct {
	db       *sql.DB
	logger   logger.Logger
	database string
	interval time.Duration

	stop     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	mu       sync.RWMutex
	lastErr  error
	lastPing time.Time
}

func newHealthChecker(db *sql.DB, log logger.Logger, database string, interval time.Duration) *healthChecker {
	return &healthChecker{
		db:       db,
		logger:   log,
		database: database,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (h *healthChecker) start() {
	h.wg.Add(1)
	go h.run()
}

func (h *healthChecker) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.ping(context.Background())
		case <-h.stop:
			return
		}
	}
}

func (h *healthChecker) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()

	err := h.db.PingContext(ctx)

	h.mu.Lock()
	h.lastErr = err
	h.lastPing = time.Now()
	h.mu.Unlock()

	if err != nil {
		h.logger.Warn("database health check failed", "database", h.database, "error", err)
	} else {
		h.logger.Debug("database health check passed", "database", h.database)
	}
	return err
}

func (h *healthChecker) shutdown() {
	h.once.Do(func() {
		close(h.stop)
		h.wg.Wait()
	})
}

func (h *healthChecker) status() (time.Time, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastPing, h.lastErr
}

// WithHealthCheck pings the database every interval until Close.
func WithHealthCheck(interval time.Duration) Option {
	return func(c *Connection) {
		c.healthInterval = interval
	}
}

// Ping checks the database now and records the result for Healthy.
func (c *Connection) Ping(ctx context.Context) error {
	if c.health != nil {
		return c.health.ping(ctx)
	}
	return c.sqlDB.PingContext(ctx)
}

// Healthy reports whether the last background ping succeeded, and when it
// ran. It is true with a zero time when health checks are off or have not
// run yet.
func (c *Connection) Healthy() (bool, time.Time) {
	if c.health == nil {
		return true, time.Time{}
	}
	at, err := c.health.status()
	return err == nil, at
}
