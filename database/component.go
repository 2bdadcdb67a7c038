package database

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/ssehub/component"
	"github.com/kbukum/ssehub/logger"
)

// DriverFunc builds a dialector from a DSN.
type DriverFunc func(dsn string) gorm.Dialector

// Component wraps DB and implements component.Component for lifecycle management.
//
// A disabled component starts without connecting and reports StatusDisabled;
// DB then returns nil and callers skip persistence.
type Component struct {
	cfg    Config
	log    *logger.Logger
	driver DriverFunc
	models []interface{}

	mu sync.RWMutex
	db *DB
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a database component. SQLite is the default driver.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Component{
		cfg:    cfg,
		log:    log.WithComponent("database"),
		driver: sqlite.Open,
	}
}

// WithDriver overrides the dialector used on Start.
func (c *Component) WithDriver(driver DriverFunc) *Component {
	if driver != nil {
		c.driver = driver
	}
	return c
}

// WithAutoMigrate registers models for auto-migration on Start.
func (c *Component) WithAutoMigrate(models ...interface{}) *Component {
	c.models = append(c.models, models...)
	return c
}

// DB returns the underlying *DB, or nil if not started or disabled.
func (c *Component) DB() *DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// Name returns the component name.
func (c *Component) Name() string { return "database" }

// Start connects to the database and optionally runs auto-migration.
func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Info("Database disabled, skipping connection")
		return nil
	}

	db, err := NewWithContext(ctx, c.driver(c.cfg.DSN), c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}

	if c.cfg.AutoMigrate && len(c.models) > 0 {
		if err := db.AutoMigrate(c.models...); err != nil {
			_ = db.Close()
			return fmt.Errorf("database auto-migrate: %w", err)
		}
	}

	c.mu.Lock()
	c.db = db
	c.mu.Unlock()
	return nil
}

// Stop closes the database connection.
func (c *Component) Stop(_ context.Context) error {
	db := c.DB()
	if db == nil {
		return nil
	}
	return db.Close()
}

// Health returns the current health status of the database.
func (c *Component) Health(ctx context.Context) component.Health {
	if !c.cfg.Enabled {
		return component.Health{Name: c.Name(), Status: component.StatusDisabled}
	}

	db := c.DB()
	if db == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "database not initialized",
		}
	}

	h := db.CheckHealth(ctx)
	if !h.Connected {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %s", h.Error),
		}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("open=%d in_use=%d idle=%d", h.OpenConns, h.InUseConns, h.IdleConns),
	}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("pool=%d/%d", c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.AutoMigrate {
		details += " auto-migrate=on"
	}
	if !c.cfg.Enabled {
		details = "disabled"
	}
	return component.Description{
		Name:    "Database",
		Type:    "database",
		Details: details,
	}
}
