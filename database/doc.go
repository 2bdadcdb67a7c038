// Package database provides a GORM-based database component with connection
// pooling, retrying connects, health checks, transactions and auto-migration.
//
// SQLite is the default driver; any GORM dialector can be supplied:
//
//	comp := database.NewComponent(cfg, log).
//	    WithDriver(postgres.Open).
//	    WithAutoMigrate(&model.ConnectionLog{})
//
// Driver errors are translated to AppErrors with FromDatabase.
package database
