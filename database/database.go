// Package database 把运行结果持久化到关系型数据库。
package database

import (
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/wyfcoding/flightroute/config"
	"github.com/wyfcoding/flightroute/logging"
	"github.com/wyfcoding/flightroute/xerrors"
)

const defaultSlowThreshold = 200 * time.Millisecond

// DB 封装了 GORM 实例.
type DB struct {
	*gorm.DB
	cfg    config.DatabaseConfig
	logger *logging.Logger
}

// Dialector 根据驱动名返回对应的 GORM 方言.
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "postgres", "":
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, xerrors.Errorf(xerrors.ErrInvalidConfig, "unsupported database driver %q", cfg.Driver)
	}
}

// NewDB 打开数据库连接，注册链路追踪插件并设置连接池.
func NewDB(cfg config.DatabaseConfig, logger *logging.Logger) (*DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Default()
	}
	slow := cfg.SlowThreshold
	if slow <= 0 {
		slow = defaultSlowThreshold
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logging.NewGormLogger(logger, slow),
		PrepareStmt:    true,
		NamingStrategy: schema.NamingStrategy{},
	})
	if err != nil {
		return nil, xerrors.WrapInternal(err, "failed to open database connection")
	}

	if errTracing := gormDB.Use(tracing.NewPlugin()); errTracing != nil {
		return nil, xerrors.WrapInternal(errTracing, "failed to register gorm otel plugin")
	}

	sqlDB, errDB := gormDB.DB()
	if errDB != nil {
		return nil, xerrors.WrapInternal(errDB, "failed to get underlying sql.DB")
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.Info("database connected", "driver", cfg.Driver)
	return &DB{DB: gormDB, cfg: cfg, logger: logger}, nil
}

// Close 关闭底层连接池.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
