package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"marketchat/internal/config"
	"marketchat/internal/entity"
)

// Repositories holds all repository instances
type Repositories struct {
	DB    *gorm.DB
	Redis *redis.Client

	Conversation *ConversationRepo
	Message      *MessageRepo
	Archive      *ArchiveRepo
}

// NewRepositories creates repositories backed by MySQL and Redis.
func NewRepositories(cfg *config.Config) (*Repositories, error) {
	db, err := initMySQL(&cfg.MySQL, cfg.Server.Mode)
	if err != nil {
		return nil, err
	}

	rdb, err := initRedis(&cfg.Redis)
	if err != nil {
		return nil, err
	}

	return NewRepositoriesWithDB(db, rdb), nil
}

// NewRepositoriesWithDB wires repositories around existing connections.
// Tests use this with an in-memory database.
func NewRepositoriesWithDB(db *gorm.DB, rdb *redis.Client) *Repositories {
	return &Repositories{
		DB:           db,
		Redis:        rdb,
		Conversation: NewConversationRepo(db),
		Message:      NewMessageRepo(db),
		Archive:      NewArchiveRepo(db),
	}
}

func initMySQL(cfg *config.MySQLConfig, mode string) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if mode == "debug" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&entity.Conversation{},
		&entity.Message{},
		&entity.ArchivedMessage{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	log.Info("mysql connected: %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	return db, nil
}

func initRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	log.Info("redis connected: %s", cfg.Addr())
	return rdb, nil
}

// Transaction executes fn within a database transaction
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.DB.WithContext(ctx).Transaction(fn)
}

// CheckConnection verifies database and redis connectivity
func (r *Repositories) CheckConnection(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping: %w", err)
	}
	if r.Redis != nil {
		if err := r.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}
	return nil
}

// Close closes all connections
func (r *Repositories) Close() error {
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			log.Warn("close redis: %v", err)
		}
	}
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
