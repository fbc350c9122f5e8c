package database

import (
	"context"
	"fmt"
	"time"

	"github.com/agora-social/agora/backend/internal/config"
	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/agora-social/agora/backend/internal/models"
	"github.com/agora-social/agora/backend/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize opens the configured database and stores it in DB.
func Initialize(cfg *config.Config) error {
	logLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Info
	}

	db, err := Open(cfg.Database.Driver, cfg.Database.DSN, logLevel)
	if err != nil {
		return err
	}

	if cfg.Tracing.Enabled {
		if err := db.Use(telemetry.GORMTracingPlugin()); err != nil {
			return fmt.Errorf("failed to register tracing plugin: %w", err)
		}
	}

	DB = db
	logger.Log.Info("✅ Database connected successfully", zap.String("driver", cfg.Database.Driver))
	return nil
}

// Open creates a gorm connection for driver ("postgres" or "sqlite").
// TranslateError is on so unique violations surface as gorm.ErrDuplicatedKey.
func Open(driver, dsn string, logLevel gormlogger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if driver == "sqlite" {
		// SQLite serialises writers; a single connection turns lock
		// contention into queueing instead of SQLITE_BUSY errors.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

// OpenMemory opens a private, migrated in-memory SQLite database for tests.
func OpenMemory() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:agora-%s?mode=memory&cache=shared&_foreign_keys=1", uuid.New().String())
	db, err := Open("sqlite", dsn, gormlogger.Silent)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs auto-migration for all models
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Post{},
		&models.PostLike{},
		&models.Comment{},
		&models.Chat{},
		&models.Message{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Log.Info("✅ Database migrations completed")
	return nil
}

// createIndexes adds indexes gorm tags cannot express
func createIndexes(db *gorm.DB) error {
	stmts := []string{
		// Case-insensitive username lookups (login, prefix search)
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",
		"CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))",

		// Feed and profile queries
		"CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts (user_id, created_at DESC)",

		// Follower / following lists, newest first
		"CREATE INDEX IF NOT EXISTS idx_follows_following_created ON follows (following_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_follows_follower_created ON follows (follower_id, created_at DESC)",

		// Liked-by list
		"CREATE INDEX IF NOT EXISTS idx_post_likes_post_created ON post_likes (post_id, created_at DESC)",

		// Chat list per participant
		"CREATE INDEX IF NOT EXISTS idx_chats_user1_last ON chats (user1_id, last_message_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_chats_user2_last ON chats (user2_id, last_message_at DESC)",
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// PingContext is Health bounded by ctx
func PingContext(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}
