package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/anonto42/storydesk/backend/internal/models"
)

// DB holds the database connections. Records is nil when stories live in
// mongo; Users is always set.
type DB struct {
	Records *gorm.DB
	Users   *gorm.DB
	Mongo   *mongo.Client

	MongoDatabase string
	log           *zap.Logger
}

// InitDB opens the connections the store configuration asks for
func InitDB(cfg StoreConfig, log *zap.Logger) (*DB, error) {
	db := &DB{MongoDatabase: cfg.MongoDatabase, log: log}

	users, err := openGorm(cfg.UsersDriver, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.UsersDriver, err)
	}
	db.Users = users
	log.Info("connected to user database", zap.String("driver", cfg.UsersDriver))

	switch cfg.Driver {
	case "mongo":
		client, err := initMongo(cfg.MongoURI)
		if err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		db.Mongo = client
		log.Info("connected to MongoDB", zap.String("database", cfg.MongoDatabase))
	case cfg.UsersDriver:
		db.Records = users
	default:
		records, err := openGorm(cfg.Driver, cfg)
		if err != nil {
			db.CloseDB()
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
		}
		db.Records = records
		log.Info("connected to record database", zap.String("driver", cfg.Driver))
	}
	return db, nil
}

func openGorm(driver string, cfg StoreConfig) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("store.postgres_dsn is not set")
		}
		db, err = gorm.Open(postgres.Open(cfg.PostgresDSN), gcfg)
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath), gcfg)
	default:
		return nil, fmt.Errorf("driver %q not supported", driver)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func initMongo(uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("store.mongo_uri is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// Migrate creates or updates the tables of every gorm connection
func (db *DB) Migrate() error {
	if err := db.Users.AutoMigrate(&models.User{}); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	if db.Records != nil {
		if err := db.Records.AutoMigrate(&models.Story{}, &models.Episode{}); err != nil {
			return fmt.Errorf("migrate records: %w", err)
		}
	}
	db.log.Info("auto-migrations completed")
	return nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	closeGorm := func(name string, g *gorm.DB) {
		sqlDB, err := g.DB()
		if err != nil {
			db.log.Error("getting SQL DB from GORM", zap.String("db", name), zap.Error(err))
			return
		}
		if err := sqlDB.Close(); err != nil {
			db.log.Error("closing connection", zap.String("db", name), zap.Error(err))
			return
		}
		db.log.Info("connection closed", zap.String("db", name))
	}
	if db.Users != nil {
		closeGorm("users", db.Users)
	}
	if db.Records != nil && db.Records != db.Users {
		closeGorm("records", db.Records)
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			db.log.Error("closing MongoDB connection", zap.Error(err))
		} else {
			db.log.Info("MongoDB connection closed")
		}
	}
}
