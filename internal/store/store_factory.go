package store

import (
	"context"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"notifybell/internal/config"
	"notifybell/internal/repository"
	"notifybell/internal/store/memory"
	"notifybell/internal/store/mongo"
	"notifybell/internal/store/mysql"
)

// NewStore picks MongoDB, then MySQL, then memory, by which of MONGO_URI
// and MYSQL_DSN is set. The cleanup closes the underlying connection.
func NewStore(cfg *config.Config, logger *zap.Logger) (repository.NotificationRepository, func(), error) {
	switch {
	case cfg.MongoURI != "":
		return newMongoStore(cfg, logger)
	case cfg.MySQLDSN != "":
		return newMySQLStore(cfg, logger)
	default:
		logger.Warn("no store configured, using in-memory notifications")
		return memory.New(logger), func() {}, nil
	}
}

func newMongoStore(cfg *config.Config, logger *zap.Logger) (repository.NotificationRepository, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	defer cancel()

	client, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI).SetTimeout(cfg.StoreTimeout))
	if err != nil {
		logger.Error("mongo connect failed", zap.Error(err))
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logger.Warn("mongo disconnect failed", zap.Error(err))
		}
	}
	if err := client.Ping(ctx, nil); err != nil {
		logger.Error("mongo ping failed", zap.Error(err))
		cleanup()
		return nil, nil, err
	}
	s := mongo.New(client.Database(cfg.MongoDatabase), logger)
	if err := s.EnsureIndexes(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Info("using mongodb notification store", zap.String("database", cfg.MongoDatabase))
	return s, cleanup, nil
}

func newMySQLStore(cfg *config.Config, logger *zap.Logger) (repository.NotificationRepository, func(), error) {
	db, err := sqlx.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Error("mysql open failed", zap.Error(err))
		return nil, nil, err
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("mysql close failed", zap.Error(err))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("mysql ping failed", zap.Error(err))
		cleanup()
		return nil, nil, err
	}
	logger.Info("using mysql notification store")
	return mysql.New(db, logger), cleanup, nil
}
