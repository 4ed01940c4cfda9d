package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"chatwidget/internal/ai"
	appsvc "chatwidget/internal/app"
	"chatwidget/internal/cache"
	"chatwidget/internal/config"
	"chatwidget/internal/model"
	mysqlClient "chatwidget/internal/platform/mysql"
	rabbitmqClient "chatwidget/internal/platform/rabbitmq"
	redisClient "chatwidget/internal/platform/redis"
	sqliteClient "chatwidget/internal/platform/sqlite"
	"chatwidget/internal/repository"
	"chatwidget/internal/worker"
)

// App holds the backend's long-lived resources. Redis and MQConn are nil
// when the matching feature is disabled in config.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	ChatService *appsvc.ChatService
	ReplyWorker *worker.ReplyWorker

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
	}

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.DB = db
	if err := db.AutoMigrate(&model.Message{}); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	var opts []appsvc.Option
	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.Redis = redisCli
		historyTTL := time.Duration(cfg.Redis.HistoryTTLSeconds) * time.Second
		opts = append(opts, appsvc.WithHistoryCache(cache.NewHistoryCache(redisCli, historyTTL, 0)))
	}

	if cfg.RabbitMQ.Enabled {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.ReplyQueue)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.MQConn = mqConn
		opts = append(opts, appsvc.WithReplyPublisher(rabbitmqClient.NewReplyPublisher(mqConn, cfg.RabbitMQ.ReplyQueue)))
	}

	app.ChatService = appsvc.NewChatService(
		repository.NewMessageRepository(db),
		ai.NewClient(),
		appsvc.LLMSettings{
			Chat: ai.ChatConfig{
				BaseURL: cfg.LLM.BaseURL,
				APIKey:  cfg.LLM.APIKey,
				Model:   cfg.LLM.Model,
			},
			SystemPrompt: cfg.LLM.SystemPrompt,
		},
		logger,
		opts...,
	)

	if app.MQConn != nil {
		replyWorker := worker.NewReplyWorker(app.MQConn, app.ChatService, cfg.RabbitMQ.ReplyQueue, logger)
		if err := replyWorker.Start(ctx); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("start reply worker failed: %w", err)
		}
		app.ReplyWorker = replyWorker
	}

	return app, nil
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	switch cfg.Storage.Driver {
	case "sqlite", "":
		return sqliteClient.New(ctx, cfg.Storage.SQLitePath, logger)
	case "mysql":
		return mysqlClient.New(ctx, cfg.MySQLDSN(), logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.ReplyWorker != nil {
		a.ReplyWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
