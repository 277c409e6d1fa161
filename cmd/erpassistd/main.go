package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/africanwebguy/erpassist/internal/action"
	"github.com/africanwebguy/erpassist/internal/api"
	"github.com/africanwebguy/erpassist/internal/audit"
	"github.com/africanwebguy/erpassist/internal/auth"
	"github.com/africanwebguy/erpassist/internal/config"
	"github.com/africanwebguy/erpassist/internal/dispatch"
	"github.com/africanwebguy/erpassist/internal/guard"
	"github.com/africanwebguy/erpassist/internal/handlers"
	"github.com/africanwebguy/erpassist/internal/intent"
	"github.com/africanwebguy/erpassist/internal/intent/openai"
	"github.com/africanwebguy/erpassist/internal/observability/alerting"
	"github.com/africanwebguy/erpassist/internal/session"
	"github.com/africanwebguy/erpassist/internal/storage/mysql"
	"github.com/africanwebguy/erpassist/pkg/logger"
)

// main 是 erpassist 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("erpassistd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("ERPASSIST_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "erpassist.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logger.Level,
		Format:      cfg.Logger.Format,
		OutputPaths: cfg.Logger.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Logger.Audit.Enabled,
			Path:       cfg.Logger.Audit.Path,
			MaxSizeMB:  cfg.Logger.Audit.MaxSizeMB,
			MaxBackups: cfg.Logger.Audit.MaxBackups,
			MaxAgeDays: cfg.Logger.Audit.MaxAgeDays,
		},
	}); err != nil {
		return err
	}
	defer logger.Sync()

	// 业务记录后端。
	backend, cleanupBackend, err := createRecordBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanupBackend()

	// 动作目录与注册表。
	source, cleanupCatalog, err := createCatalogSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanupCatalog()

	registry, err := action.NewRegistry(ctx, source)
	if err != nil {
		return err
	}

	// 处理函数集合与执行器自检：目录里每个启用动作都要能解析到处理函数。
	permGuard := guard.New(nil)
	set := handlers.NewSet(backend, permGuard.Records())
	executor := action.NewExecutor(set.Map())
	for _, act := range registry.All() {
		if !executor.Resolves(act) {
			log.Printf("警告: 动作 %s 的处理函数 %s 无法解析", act.Name, act.Handler)
		}
	}

	// 意图解析器。
	resolver, err := createResolver(cfg)
	if err != nil {
		return err
	}

	// 审计后端与事件通道。
	sink, cleanupSink, err := createAuditSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanupSink()

	events, cleanupEvents, err := createAuditEvents(cfg)
	if err != nil {
		return err
	}
	defer cleanupEvents()

	alerts := createAlerts(cfg)

	dispatcherOpts := []dispatch.Option{
		dispatch.WithAuditSink(sink),
		dispatch.WithResolveTimeout(time.Duration(cfg.Intent.OpenAI.TimeoutSeconds) * time.Second),
	}
	if events != nil {
		dispatcherOpts = append(dispatcherOpts, dispatch.WithAuditEvents(events))
	}
	if alerts != nil {
		dispatcherOpts = append(dispatcherOpts, dispatch.WithAlerts(alerts))
	}
	dispatcher := dispatch.New(registry, permGuard, executor, resolver, dispatcherOpts...)

	// 会话存储。
	sessions, err := createSessionStore(cfg)
	if err != nil {
		return err
	}
	defer sessions.Close()

	// 身份认证。
	authsvc, err := createAuthService(cfg)
	if err != nil {
		return err
	}

	server := api.NewServer(cfg.Server.Address, dispatcher, sessions, sink, authsvc)
	if err := server.Start(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func createCatalogSource(ctx context.Context, cfg *config.Config) (action.CatalogSource, func(), error) {
	switch cfg.Catalog.Driver {
	case "", "memory":
		return action.NewMemoryCatalog(action.DefaultCatalog()), func() {}, nil
	case "file":
		return action.NewFileCatalog(cfg.Catalog.Path), func() {}, nil
	case "mysql":
		store, err := mysql.NewCatalogStore(ctx, mysql.Config{
			DSN:          cfg.Catalog.MySQL.DSN,
			MaxOpenConns: cfg.Catalog.MySQL.MaxOpenConns,
			MaxIdleConns: cfg.Catalog.MySQL.MaxIdleConns,
		})
		if err != nil {
			return nil, nil, err
		}
		// 空库时导入内置目录，已存在的条目保持不变。
		if err := store.Install(ctx, action.DefaultCatalog()); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("未知的目录驱动: %s", cfg.Catalog.Driver)
	}
}

func createRecordBackend(ctx context.Context, cfg *config.Config) (handlers.Backend, func(), error) {
	switch cfg.Records.Driver {
	case "", "memory":
		backend := handlers.NewMemoryBackend()
		if err := handlers.SeedDemoData(ctx, backend); err != nil {
			return nil, nil, err
		}
		return backend, func() {}, nil
	case "mysql":
		backend, err := mysql.NewRecordBackend(ctx, mysql.Config{
			DSN:          cfg.Records.MySQL.DSN,
			MaxOpenConns: cfg.Records.MySQL.MaxOpenConns,
			MaxIdleConns: cfg.Records.MySQL.MaxIdleConns,
		})
		if err != nil {
			return nil, nil, err
		}
		return backend, func() { backend.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("未知的记录后端驱动: %s", cfg.Records.Driver)
	}
}

func createResolver(cfg *config.Config) (intent.Resolver, error) {
	switch cfg.Intent.Provider {
	case "", "openai":
		return openai.NewClient(openai.Config{
			APIKey:    cfg.Intent.OpenAI.APIKey,
			BaseURL:   cfg.Intent.OpenAI.BaseURL,
			Model:     cfg.Intent.OpenAI.Model,
			Timeout:   time.Duration(cfg.Intent.OpenAI.TimeoutSeconds) * time.Second,
			MaxTokens: cfg.Intent.OpenAI.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("未知的意图解析 provider: %s", cfg.Intent.Provider)
	}
}

func createAuditSink(ctx context.Context, cfg *config.Config) (audit.Sink, func(), error) {
	switch cfg.Audit.Sink.Driver {
	case "", "memory":
		sink := audit.NewMemorySink()
		return sink, func() {}, nil
	case "file":
		sink, err := audit.NewFileSink(cfg.Audit.Sink.Path)
		if err != nil {
			return nil, nil, err
		}
		return sink, func() { sink.Close() }, nil
	case "mysql":
		sink, err := mysql.NewAuditStore(ctx, mysql.Config{
			DSN:          cfg.Audit.Sink.MySQL.DSN,
			MaxOpenConns: cfg.Audit.Sink.MySQL.MaxOpenConns,
			MaxIdleConns: cfg.Audit.Sink.MySQL.MaxIdleConns,
		})
		if err != nil {
			return nil, nil, err
		}
		return sink, func() { sink.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("未知的审计驱动: %s", cfg.Audit.Sink.Driver)
	}
}

func createAuditEvents(cfg *config.Config) (audit.Publisher, func(), error) {
	switch cfg.Audit.Events.Driver {
	case "", "none":
		return nil, func() {}, nil
	case "redis":
		publisher, err := audit.NewRedisPublisher(audit.RedisPublisherConfig{
			Address:  cfg.Audit.Events.Redis.Address,
			Password: cfg.Audit.Events.Redis.Password,
			DB:       cfg.Audit.Events.Redis.DB,
			Stream:   cfg.Audit.Events.Stream,
		})
		if err != nil {
			return nil, nil, err
		}
		return publisher, func() { publisher.Close() }, nil
	case "rabbitmq":
		publisher, err := audit.NewRabbitMQPublisher(audit.RabbitMQPublisherConfig{
			URL:     cfg.Audit.Events.AMQP.URL,
			Queue:   cfg.Audit.Events.AMQP.Queue,
			Durable: true,
		})
		if err != nil {
			return nil, nil, err
		}
		return publisher, func() { publisher.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("未知的审计事件驱动: %s", cfg.Audit.Events.Driver)
	}
}

func createAlerts(cfg *config.Config) alerting.Dispatcher {
	var notifiers []alerting.Notifier
	if cfg.Alerting.DingTalkWebhook != "" {
		notifiers = append(notifiers, &alerting.DingTalkNotifier{
			Sender: alerting.NewWebhookSender(cfg.Alerting.DingTalkWebhook),
		})
	}
	if cfg.Alerting.SlackWebhook != "" {
		notifiers = append(notifiers, &alerting.SlackNotifier{
			Sender:    alerting.NewSlackWebhookSender(cfg.Alerting.SlackWebhook),
			ChannelID: cfg.Alerting.SlackChannel,
		})
	}
	if len(notifiers) == 0 {
		return nil
	}
	return alerting.NewFanout(notifiers...)
}

func createSessionStore(cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Driver {
	case "", "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		return session.NewRedisStore(session.RedisStoreConfig{
			Address:   cfg.Session.Redis.Address,
			Password:  cfg.Session.Redis.Password,
			DB:        cfg.Session.Redis.DB,
			KeyPrefix: cfg.Session.KeyPrefix,
			TTL:       time.Duration(cfg.Session.TTLSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("未知的会话驱动: %s", cfg.Session.Driver)
	}
}

func createAuthService(cfg *config.Config) (*auth.Service, error) {
	seeds := make([]auth.Seed, 0, len(cfg.Auth.Seeds))
	for _, seed := range cfg.Auth.Seeds {
		seeds = append(seeds, auth.Seed{
			Username: seed.Username,
			Password: seed.Password,
			FullName: seed.FullName,
			Roles:    seed.Roles,
			Disabled: seed.Disabled,
		})
	}

	mode := auth.Mode(cfg.Auth.Mode)
	var store auth.Store
	if mode == auth.ModeJWT {
		memStore, err := auth.NewMemoryStore(seeds)
		if err != nil {
			return nil, err
		}
		store = memStore
	}
	return auth.NewService(auth.Config{
		Mode: mode,
		JWT: auth.JWTOptions{
			Secret:     cfg.Auth.JWT.Secret,
			Issuer:     cfg.Auth.JWT.Issuer,
			AccessTTL:  cfg.Auth.JWT.AccessTTL,
			RefreshTTL: cfg.Auth.JWT.RefreshTTL,
		},
	}, store)
}
