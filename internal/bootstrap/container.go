package bootstrap

import (
	"context"
	"log"

	"coverage-compare-be/internal/config"
	"coverage-compare-be/internal/controller"
	"coverage-compare-be/internal/pkg/logger"
	"coverage-compare-be/internal/repository/contract"
	"coverage-compare-be/internal/repository/memory"
	redisRepo "coverage-compare-be/internal/repository/redis"
	"coverage-compare-be/internal/service"
	"coverage-compare-be/internal/websocket"
	"coverage-compare-be/pkg/compare"
	pktNats "coverage-compare-be/pkg/nats"
	"coverage-compare-be/pkg/resolution/executor"
	"coverage-compare-be/pkg/resolution/lock"
	"coverage-compare-be/pkg/resolution/reset"
	"coverage-compare-be/pkg/resolution/session"
	"coverage-compare-be/pkg/resolution/viewstate"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	Logger logger.ILogger

	// Controllers
	SessionController controller.ISessionController

	// Background Services (Exposed for main.go to run)
	ConsumerService  service.IConsumerService
	LockAuditService *service.LockAuditService // nil without NATS

	WebSocketHub *websocket.Hub

	closers []func()
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })
	publisherService := service.NewPublisherService(cfg.Events.Topic, pubSub, sysLogger)

	// NATS (optional): forward bus events, audit lock violations
	var forwarder service.EventForwarder
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] NATS publisher unavailable: %v", err)
		} else {
			forwarder = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}

		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] NATS subscriber unavailable: %v", err)
		} else {
			auditLogger := logger.NewIsolatedLogger("logs/lock_audit.log")
			c.LockAuditService = service.NewLockAuditService(natsSub, auditLogger)
			c.closers = append(c.closers, natsSub.Close)
		}
	}
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Events.Topic, forwarder, sysLogger)

	// Redis (optional): session store and cross-instance view fan-out
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// 3. Session storage
	var repo contract.SessionRepository
	if cfg.Session.Store == "redis" && rdb != nil {
		repo = redisRepo.NewSessionRepository(rdb, cfg.Session.TTL)
		log.Printf("[INFO] Using session store: REDIS")
	} else {
		repo = memory.NewSessionRepository(cfg.Session.TTL, cfg.Session.CleanupInterval)
		log.Printf("[INFO] Using session store: MEMORY")
	}
	manager := session.NewManager(repo, sysLogger)
	views := viewstate.NewRegistry(cfg.Session.TTL, cfg.Session.CleanupInterval, sysLogger)

	// 4. Turn pipeline
	detector := reset.NewDetector(reset.NewKeywordClassifier(cfg.Compare.TriggerTerms...), sysLogger)
	// transition records go out from the session service once the turn is saved
	arbiter := lock.NewArbiter(sysLogger)
	resolver := compare.NewHTTPResolver(cfg.Compare.BaseURL, cfg.Compare.Timeout, sysLogger)
	turnExecutor := executor.NewTurnExecutor(resolver, detector, arbiter, sysLogger).
		WithInsurers(cfg.Compare.DefaultInsurers...)

	// 5. Delivery
	wsLogger := logger.NewIsolatedLogger("logs/session_ws.log")
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	sessionService := service.NewSessionService(manager, turnExecutor, views, publisherService, c.WebSocketHub, sysLogger)
	c.SessionController = controller.NewSessionController(sessionService, c.WebSocketHub, cfg.Auth.JWTSecret, wsLogger)

	return c
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
