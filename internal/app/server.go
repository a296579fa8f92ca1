// internal/app/server.go
package app

import (
	"context"
	"fmt"

	"wardpulse-service/internal/broker"
	"wardpulse-service/internal/config"
	"wardpulse-service/internal/db"
	notifHandler "wardpulse-service/internal/handlers/notification"
	subHandler "wardpulse-service/internal/handlers/subscription"
	wsHandler "wardpulse-service/internal/handlers/websocket"
	"wardpulse-service/internal/middleware"
	"wardpulse-service/internal/pkg/jwt"
	"wardpulse-service/internal/pkg/session"
	"wardpulse-service/internal/repository/postgres"
	"wardpulse-service/internal/service/email"
	notifService "wardpulse-service/internal/service/notification"
	"wardpulse-service/internal/service/push"
	"wardpulse-service/internal/service/sms"
	ws "wardpulse-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	brk           *broker.Broker
	sweeperCancel context.CancelFunc
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := postgres.Connect(ctx, s.cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// ----- JWT Verifier + Sessions -----
	verifier, err := jwt.LoadVerifier(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT verifier: %w", err)
	}
	sessionManager := session.NewManager(redisClient)

	// ----- Repositories -----
	historyRepo := postgres.NewHistoryRepository(pool)

	// ----- Side-channel senders -----
	senders := []broker.ChannelSender{
		email.NewSender(
			s.cfg.SMTPHost,
			s.cfg.SMTPPort,
			s.cfg.SMTPUser,
			s.cfg.SMTPPass,
			s.cfg.SMTPFromName,
			s.cfg.StaffDomain,
			s.cfg.SMTPSecure,
		),
		sms.NewSender(s.cfg.SMSGatewayURL, s.cfg.SMSAPIKey),
		push.NewSender(s.cfg.PushURL, s.cfg.PushAPIKey),
	}

	// ----- Broker -----
	s.brk = broker.New(broker.Config{
		QueueCap:          s.cfg.QueueCap,
		DispatchWorkers:   s.cfg.DispatchWorkers,
		DispatchQueueSize: s.cfg.DispatchQueueSize,
	}, senders, historyRepo, logger)

	// ----- Liveness Sweeper -----
	sweeper := broker.NewSweeper(s.brk, broker.SweeperConfig{
		ConnectionInterval: s.cfg.ConnSweepInterval,
		QueueInterval:      s.cfg.QueueSweepInterval,
		InactivityWindow:   s.cfg.InactivityWindow,
	}, logger)
	sweepCtx, cancel := context.WithCancel(context.Background())
	s.sweeperCancel = cancel
	go sweeper.Run(sweepCtx)

	// ----- Services -----
	notifSvc := notifService.NewService(historyRepo, s.brk, logger)

	// ----- Handlers -----
	authenticator := ws.NewAuthenticator(verifier, sessionManager)
	handlers := &Handlers{
		NotifHandler: notifHandler.NewNotificationHandler(s.brk, notifSvc),
		SubHandler:   subHandler.NewSubscriptionHandler(s.brk),
		WSHandler:    wsHandler.NewWebSocketHandler(s.brk, authenticator, notifSvc, logger),
		AuthMW:       middleware.NewAuthMiddleware(verifier, sessionManager),
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	SetupRouter(s.engine, handlers)

	logger.Info("server starting", zap.String("addr", s.cfg.HTTPAddr))
	return s.engine.Run(s.cfg.HTTPAddr)
}

// Shutdown stops background maintenance and closes all live connections.
func (s *Server) Shutdown(ctx context.Context) {
	if s.sweeperCancel != nil {
		s.sweeperCancel()
	}
	if s.brk != nil {
		s.brk.Shutdown()
	}
	if s.logger != nil {
		s.logger.Sync()
	}
	_ = ctx
}
