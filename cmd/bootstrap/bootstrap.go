package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-scheduling/config"
	deliveryHttp "clinic-scheduling/internal/delivery/http"
	"clinic-scheduling/internal/delivery/http/handler"
	"clinic-scheduling/internal/delivery/http/middleware"
	"clinic-scheduling/internal/infrastructure/cache"
	"clinic-scheduling/internal/infrastructure/database"
	"clinic-scheduling/internal/infrastructure/messaging"
	"clinic-scheduling/internal/realtime"
	"clinic-scheduling/internal/repository"
	"clinic-scheduling/internal/service"
	"clinic-scheduling/internal/usecase"
	"clinic-scheduling/pkg/jwt"
	"clinic-scheduling/pkg/retry"
	"clinic-scheduling/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server

	relay    *realtime.Relay
	locks    *service.DoctorLocks
	notifier closableNotifier
}

type closableNotifier interface {
	usecase.AppointmentNotifier
	Close() error
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg.App.LogLevel)
	log.Info("Configuration loaded successfully")

	app := &App{Config: cfg, Log: log}

	location, err := time.LoadLocation(cfg.Scheduling.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduling time zone %q: %w", cfg.Scheduling.TimeZone, err)
	}

	if cfg.DB.AutoMigrate {
		if err := database.MigrateUp(cfg.DB); err != nil {
			return nil, err
		}
	}

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	log.Info("Database connected successfully")

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	log.Info("Redis connected successfully")

	if err := app.initializeServer(location); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// setupLogger configures a JSON logrus logger at the configured level
func setupLogger(level string) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

// initializeServer wires repositories, services, usecases and handlers
func (app *App) initializeServer(location *time.Location) error {
	cfg, log := app.Config, app.Log

	jwtService := jwt.NewJWTService(cfg.JWT)
	customValidator := validator.NewValidator()
	tx := database.NewTransactor(app.DB, cfg.Scheduling.TxTimeout)

	// Repositories
	appointmentRepo := repository.NewAppointmentRepository()
	availabilityRepo := repository.NewAvailabilityRepository()
	queueRepo := repository.NewQueueEntryRepository()
	doctorStatusRepo := repository.NewDoctorStatusRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Services
	app.locks = service.NewDoctorLocks(log)
	auditService := service.NewAuditService(log, auditLogRepo)
	calendar := service.NewAvailabilityCalendar(availabilityRepo, location)
	resolver := service.NewConflictResolver(availabilityRepo, appointmentRepo, location)

	// Realtime: publish through Redis, relay back into the local hub
	hub := realtime.NewHub(log, cfg.Realtime.ClientBuffer)
	publisher := realtime.NewRedisBroadcaster(app.RedisClient, cfg.Realtime.ChannelPrefix)
	app.relay = realtime.NewRelay(app.RedisClient, cfg.Realtime.ChannelPrefix, hub, log)

	notifier, err := newNotifier(cfg.Kafka, log)
	if err != nil {
		return err
	}
	app.notifier = notifier

	// Usecases
	appointmentUsecase := usecase.NewAppointmentUsecase(
		tx, log, appointmentRepo, doctorStatusRepo, calendar, resolver, auditService, app.locks, notifier,
		usecase.SchedulingOptions{
			Location:       location,
			SlotStep:       cfg.Scheduling.SlotStepMinutes,
			RescheduleLead: cfg.Scheduling.RescheduleLeadTime,
		},
	)
	availabilityUsecase := usecase.NewAvailabilityUsecase(tx, log, availabilityRepo, doctorStatusRepo, auditService, app.locks)
	queueUsecase := usecase.NewQueueUsecase(
		tx, log, queueRepo, doctorStatusRepo, appointmentRepo, auditService, app.locks, publisher, notifier,
		usecase.QueueOptions{
			Location:  location,
			Estimator: service.FixedWaitTime(cfg.Scheduling.AverageConsultationMinutes),
			Policy:    service.FIFO,
		},
	)
	auditLogUsecase := usecase.NewAuditLogUsecase(tx, log, auditLogRepo)

	// Handlers
	retryConfig := handler.NewRetryConfig(retryBase(cfg.Retry), log)
	bookingHandler := handler.NewBookingHandler(appointmentUsecase, queueUsecase, customValidator, retryConfig)
	availabilityHandler := handler.NewAvailabilityHandler(availabilityUsecase, customValidator, retryConfig)
	queueHandler := handler.NewQueueHandler(queueUsecase, customValidator, retryConfig)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)
	realtimeHandler := handler.NewRealtimeHandler(hub, queueUsecase, cfg.Realtime.AllowedOrigins, log)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, app.RedisClient)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.AllowedOrigins)

	router := deliveryHttp.NewRouter(
		bookingHandler, availabilityHandler, queueHandler, auditLogHandler, realtimeHandler,
		authMiddleware, corsMiddleware,
	)

	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// newNotifier returns a Kafka producer, or a no-op when no brokers are set
func newNotifier(cfg config.KafkaConfig, log *logrus.Logger) (closableNotifier, error) {
	if len(cfg.Brokers) == 0 {
		log.Info("Kafka brokers not configured, appointment events are not exported")
		return messaging.NopNotifier{}, nil
	}

	producer, err := messaging.NewAppointmentProducer(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create appointment producer: %w", err)
	}
	return producer, nil
}

func retryBase(cfg config.RetryConfig) retry.Config {
	base := retry.DefaultConfig()
	if cfg.MaxAttempts > 0 {
		base.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialDelay > 0 {
		base.InitialDelay = cfg.InitialDelay
	}
	if cfg.MaxDelay > 0 {
		base.MaxDelay = cfg.MaxDelay
	}
	return base
}

// Run serves HTTP and the realtime relay until SIGINT/SIGTERM, then shuts
// both down gracefully.
func (app *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return app.relay.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		app.Log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.Server.Shutdown(shutdownCtx); err != nil {
			app.Log.Errorf("Server forced to shutdown: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		app.Log.Errorf("Application stopped with error: %v", err)
	}

	app.Close()
	app.Log.Info("Server shutdown complete")
}

// Close releases background workers and connections
func (app *App) Close() {
	if app.locks != nil {
		app.locks.Stop()
	}

	if app.notifier != nil {
		if err := app.notifier.Close(); err != nil {
			app.Log.Warnf("Failed to close appointment producer: %v", err)
		}
	}

	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
