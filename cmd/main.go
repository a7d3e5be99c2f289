package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"syslog-relay/config"
	"syslog-relay/internal/chart"
	"syslog-relay/internal/chat"
	"syslog-relay/internal/controller"
	"syslog-relay/internal/elasticsearch"
	"syslog-relay/internal/kafka"
	"syslog-relay/internal/listener"
	"syslog-relay/internal/logging"
	"syslog-relay/internal/notifier"
	"syslog-relay/internal/parser"
	"syslog-relay/internal/postgres"
	"syslog-relay/internal/repository"
	"syslog-relay/internal/scheduler"
	"syslog-relay/internal/service"
	"syslog-relay/internal/store"
	"syslog-relay/internal/ticketing"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	var wg sync.WaitGroup
	app := fx.New(
		fx.Supply(cfg),
		// Infrastructure Dependencies
		fx.Provide(
			NewStore,
			elasticsearch.NewLogArchive,
			chat.NewSlackClient,
			chart.NewRenderer,
			ticketing.NewJiraClient,
			kafka.NewKafkaTaskPublisher,
			kafka.NewKafkaTaskConsumer,
			NewGinEngine,
		),
		// Domain Dependencies
		fx.Provide(
			parser.NewSyslogParser,
			notifier.NewNotifier,
			service.NewIngestService,
			service.NewAggregator,
			service.NewActionDispatcher,
			service.NewActionConsumerService,
			listener.NewListener,
			controller.NewInteractionController,
		),
		roleInvokers(cfg, &wg),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	<-app.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), cfg.Listener.ShutdownTimeout+20*time.Second)
	defer cancelStop()
	log.Info().Msg("Shutting down application...")
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown due to error or timeout")
	}

	log.Info().Msg("Waiting for background goroutines to finish...")
	wg.Wait()
	log.Info().Msg("All background processes finished. Exiting.")
}

// roleInvokers starts only the long-running parts named in ROLES.
func roleInvokers(cfg *config.Config, wg *sync.WaitGroup) fx.Option {
	var opts []fx.Option
	if cfg.HasRole(config.RoleListener) {
		opts = append(opts, fx.Invoke(listener.RegisterListener))
	}
	if cfg.HasRole(config.RoleWebhook) {
		opts = append(opts, fx.Invoke(RegisterAPIRoutes))
	}
	if cfg.HasRole(config.RoleDispatcher) {
		opts = append(opts, fx.Invoke(
			RegisterScheduler,
			func(lc fx.Lifecycle, consumerService service.ActionConsumerService) {
				startActionConsumer(lc, wg, consumerService)
			},
		))
	}
	if len(opts) == 0 {
		log.Warn().Strs("roles", cfg.Roles).Msg("No known roles configured, nothing to run")
	}
	return fx.Options(opts...)
}

// --- Factory Functions ---

func NewStore(lc fx.Lifecycle, cfg *config.Config) (repository.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return postgres.NewPostgresStore(lc, cfg)
	case "memory":
		log.Warn().Msg("Using in-memory store, records are lost on restart")
		return store.NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown DATABASE_DRIVER %q", cfg.Database.Driver)
	}
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))
	return r
}

// --- Invoker Functions ---

func RegisterAPIRoutes(
	lifecycle fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	interactionController *controller.InteractionController,
) {
	controller.RegisterInteractionRoutes(router, interactionController)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Starting HTTP server on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("HTTP server ListenAndServe error")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Shutting down HTTP server...")
			return server.Shutdown(ctx)
		},
	})
}

func RegisterScheduler(lc fx.Lifecycle, cfg *config.Config) error {
	_, err := scheduler.NewChartSweeper(lc, cfg)
	return err
}

// startActionConsumer runs the ActionConsumerService in a goroutine managed by fx lifecycle
func startActionConsumer(lc fx.Lifecycle, wg *sync.WaitGroup, consumerService service.ActionConsumerService) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info().Msg("Starting Action Consumer goroutine")
			wg.Add(1)
			go consumerService.Run(ctx, wg)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			log.Info().Msg("Signaling Action Consumer goroutine to stop...")
			cancel()
			return nil
		},
	})
}
