// File: courtwise/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"courtwise/config"
	"courtwise/cron"
	"courtwise/database"
	"courtwise/database/repository"
	"courtwise/handlers"
	"courtwise/middleware"
	"courtwise/routes"
	"courtwise/services/cases"
	"courtwise/services/identity"
	"courtwise/services/news"
	"courtwise/services/quota"
	"courtwise/services/session"
	"courtwise/services/storage"
	"courtwise/services/subscription"
	"courtwise/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()
	stripe.Key = config.AppConfig.StripeKey
	metrics := utils.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// repositories.
	db := database.Database()
	profiles := repository.NewMongoProfileRepo(db, logger)
	usage := repository.NewMongoUsageRepo(db, logger)
	caseStore := repository.NewMongoCaseRepo(db, logger)
	notes := repository.NewMongoNoteRepo(db, logger)
	headlines := repository.NewMongoNewsRepo(db, logger)

	// identity.
	authClient, err := identity.NewFirebaseAuthClient(ctx, config.AppConfig.FirebaseCredentialsFile)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize firebase auth: %v", err)
	}
	provider := identity.NewFirebaseProvider(
		authClient,
		config.AppConfig.FirebaseWebAPIKey,
		identity.NewRedisSessionStore(utils.GetAuthCacheClient(), config.AppConfig.SessionTokenTTL),
		identity.NewBus(),
		logger,
		identity.WithProvisioner(identity.ProfileProvisioner(profiles)),
	)

	// entitlements.
	ledger := quota.NewLedger(usage, config.AppConfig.FreeDailyAllowance, logger,
		quota.WithAtomicIncrement(config.AppConfig.QuotaAtomicIncrement),
		quota.WithMetrics(metrics),
	)
	gateway := &subscription.StripeGateway{
		PriceID:         config.AppConfig.StripePriceID,
		SuccessURL:      config.AppConfig.StripeSuccessURL,
		CancelURL:       config.AppConfig.StripeCancelURL,
		PortalReturnURL: config.AppConfig.StripePortalReturnURL,
	}
	subscriptionService := subscription.NewSubscriptionService(gateway, provider, config.AppConfig.FreeDailyAllowance, logger)

	// client sessions.
	tracker := cases.NewViewTracker()
	manager := session.NewManager(session.Deps{
		Provider: provider,
		Profiles: profiles,
		Ledger:   ledger,
		Checker:  subscriptionService,
		Metrics:  metrics,
		Logger:   logger,
	}, config.AppConfig.SessionIdleTTL)
	manager.OnEvict = tracker.Forget
	go manager.Run(ctx)

	// content.
	caseService := cases.NewCaseService(caseStore, notes, tracker, logger)
	searchClient := cases.NewSearchClient(config.AppConfig.LegalSearchURL, config.AppConfig.LegalSearchToken, nil)

	newsService := news.NewNewsService(
		headlines,
		utils.GetCacheClient(),
		news.NewScraper(nil),
		config.SplitList(config.AppConfig.NewsSources),
		config.SplitList(config.AppConfig.NewsFeeds),
		logger,
	)
	newsService.Metrics = metrics

	var avatars storage.AvatarStorage
	cloudinaryStorage, err := storage.NewCloudinaryStorageFromParams(
		config.AppConfig.CloudinaryCloudName,
		config.AppConfig.CloudinaryAPIKey,
		config.AppConfig.CloudinaryAPISecret,
		logger,
	)
	if err != nil {
		logger.Warn("Avatar uploads disabled", zap.Error(err))
	} else {
		avatars = cloudinaryStorage
	}

	// background jobs.
	worker := cron.NewNewsWorker(cron.RedisOpt(), config.AppConfig.NewsRefreshSpec, newsService, logger)
	if err := worker.Start(); err != nil {
		logger.Error("Failed to start news worker", zap.Error(err))
	}
	utils.StartHealthMonitor(ctx, []*redis.Client{utils.GetCacheClient(), utils.GetAuthCacheClient()}, database.MongoClient)

	// Create the Gin router.
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(config.AppConfig.MaxRequestsPerMin))

	hb := &handlers.HandlerBundle{
		Session:      handlers.NewSessionHandler(config.AppConfig.SessionTokenTTL),
		Auth:         handlers.NewAuthHandler(tracker),
		Cases:        handlers.NewCaseHandler(caseService, searchClient),
		Profile:      handlers.NewProfileHandler(profiles, avatars),
		Subscription: handlers.NewSubscriptionHandler(subscriptionService),
		News:         handlers.NewNewsHandler(newsService),
		Health:       handlers.NewHealthHandler(),
	}
	routes.RegisterRoutes(router, hb, manager, metrics, config.SplitList(config.AppConfig.CORSOrigins))

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.AppPort,
		Handler: router,
	}

	go func() {
		logger.Sugar().Infof("Server is running on port %s", config.AppConfig.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("Server forced to shutdown: %v", err)
	}
	worker.Shutdown()
	manager.CloseAll()
	cancel()
	if err := database.Disconnect(shutdownCtx); err != nil {
		logger.Sugar().Errorf("Failed to disconnect MongoDB: %v", err)
	}
	logger.Sugar().Info("Server exiting")
}
