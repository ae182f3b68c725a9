package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"consultbooking/internal/app"
	"consultbooking/internal/cache"
	"consultbooking/internal/config"
	"consultbooking/internal/notify"
	"consultbooking/internal/repository"
	"consultbooking/internal/service"
	"consultbooking/internal/storage"
)

// countryServices объединяет сервисы одной страны. Каждая страна живёт в
// своей базе, сервисы никогда не смотрят в чужие пулы.
type countryServices struct {
	availability *service.AvailabilityService
	booking      *service.BookingService
	providers    *service.ProviderService
	qa           *service.QAService
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := storage.Open(ctx, cfg.DatabaseDSNs, logger)
	if err != nil {
		logger.Fatal("Failed to connect to databases", zap.Error(err))
	}
	defer registry.Close()

	// Миграции выполняются для каждой страны отдельно
	for _, country := range registry.Countries() {
		pool, _ := registry.Pool(country)
		if err := runMigrations(ctx, pool, country, logger); err != nil {
			logger.Fatal("Failed to apply migrations",
				zap.String("country", country),
				zap.Error(err),
			)
		}
	}

	redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
	defer redisCache.Close()

	var notifier notify.Notifier = notify.Disabled{}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, logger)
		if err != nil {
			logger.Warn("Telegram notifications disabled", zap.Error(err))
		} else {
			notifier = tg
		}
	}

	sweepStores := make(map[string]service.ConsultationStore, len(registry.Countries()))
	services := make(map[string]*countryServices, len(registry.Countries()))

	for _, country := range registry.Countries() {
		pool, _ := registry.Pool(country)

		weeks := repository.NewAvailabilityRepository(pool)
		consultations := repository.NewConsultationRepository(pool)
		chats := repository.NewChatRepository(pool)
		providers := repository.NewProviderRepository(pool)
		questions := repository.NewQuestionRepository(pool)
		records := repository.NewServiceRecordRepository(pool)

		countryLogger := logger.With(zap.String("country", country))
		services[country] = &countryServices{
			availability: service.NewAvailabilityService(weeks, countryLogger),
			booking:      service.NewBookingService(weeks, consultations, chats, providers, records, notifier, countryLogger),
			providers:    service.NewProviderService(providers, redisCache, countryLogger),
			qa:           service.NewQAService(questions, countryLogger),
		}
		sweepStores[country] = consultations
	}

	sweeper := service.NewSweeperService(sweepStores, cfg.SweepGrace, logger)
	scheduler := app.NewScheduler(sweeper, cfg.SweepInterval, logger)
	scheduler.Start(ctx)

	logger.Info("Consultation booking service started",
		zap.String("environment", cfg.Environment),
		zap.Int("countries", len(services)),
		zap.Strings("country_codes", registry.Countries()),
	)

	<-ctx.Done()

	scheduler.Stop()
	logger.Info("Consultation booking service stopped")
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, country string, logger *zap.Logger) error {
	migrator, err := app.NewMigrator(pool)
	if err != nil {
		return err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		return err
	}

	version, err := migrator.Version(ctx)
	if err != nil {
		return err
	}

	logger.Info("Migrations applied",
		zap.String("country", country),
		zap.Int64("version", version),
	)
	return nil
}
