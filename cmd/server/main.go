// Package main is the entry point for the returns-based style analysis service.
//
// The service infers a fund's investment style by regressing its monthly
// returns onto a basket of style index returns under a long-only, fully
// invested constraint. Series are fetched from Yahoo Finance and cached in a
// SQLite database; reports are optionally archived to Cloudflare R2.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/rbsa/internal/archive"
	"github.com/aristath/rbsa/internal/clientdata"
	"github.com/aristath/rbsa/internal/clients/yahoo"
	"github.com/aristath/rbsa/internal/config"
	"github.com/aristath/rbsa/internal/database"
	"github.com/aristath/rbsa/internal/modules/optimization"
	"github.com/aristath/rbsa/internal/modules/styleanalysis"
	stylehandlers "github.com/aristath/rbsa/internal/modules/styleanalysis/handlers"
	"github.com/aristath/rbsa/internal/scheduler"
	"github.com/aristath/rbsa/internal/server"
	"github.com/aristath/rbsa/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
		File:   cfg.LogFile,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("lookback_months", cfg.LookbackMonths).
		Msg("Starting style analysis service")

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	if err := cacheDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate cache database")
	}

	// Provider chain: Yahoo -> SQLite -> in-memory LRU
	repo := clientdata.NewRepository(cacheDB.Conn())
	yahooClient := yahoo.NewClient(cfg.YahooBaseURL, cfg.LookbackMonths, log)
	series, err := clientdata.NewSeriesCache(yahooClient, repo, cfg.CacheSize, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create series cache")
	}

	basket := styleanalysis.DefaultBasket()
	if cfg.BasketFile != "" {
		basket, err = styleanalysis.LoadBasket(cfg.BasketFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.BasketFile).Msg("Failed to load basket")
		}
	}
	log.Info().Strs("indices", basket.Symbols()).Msg("Style basket loaded")

	engine := styleanalysis.NewEngine(optimization.NewActiveSetSolver(log), log)

	var archiver styleanalysis.Archiver = archive.Nop{}
	var reportArchive *archive.Archiver
	if cfg.Archive.Enabled() {
		reportArchive, err = newReportArchive(cfg.Archive, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize report archive")
		}
		archiver = reportArchive
		log.Info().Str("bucket", cfg.Archive.Bucket).Msg("Report archive enabled")
	}

	service := styleanalysis.NewService(engine, series, basket, archiver, log)

	srv := server.New(server.Config{
		Log:          log,
		CacheDB:      cacheDB,
		DataDir:      cfg.DataDir,
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
		StyleHandler: stylehandlers.NewHandler(service, log),
	})

	sched := scheduler.New(log)
	registerJobs(sched, cfg, service, repo, cacheDB, reportArchive, log)
	sched.Start()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := cacheDB.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("Final WAL checkpoint failed")
	}

	log.Info().Msg("Server stopped")
}

func newReportArchive(cfg config.ArchiveConfig, log zerolog.Logger) (*archive.Archiver, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := archive.NewR2Client(ctx, archive.R2Config{
		AccountID:       cfg.AccountID,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		Bucket:          cfg.Bucket,
	}, log)
	if err != nil {
		return nil, err
	}
	return archive.New(client, log), nil
}

// registerJobs wires the background jobs. A job whose schedule fails to parse
// is logged and skipped so the API still comes up.
func registerJobs(
	sched *scheduler.Scheduler,
	cfg *config.Config,
	service *styleanalysis.Service,
	repo *clientdata.Repository,
	cacheDB *database.DB,
	reportArchive *archive.Archiver,
	log zerolog.Logger,
) {
	type scheduled struct {
		schedule string
		job      scheduler.Job
	}
	jobs := []scheduled{
		{cfg.WarmSchedule, scheduler.NewWarmBasketJob(service, log)},
		{cfg.CleanupSchedule, clientdata.NewCleanupJob(repo, log)},
		{"0 0 * * * *", scheduler.NewWALCheckpointJob(cacheDB, log)},
	}
	if reportArchive != nil {
		jobs = append(jobs, scheduled{cfg.RotateSchedule, archive.NewRotationJob(reportArchive, cfg.Archive.RetentionDays, log)})
	}

	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			log.Error().Err(err).Str("job", j.job.Name()).Str("schedule", j.schedule).Msg("Failed to register job")
		}
	}
}
