package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rozgar/job-board/internal/config"
	"github.com/rozgar/job-board/internal/database"
	"github.com/rozgar/job-board/internal/email"
	"github.com/rozgar/job-board/internal/handler"
	"github.com/rozgar/job-board/internal/job"
	"github.com/rozgar/job-board/internal/middleware"
	"github.com/rozgar/job-board/internal/profile"
	"github.com/rozgar/job-board/internal/resume"
	"github.com/rozgar/job-board/internal/server"
	"github.com/rozgar/job-board/internal/template"
	"github.com/rozgar/job-board/internal/user"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("unable to load config: %+v", err)
	}
	logger := server.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := database.GetDbConn(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to connect to mongodb")
	}
	defer database.CloseDbConn(client)
	db := client.Database(cfg.MongoDatabase)

	userRepo := user.NewRepository(db.Collection(database.UsersCollection), db.Collection(database.VerificationCodesCollection))
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("unable to create indexes")
	}
	profileRepo := profile.NewRepository(db.Collection(database.ProfilesCollection))

	resumeStore, err := newResumeStore(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to set up resume storage")
	}

	var mailer email.Mailer
	if cfg.SparkPostAPIKey == "" {
		mailer = email.NewLogClient(logger)
	} else {
		mailer, err = email.NewClient(cfg.SparkPostAPIKey, cfg.SparkPostBaseURL, cfg.NoReplyEmail, cfg.SiteName)
		if err != nil {
			logger.Fatal().Err(err).Msg("unable to connect to sparkpost API")
		}
	}

	svr := server.NewServer(
		cfg,
		mux.NewRouter(),
		template.NewTemplate(),
		mailer,
		middleware.NewSessionStore(cfg.SessionKey, !cfg.IsDev()),
		logger,
	)

	handler.RegisterRoutes(svr, userRepo, profileRepo, resumeStore, job.NewCatalogue(job.SampleListings(time.Now())))

	if err := svr.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func newResumeStore(ctx context.Context, cfg config.Config, db *mongo.Database, logger zerolog.Logger) (resume.Store, error) {
	if cfg.ResumeBucket != "" {
		logger.Info().Str("bucket", cfg.ResumeBucket).Msg("storing resumes in s3")
		return resume.NewS3Store(ctx, cfg.AWSRegion, cfg.ResumeBucket)
	}
	bucket, err := database.ResumeBucket(db)
	if err != nil {
		return nil, err
	}
	logger.Info().Msg("storing resumes in gridfs")
	return resume.NewGridFSStore(bucket), nil
}
