package main

import (
	"context"
	"os"
	"time"

	"github.com/rozgar/job-board/internal/config"
	"github.com/rozgar/job-board/internal/database"
	"github.com/rozgar/job-board/internal/server"
	"github.com/rozgar/job-board/internal/user"
)

// cleanup removes verification codes past their expiry. MongoDB's TTL monitor
// does the same about once a minute, this is for deployments where it is
// disabled or lagging.
func main() {
	cfg, err := config.LoadConfig()
	logger := server.NewLogger(cfg.Env)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to load config")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := database.GetDbConn(ctx, cfg.MongoURI)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to connect to mongodb")
	}
	defer database.CloseDbConn(client)
	db := client.Database(cfg.MongoDatabase)

	userRepo := user.NewRepository(db.Collection(database.UsersCollection), db.Collection(database.VerificationCodesCollection))
	logger.Info().Msg("deleting expired verification codes")
	n, err := userRepo.DeleteExpiredVerificationCodes(ctx, time.Now().UTC())
	if err != nil {
		logger.Error().Err(err).Msg("unable to delete expired verification codes")
		database.CloseDbConn(client)
		os.Exit(1)
	}
	logger.Info().Int64("deleted", n).Msg("done")
}
