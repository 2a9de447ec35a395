package main

import (
	"fmt"
	"os"

	"github.com/credsim/origination-core/internal/config"
	"github.com/credsim/origination-core/internal/db"
	httphandler "github.com/credsim/origination-core/internal/http"
	"github.com/credsim/origination-core/internal/logger"
	"github.com/credsim/origination-core/internal/repository"
	"github.com/credsim/origination-core/internal/service"
	"github.com/credsim/origination-core/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	dispatcher := tasks.NewDispatcher(log, 256, 4)
	defer dispatcher.Close()
	dispatcher.Register("score.disapproved", func(payload map[string]any) {
		log.Info().Interface("payload", payload).Msg("score disapproval follow-up")
	})
	dispatcher.Register("endorsement.pending-notice", func(payload map[string]any) {
		log.Info().Interface("payload", payload).Msg("endorsement pendency follow-up")
	})

	uow := repository.NewUnitOfWork(database)
	routing := service.RoutingPolicy{CorbanDeskEnabled: cfg.Routing.CorbanDeskEnabled}

	scoreService := service.NewScoreService(uow, routing, dispatcher, log)
	endorsementService := service.NewEndorsementService(uow, dispatcher, log)

	handler := httphandler.NewHandler(scoreService, endorsementService, log)
	router := httphandler.NewRouter(handler, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting origination core")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
