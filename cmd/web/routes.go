package main

import (
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/doubles-cup/internal/config"
	"github.com/AdamBeresnev/doubles-cup/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type application struct {
	stages       *service.StageService
	builder      *service.GroupBuilder
	standings    *service.StandingsEngine
	groupMatches *service.GroupMatchEngine
	brackets     *service.BracketEngine
	cfg          *config.Config
	logger       *slog.Logger
}

func newApplication(stores service.Stores, cfg *config.Config, logger *slog.Logger) *application {
	standings := service.NewStandingsEngine(stores, logger)
	return &application{
		stages:       service.NewStageService(stores, logger),
		builder:      service.NewGroupBuilder(stores, logger),
		standings:    standings,
		groupMatches: service.NewGroupMatchEngine(stores, standings, logger),
		brackets:     service.NewBracketEngine(stores, logger),
		cfg:          cfg,
		logger:       logger,
	}
}

func newRouter(app *application) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/stages", app.createStage)
	r.Route("/stages/{stageID}", func(r chi.Router) {
		r.Get("/", app.getStage)

		r.Post("/pairs", app.registerPairs)
		r.Get("/pairs", app.listPairs)
		r.Get("/players", app.playerStandings)

		r.Post("/groups", app.drawGroups)
		r.Post("/groups/matches", app.generateMatches)
		r.Get("/standings", app.groupStandings)
		r.Get("/matches", app.stageMatches)
		r.Post("/results", app.submitResultsBatch)

		r.Get("/bracket", app.getBracket)
		r.Post("/bracket", app.buildBracket)
		r.Delete("/bracket", app.cancelBracket)
		r.Post("/bracket/{matchupID}/result", app.submitKnockoutResult)
	})

	r.Get("/groups/{groupID}/matches", app.groupMatchList)
	r.Post("/matches/{matchID}/result", app.submitGroupResult)

	return r
}
