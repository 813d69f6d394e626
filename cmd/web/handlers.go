package main

import (
	"fmt"
	"net/http"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/AdamBeresnev/doubles-cup/internal/httputil"
	"github.com/AdamBeresnev/doubles-cup/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func (app *application) respond(w http.ResponseWriter, status int, data any) {
	if err := httputil.WriteJSON(w, status, data); err != nil {
		app.logger.Error("failed to write response", "error", err)
	}
}

func (app *application) createStage(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	stage, err := app.stages.CreateStage(r.Context(), input.Name)
	if err != nil {
		httputil.ServiceError(w, "Failed to create stage", err)
		return
	}
	app.respond(w, http.StatusCreated, stage)
}

func (app *application) getStage(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "stageID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	stage, err := app.stages.GetStage(r.Context(), stageID)
	if err != nil {
		httputil.ServiceError(w, "Failed to get stage", err)
		return
	}
	app.respond(w, http.StatusOK, stage)
}

func (app *application) registerPairs(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "stageID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	var input struct {
		Pairs []service.PairInput `json:"pairs"`
	}
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	pairs, err := app.stages.RegisterPairs(r.Context(), stageID, input.Pairs)
	if err != nil {
		httputil.ServiceError(w, "Failed to register pairs", err)
		return
	}
	app.respond(w, http.StatusCreated, pairs)
}

func (app *application) listPairs(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "stageID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	pairs, err := app.stages.ListPairs(r.Context(), stageID)
	if err != nil {
		httputil.ServiceError(w, "Failed to list pairs", err)
		return
	}
	app.respond(w, http.StatusOK, pairs)
}

func (app *application) playerStandings(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "stageID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	players, err := app.stages.ListPlayers(r.Context(), stageID)
	if err != nil {
		httputil.ServiceError(w, "Failed to list players", err)
		return
	}
	stats, err := app.standings.PlayerStandings(r.Context(), stageID)
	if err != nil {
		httputil.ServiceError(w, "Failed to load player standings", err)
		return
	}
	app.respond(w, http.StatusOK, map[string]any{"players": players, "stats": stats})
}

func (app *application) drawGroups(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "stageID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	var input struct {
		SeededPlayerIDs []uuid.UUID `json:"seeded_player_ids"`
	}
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	if _, err := app.stages.GetStage(r.Context(), stageID); err != nil {
		httputil.ServiceError(w, "Failed to get stage", err)
		return
	}
	pairs, err := app.stages.ListPairs(r.Context(), stageID)
	if err != nil {
		httputil.ServiceError(w, "Failed to list pairs", err)
		return
	}

	draws, err := app.builder.BuildGroups(r.Context(), stageID, pairs, input.SeededPlayerIDs)
	if err != nil {
		httputil.ServiceError(w, "Failed to draw groups", err)
		return
	}
	app.respond(w, http.StatusCreated, draws)
}

func (app *application) generateMatches(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "stageID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	count, err := app.groupMatches.GenerateStageMatches(r.Context(), stageID)
	if err != nil {
		httputil.ServiceError(w, "Failed to generate matches", err)
		return
	}
	app.respond(w, http.StatusCreated, map[string]int{"created": count})
}

func (app *application) groupStandings(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "stageID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	standings, err := app.standings.GetStandings(r.Context(), stageID)
	if err != nil {
		httputil.ServiceError(w, "Failed to load standings", err)
		return
	}
	app.respond(w, http.StatusOK, standings)
}

func (app *application) stageMatches(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "stageID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	matches, err := app.groupMatches.ListStageMatches(r.Context(), stageID)
	if err != nil {
		httputil.ServiceError(w, "Failed to list matches", err)
		return
	}
	app.respond(w, http.StatusOK, matches)
}

func (app *application) groupMatchList(w http.ResponseWriter, r *http.Request) {
	groupID, err := pathID(r, "groupID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	matches, err := app.groupMatches.ListMatches(r.Context(), groupID)
	if err != nil {
		httputil.ServiceError(w, "Failed to list matches", err)
		return
	}
	app.respond(w, http.StatusOK, matches)
}

type scoreInput struct {
	Score bracket.Score `json:"score"`
}

func (app *application) submitGroupResult(w http.ResponseWriter, r *http.Request) {
	matchID, err := pathID(r, "matchID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	var input scoreInput
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	match, err := app.groupMatches.SubmitResult(r.Context(), matchID, input.Score)
	if err != nil {
		httputil.ServiceError(w, "Failed to submit result", err)
		return
	}
	app.respond(w, http.StatusOK, match)
}

func (app *application) submitResultsBatch(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Results []service.ResultInput `json:"results"`
	}
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	if len(input.Results) == 0 {
		httputil.BadRequest(w, "results must not be empty", nil)
		return
	}

	app.respond(w, http.StatusOK, app.groupMatches.SubmitResultsBatch(r.Context(), input.Results))
}

func (app *application) getBracket(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "stageID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	matchups, err := app.brackets.GetBracket(r.Context(), stageID)
	if err != nil {
		httputil.ServiceError(w, "Failed to load bracket", err)
		return
	}
	app.respond(w, http.StatusOK, matchups)
}

func (app *application) buildBracket(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "stageID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	matchups, err := app.brackets.BuildBracket(r.Context(), stageID, app.cfg.ClassifiedPerGroup)
	if err != nil {
		httputil.ServiceError(w, "Failed to build bracket", err)
		return
	}
	app.respond(w, http.StatusCreated, matchups)
}

func (app *application) cancelBracket(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "stageID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	if err := app.brackets.CancelBracket(r.Context(), stageID); err != nil {
		httputil.ServiceError(w, "Failed to cancel bracket", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) submitKnockoutResult(w http.ResponseWriter, r *http.Request) {
	stageID, err := pathID(r, "stageID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	matchupID, err := pathID(r, "matchupID")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	var input scoreInput
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}

	matchup, err := app.brackets.SubmitResult(r.Context(), stageID, matchupID, input.Score)
	if err != nil {
		httputil.ServiceError(w, "Failed to submit knockout result", err)
		return
	}
	app.respond(w, http.StatusOK, matchup)
}
