package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/AdamBeresnev/doubles-cup/internal/utils"
	"github.com/google/uuid"
)

type StageService struct {
	stages  StageRepository
	players PlayerRepository
	pairs   PairRepository
	tx      Transactor
	logger  *slog.Logger
}

func NewStageService(stores Stores, logger *slog.Logger) *StageService {
	return &StageService{
		stages:  stores.Stages,
		players: stores.Players,
		pairs:   stores.Pairs,
		tx:      stores.Tx,
		logger:  logger,
	}
}

type PairInput struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
}

func (s *StageService) CreateStage(ctx context.Context, name string) (*bracket.Stage, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: stage name is required", ErrValidation)
	}

	stage := &bracket.Stage{
		ID:     uuid.New(),
		Name:   name,
		Status: bracket.StageGroups,
	}
	if err := s.stages.CreateStage(ctx, stage); err != nil {
		return nil, storeError("failed to create stage", err)
	}

	s.logger.Info("stage created", "stage_id", stage.ID, "name", name)
	return stage, nil
}

func (s *StageService) GetStage(ctx context.Context, id uuid.UUID) (*bracket.Stage, error) {
	stage, err := s.stages.GetStage(ctx, id)
	if err != nil {
		return nil, storeError("failed to get stage", err)
	}
	return stage, nil
}

// RegisterPairs creates both players of every input and the pair joining them.
func (s *StageService) RegisterPairs(ctx context.Context, stageID uuid.UUID, inputs []PairInput) ([]bracket.Pair, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no pairs to register", ErrValidation)
	}

	stage, err := s.GetStage(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if stage.Status != bracket.StageGroups {
		return nil, fmt.Errorf("%w: pairs can only be registered before the knockout", ErrConflict)
	}

	players := make([]bracket.Player, 0, len(inputs)*2)
	pairs := make([]bracket.Pair, 0, len(inputs))
	for i, in := range inputs {
		p1, p2 := strings.TrimSpace(in.Player1), strings.TrimSpace(in.Player2)
		if p1 == "" || p2 == "" {
			return nil, fmt.Errorf("%w: pair %d needs two player names", ErrValidation, i+1)
		}

		first := bracket.Player{ID: uuid.New(), Name: p1}
		second := bracket.Player{ID: uuid.New(), Name: p2}
		players = append(players, first, second)
		pairs = append(pairs, bracket.Pair{
			ID:        uuid.New(),
			StageID:   stageID,
			Player1ID: first.ID,
			Player2ID: second.ID,
			Name:      p1 + " / " + p2,
		})
	}

	err = s.tx.InTx(ctx, func(tx Stores) error {
		if err := tx.Players.CreatePlayers(ctx, players); err != nil {
			return storeError("failed to create players", err)
		}
		if err := tx.Pairs.CreatePairs(ctx, pairs); err != nil {
			return storeError("failed to create pairs", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pairs registered", "stage_id", stageID, "count", len(pairs))
	return pairs, nil
}

func (s *StageService) ListPairs(ctx context.Context, stageID uuid.UUID) ([]bracket.Pair, error) {
	pairs, err := s.pairs.ListPairsByStage(ctx, stageID)
	if err != nil {
		return nil, storeError("failed to list pairs", err)
	}
	return pairs, nil
}

func (s *StageService) ListPlayers(ctx context.Context, stageID uuid.UUID) ([]bracket.Player, error) {
	pairs, err := s.ListPairs(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return []bracket.Player{}, nil
	}

	ids := make([]uuid.UUID, 0, len(pairs)*2)
	for _, p := range pairs {
		ids = append(ids, p.PlayerIDs()...)
	}
	players, err := s.players.ListPlayers(ctx, utils.Unique(ids))
	if err != nil {
		return nil, storeError("failed to list players", err)
	}
	return players, nil
}
