package service

import (
	"context"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/AdamBeresnev/doubles-cup/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type StageRepository interface {
	CreateStage(ctx context.Context, stage *bracket.Stage) error
	GetStage(ctx context.Context, id uuid.UUID) (*bracket.Stage, error)
	UpdateStageStatus(ctx context.Context, id uuid.UUID, status bracket.StageStatus) error
}

type PlayerRepository interface {
	CreatePlayers(ctx context.Context, players []bracket.Player) error
	ListPlayers(ctx context.Context, ids []uuid.UUID) ([]bracket.Player, error)
}

type PairRepository interface {
	CreatePairs(ctx context.Context, pairs []bracket.Pair) error
	GetPair(ctx context.Context, id uuid.UUID) (*bracket.Pair, error)
	ListPairsByGroup(ctx context.Context, groupID uuid.UUID) ([]bracket.Pair, error)
	ListRankedByGroup(ctx context.Context, groupID uuid.UUID) ([]bracket.Pair, error)
	ListPairsByStage(ctx context.Context, stageID uuid.UUID) ([]bracket.Pair, error)
	ListClassified(ctx context.Context, stageID uuid.UUID) ([]bracket.Pair, error)
	AssignGroups(ctx context.Context, assignments []store.GroupAssignment) error
	ApplyDelta(ctx context.Context, pairID uuid.UUID, d bracket.StatDelta) error
	UpdateRanks(ctx context.Context, ranks []store.PairRank) error
	SetClassified(ctx context.Context, pairIDs []uuid.UUID, classified bool) error
}

type GroupRepository interface {
	CreateGroups(ctx context.Context, groups []bracket.Group) error
	GetGroup(ctx context.Context, id uuid.UUID) (*bracket.Group, error)
	ListGroups(ctx context.Context, stageID uuid.UUID) ([]bracket.Group, error)
	SetTotalMatches(ctx context.Context, id uuid.UUID, total int) error
	UpdateProgress(ctx context.Context, id uuid.UUID, finished int, complete bool) error
}

type MatchRepository interface {
	CreateMatches(ctx context.Context, matches []bracket.Match) error
	GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error)
	ListMatchesByGroup(ctx context.Context, groupID uuid.UUID, status bracket.MatchStatus) ([]bracket.Match, error)
	ListMatchesByStage(ctx context.Context, stageID uuid.UUID) ([]bracket.Match, error)
	RecordResult(ctx context.Context, m *bracket.Match) error
	DeleteMatch(ctx context.Context, id uuid.UUID) error
	DeleteMatches(ctx context.Context, ids []uuid.UUID) error
	DeleteKnockoutMatches(ctx context.Context, stageID uuid.UUID) error
}

type MatchupRepository interface {
	CreateMatchups(ctx context.Context, matchups []bracket.Matchup) error
	GetMatchup(ctx context.Context, stageID, id uuid.UUID) (*bracket.Matchup, error)
	ListMatchups(ctx context.Context, stageID uuid.UUID) ([]bracket.Matchup, error)
	ListMatchupsByPhase(ctx context.Context, stageID uuid.UUID, phase bracket.Phase) ([]bracket.Matchup, error)
	CountMatchups(ctx context.Context, stageID uuid.UUID) (int, error)
	RecordResult(ctx context.Context, m *bracket.Matchup) error
	UpdateSlots(ctx context.Context, m *bracket.Matchup) error
	ClearResult(ctx context.Context, id uuid.UUID) error
	DeleteMatchupsByPhase(ctx context.Context, stageID uuid.UUID, phase bracket.Phase) error
	DeleteMatchups(ctx context.Context, stageID uuid.UUID) error
}

// PlayerStatsRepository keeps the per-stage aggregate of each player.
type PlayerStatsRepository interface {
	ApplyDelta(ctx context.Context, stageID, playerID uuid.UUID, d bracket.StatDelta) error
	ApplyDeltas(ctx context.Context, stageID uuid.UUID, deltas []store.PlayerDelta) error
	SetRanks(ctx context.Context, stageID uuid.UUID, ranks []store.PlayerRank) error
	SetClassified(ctx context.Context, stageID uuid.UUID, playerIDs []uuid.UUID, classified bool) error
	ListStats(ctx context.Context, stageID uuid.UUID) ([]bracket.PlayerStats, error)
}

// Transactor runs fn against stores bound to one transaction, committed only
// when fn returns nil. The Stores handed to fn carry no Transactor of their own.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx Stores) error) error
}

// Stores bundles every port the engines consume.
type Stores struct {
	Stages      StageRepository
	Players     PlayerRepository
	Pairs       PairRepository
	Groups      GroupRepository
	Matches     MatchRepository
	Matchups    MatchupRepository
	PlayerStats PlayerStatsRepository
	Tx          Transactor
}

// NewSQLStores wires every port to its sqlx implementation.
func NewSQLStores(db *sqlx.DB) Stores {
	stores := storesOn(db)
	stores.Tx = sqlTransactor{db: db}
	return stores
}

func storesOn(db store.DBTX) Stores {
	return Stores{
		Stages:      store.NewStageStore(db),
		Players:     store.NewPlayerStore(db),
		Pairs:       store.NewPairStore(db),
		Groups:      store.NewGroupStore(db),
		Matches:     store.NewMatchStore(db),
		Matchups:    store.NewMatchupStore(db),
		PlayerStats: store.NewPlayerStatsStore(db),
	}
}

type sqlTransactor struct {
	db *sqlx.DB
}

func (t sqlTransactor) InTx(ctx context.Context, fn func(tx Stores) error) error {
	return store.RunInTx(ctx, t.db, func(tx *sqlx.Tx) error {
		return fn(storesOn(tx))
	})
}
