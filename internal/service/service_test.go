package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/AdamBeresnev/doubles-cup/internal/db"
	"github.com/AdamBeresnev/doubles-cup/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Connect(db.MemoryDSN)
	require.NoError(t, err, "Failed to connect to in-memory DB")
	require.NoError(t, db.RunMigrations(database.DB), "Failed to apply migrations")

	t.Cleanup(func() { database.Close() })
	return database
}

type testEnv struct {
	db           *sqlx.DB
	stores       Stores
	stages       *StageService
	builder      *GroupBuilder
	standings    *StandingsEngine
	groupMatches *GroupMatchEngine
	brackets     *BracketEngine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database := setupTestDB(t)
	stores := NewSQLStores(database)
	logger := slog.New(slog.DiscardHandler)
	standings := NewStandingsEngine(stores, logger)

	return &testEnv{
		db:           database,
		stores:       stores,
		stages:       NewStageService(stores, logger),
		builder:      NewGroupBuilder(stores, logger),
		standings:    standings,
		groupMatches: NewGroupMatchEngine(stores, standings, logger),
		brackets:     NewBracketEngine(stores, logger),
	}
}

func pairInputs(n int) []PairInput {
	inputs := make([]PairInput, n)
	for i := range inputs {
		inputs[i] = PairInput{
			Player1: fmt.Sprintf("Player %d-1", i+1),
			Player2: fmt.Sprintf("Player %d-2", i+1),
		}
	}
	return inputs
}

// drawStage registers n pairs, draws the groups and generates their matches.
func (env *testEnv) drawStage(t *testing.T, n int) (uuid.UUID, []GroupDraw) {
	t.Helper()
	ctx := context.Background()

	stage, err := env.stages.CreateStage(ctx, "Test Cup")
	require.NoError(t, err)

	pairs, err := env.stages.RegisterPairs(ctx, stage.ID, pairInputs(n))
	require.NoError(t, err)

	draws, err := env.builder.BuildGroups(ctx, stage.ID, pairs, nil)
	require.NoError(t, err)

	groups := make([]bracket.Group, len(draws))
	for i, d := range draws {
		groups[i] = d.Group
	}
	_, err = env.groupMatches.GenerateMatches(ctx, groups)
	require.NoError(t, err)

	return stage.ID, draws
}

// playGroups finishes every group match with the lower slot winning 6-2,
// so slot 1 ends first, slot 2 second and so on.
func (env *testEnv) playGroups(t *testing.T, draws []GroupDraw) {
	t.Helper()
	ctx := context.Background()

	for _, d := range draws {
		matches, err := env.groupMatches.ListMatches(ctx, d.Group.ID)
		require.NoError(t, err)
		for _, m := range matches {
			_, err := env.groupMatches.SubmitResult(ctx, m.ID, bracket.Score{{Pair1: 6, Pair2: 2}})
			require.NoError(t, err)
		}
	}
}

// positions maps "1A", "2B"... to the pair ids drawn into that slot.
func positions(draws []GroupDraw) map[string]uuid.UUID {
	out := make(map[string]uuid.UUID)
	for _, d := range draws {
		for _, p := range d.Pairs {
			out[bracket.PositionKey(p.GroupSlot, d.Group.Name)] = p.ID
		}
	}
	return out
}

func (env *testEnv) phase(t *testing.T, stageID uuid.UUID, phase bracket.Phase) []bracket.Matchup {
	t.Helper()
	matchups, err := env.stores.Matchups.ListMatchupsByPhase(context.Background(), stageID, phase)
	require.NoError(t, err)
	return matchups
}

func (env *testEnv) playerStats(t *testing.T, stageID, playerID uuid.UUID) *bracket.PlayerStats {
	t.Helper()
	stats, err := store.NewPlayerStatsStore(env.db).GetStats(context.Background(), stageID, playerID)
	require.NoError(t, err)
	return stats
}

func (env *testEnv) pair(t *testing.T, id uuid.UUID) *bracket.Pair {
	t.Helper()
	p, err := env.stores.Pairs.GetPair(context.Background(), id)
	require.NoError(t, err)
	return p
}

var errDiskFull = errors.New("disk full")

// failingTx runs real transactions but rewires the stores handed to them.
type failingTx struct {
	Transactor
	wrap func(tx Stores) Stores
}

func (f failingTx) InTx(ctx context.Context, fn func(tx Stores) error) error {
	return f.Transactor.InTx(ctx, func(tx Stores) error {
		return fn(f.wrap(tx))
	})
}

// withFailingTx returns the env stores with one repository of every
// transaction replaced.
func (env *testEnv) withFailingTx(wrap func(tx Stores) Stores) Stores {
	stores := env.stores
	stores.Tx = failingTx{Transactor: env.stores.Tx, wrap: wrap}
	return stores
}

type failingAssignments struct {
	PairRepository
}

func (failingAssignments) AssignGroups(context.Context, []store.GroupAssignment) error {
	return errDiskFull
}

type failingTotals struct {
	GroupRepository
	groupID uuid.UUID
}

func (f failingTotals) SetTotalMatches(ctx context.Context, id uuid.UUID, total int) error {
	if id == f.groupID {
		return errDiskFull
	}
	return f.GroupRepository.SetTotalMatches(ctx, id, total)
}
