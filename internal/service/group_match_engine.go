package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/AdamBeresnev/doubles-cup/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const batchWorkers = 4

// StandingsRecomputer is satisfied by StandingsEngine.
type StandingsRecomputer interface {
	Recompute(ctx context.Context, groupID uuid.UUID) error
}

type GroupMatchEngine struct {
	groups    GroupRepository
	pairs     PairRepository
	matches   MatchRepository
	matchups  MatchupRepository
	players   PlayerStatsRepository
	standings StandingsRecomputer
	tx        Transactor
	logger    *slog.Logger
}

func NewGroupMatchEngine(stores Stores, standings StandingsRecomputer, logger *slog.Logger) *GroupMatchEngine {
	return &GroupMatchEngine{
		groups:    stores.Groups,
		pairs:     stores.Pairs,
		matches:   stores.Matches,
		matchups:  stores.Matchups,
		players:   stores.PlayerStats,
		standings: standings,
		tx:        stores.Tx,
		logger:    logger,
	}
}

// GenerateMatches creates the round robin of every group in one transaction
// and returns how many matches were created in total.
func (e *GroupMatchEngine) GenerateMatches(ctx context.Context, groups []bracket.Group) (int, error) {
	schedules := make([][]bracket.Match, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		g.Go(func() error {
			existing, err := e.matches.ListMatchesByGroup(gctx, group.ID, "")
			if err != nil {
				return storeError("failed to list group matches", err)
			}
			if len(existing) > 0 {
				return fmt.Errorf("group %s: %w", group.Name, ErrMatchesGenerated)
			}

			pairs, err := e.pairs.ListPairsByGroup(gctx, group.ID)
			if err != nil {
				return storeError("failed to list group pairs", err)
			}
			schedules[i] = roundRobin(group, pairs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	err := e.tx.InTx(ctx, func(tx Stores) error {
		for i, group := range groups {
			if err := tx.Matches.CreateMatches(ctx, schedules[i]); err != nil {
				return fmt.Errorf("group %s: %w", group.Name, err)
			}
			if err := tx.Groups.SetTotalMatches(ctx, group.ID, len(schedules[i])); err != nil {
				return fmt.Errorf("group %s: %w", group.Name, err)
			}
			total += len(schedules[i])
		}
		return nil
	})
	if err != nil {
		return 0, storeError("failed to create group matches", err)
	}

	e.logger.Info("group matches generated", "groups", len(groups), "matches", total)
	return total, nil
}

// GenerateStageMatches creates the round robin of every group of the stage.
func (e *GroupMatchEngine) GenerateStageMatches(ctx context.Context, stageID uuid.UUID) (int, error) {
	groups, err := e.groups.ListGroups(ctx, stageID)
	if err != nil {
		return 0, storeError("failed to list groups", err)
	}
	if len(groups) == 0 {
		return 0, ErrNoGroups
	}
	return e.GenerateMatches(ctx, groups)
}

func roundRobin(group bracket.Group, pairs []bracket.Pair) []bracket.Match {
	matches := make([]bracket.Match, 0, bracket.RoundRobinCount(len(pairs)))
	for i := 0; i < len(pairs); i++ {
		for j := i + 1; j < len(pairs); j++ {
			matches = append(matches, bracket.Match{
				ID:      uuid.New(),
				StageID: group.StageID,
				GroupID: utils.Ptr(group.ID),
				Pair1ID: pairs[i].ID,
				Pair2ID: pairs[j].ID,
				Status:  bracket.MatchScheduled,
			})
		}
	}
	return matches
}

// SubmitResult records or edits a group match result and recomputes the
// standings of its group.
func (e *GroupMatchEngine) SubmitResult(ctx context.Context, matchID uuid.UUID, score bracket.Score) (*bracket.Match, error) {
	match, err := e.record(ctx, matchID, score)
	if err != nil {
		return nil, err
	}
	if err := e.standings.Recompute(ctx, *match.GroupID); err != nil {
		return nil, err
	}
	return match, nil
}

func (e *GroupMatchEngine) record(ctx context.Context, matchID uuid.UUID, score bracket.Score) (*bracket.Match, error) {
	match, err := e.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, storeError("failed to get match", err)
	}
	if match.GroupID == nil {
		return nil, ErrNotGroupMatch
	}

	p1, p2, err := loadPairs(ctx, e.pairs, match.Pair1ID, match.Pair2ID)
	if err != nil {
		return nil, storeError("failed to get match pairs", err)
	}

	var previous bracket.Score
	if match.IsFinished() {
		count, err := e.matchups.CountMatchups(ctx, match.StageID)
		if err != nil {
			return nil, storeError("failed to check bracket", err)
		}
		if count > 0 {
			return nil, ErrLockedByBracket
		}
		previous = match.Score
	}

	outcome, err := bracket.NetChange(previous, score)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	winner := winnerOf(p1, p2, outcome)
	match.Status = bracket.MatchFinished
	match.Score = score
	match.WinnerPairID = &winner.ID
	match.WinnerName = &winner.Name
	if err := e.matches.RecordResult(ctx, match); err != nil {
		return nil, storeError("failed to record match result", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.pairs.ApplyDelta(gctx, p1.ID, outcome.Pair1)
	})
	g.Go(func() error {
		return e.pairs.ApplyDelta(gctx, p2.ID, outcome.Pair2)
	})
	g.Go(func() error {
		return applyToPlayers(gctx, e.players, match.StageID, p1, p2, outcome)
	})
	if err := g.Wait(); err != nil {
		return nil, storeError("failed to apply result to aggregates", err)
	}

	if previous != nil {
		e.logger.Info("group result edited", "match_id", match.ID, "winner", winner.Name)
	}
	return match, nil
}

type ResultInput struct {
	MatchID uuid.UUID     `json:"match_id"`
	Score   bracket.Score `json:"score"`
}

type ItemError struct {
	MatchID uuid.UUID `json:"match_id"`
	Err     error     `json:"-"`
	Message string    `json:"error"`
}

type BatchResult struct {
	ProcessedCount     int         `json:"processed_count"`
	Errors             []ItemError `json:"errors"`
	RecomputedGroupIDs []uuid.UUID `json:"recomputed_group_ids"`
}

// SubmitResultsBatch records every item independently. Failed items are
// reported without stopping the rest; each touched group is recomputed once.
func (e *GroupMatchEngine) SubmitResultsBatch(ctx context.Context, items []ResultInput) BatchResult {
	var (
		mu      sync.Mutex
		result  = BatchResult{Errors: []ItemError{}, RecomputedGroupIDs: []uuid.UUID{}}
		touched = make(map[uuid.UUID]struct{})
	)

	var g errgroup.Group
	g.SetLimit(batchWorkers)
	for _, item := range items {
		g.Go(func() error {
			match, err := e.record(ctx, item.MatchID, item.Score)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, ItemError{MatchID: item.MatchID, Err: err, Message: err.Error()})
				return nil
			}
			result.ProcessedCount++
			touched[*match.GroupID] = struct{}{}
			return nil
		})
	}
	_ = g.Wait()

	for groupID := range touched {
		if err := e.standings.Recompute(ctx, groupID); err != nil {
			e.logger.Error("failed to recompute standings after batch", "group_id", groupID, "error", err)
			continue
		}
		result.RecomputedGroupIDs = append(result.RecomputedGroupIDs, groupID)
	}
	slices.SortFunc(result.RecomputedGroupIDs, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})

	e.logger.Info("batch processed", "items", len(items), "processed", result.ProcessedCount, "failed", len(result.Errors))
	return result
}

func (e *GroupMatchEngine) ListMatches(ctx context.Context, groupID uuid.UUID) ([]bracket.Match, error) {
	matches, err := e.matches.ListMatchesByGroup(ctx, groupID, "")
	if err != nil {
		return nil, storeError("failed to list matches", err)
	}
	return matches, nil
}

func (e *GroupMatchEngine) ListStageMatches(ctx context.Context, stageID uuid.UUID) ([]bracket.Match, error) {
	matches, err := e.matches.ListMatchesByStage(ctx, stageID)
	if err != nil {
		return nil, storeError("failed to list matches", err)
	}
	return matches, nil
}
