package service

import (
	"cmp"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/AdamBeresnev/doubles-cup/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type StandingsEngine struct {
	groups  GroupRepository
	pairs   PairRepository
	matches MatchRepository
	players PlayerStatsRepository
	logger  *slog.Logger
}

func NewStandingsEngine(stores Stores, logger *slog.Logger) *StandingsEngine {
	return &StandingsEngine{
		groups:  stores.Groups,
		pairs:   stores.Pairs,
		matches: stores.Matches,
		players: stores.PlayerStats,
		logger:  logger,
	}
}

// Recompute ranks every pair of the group from the stored aggregates, mirrors
// the rank onto both players and refreshes the group progress counters.
func (e *StandingsEngine) Recompute(ctx context.Context, groupID uuid.UUID) error {
	group, err := e.groups.GetGroup(ctx, groupID)
	if err != nil {
		return storeError("failed to get group", err)
	}

	var (
		pairs    []bracket.Pair
		finished []bracket.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pairs, err = e.pairs.ListPairsByGroup(gctx, groupID)
		return err
	})
	g.Go(func() error {
		var err error
		finished, err = e.matches.ListMatchesByGroup(gctx, groupID, bracket.MatchFinished)
		return err
	})
	if err := g.Wait(); err != nil {
		return storeError("failed to load group standings", err)
	}

	ranked := RankPairs(groupID, pairs, finished)

	pairRanks := make([]store.PairRank, len(ranked))
	playerRanks := make([]store.PlayerRank, 0, len(ranked)*2)
	for i, p := range ranked {
		pairRanks[i] = store.PairRank{PairID: p.ID, Rank: i + 1}
		for _, playerID := range p.PlayerIDs() {
			playerRanks = append(playerRanks, store.PlayerRank{PlayerID: playerID, Rank: i + 1})
		}
	}

	if err := e.pairs.UpdateRanks(ctx, pairRanks); err != nil {
		return storeError("failed to update pair ranks", err)
	}
	if err := e.players.SetRanks(ctx, group.StageID, playerRanks); err != nil {
		return storeError("failed to update player ranks", err)
	}

	total := bracket.RoundRobinCount(len(pairs))
	complete := total > 0 && len(finished) == total
	if err := e.groups.UpdateProgress(ctx, groupID, len(finished), complete); err != nil {
		return storeError("failed to update group progress", err)
	}

	e.logger.Debug("standings recomputed", "group", group.Name, "finished", len(finished), "complete", complete)
	return nil
}

type tieKey struct {
	points   int
	gameDiff int
}

// RankPairs orders the pairs by points, game difference, head-to-head (only
// between exactly two tied pairs), set difference and games won. Whatever is
// still level keeps the order of a shuffle seeded by the group id, so the
// same standings always produce the same ranking.
func RankPairs(groupID uuid.UUID, pairs []bracket.Pair, finished []bracket.Match) []bracket.Pair {
	ranked := slices.Clone(pairs)

	seed1 := binary.BigEndian.Uint64(groupID[:8])
	seed2 := binary.BigEndian.Uint64(groupID[8:])
	rnd := rand.New(rand.NewPCG(seed1, seed2))
	rnd.Shuffle(len(ranked), func(i, j int) {
		ranked[i], ranked[j] = ranked[j], ranked[i]
	})

	tied := make(map[tieKey]int, len(ranked))
	for _, p := range ranked {
		tied[tieKey{p.Points, p.GameDiff()}]++
	}

	slices.SortStableFunc(ranked, func(a, b bracket.Pair) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		if c := cmp.Compare(b.GameDiff(), a.GameDiff()); c != 0 {
			return c
		}
		if tied[tieKey{a.Points, a.GameDiff()}] == 2 {
			if winner, ok := headToHead(finished, a.ID, b.ID); ok {
				if winner == a.ID {
					return -1
				}
				return 1
			}
		}
		if c := cmp.Compare(b.SetDiff(), a.SetDiff()); c != 0 {
			return c
		}
		return cmp.Compare(b.GamesWon, a.GamesWon)
	})

	return ranked
}

func headToHead(finished []bracket.Match, a, b uuid.UUID) (uuid.UUID, bool) {
	for _, m := range finished {
		if m.IsFinished() && m.Involves(a, b) && m.WinnerPairID != nil {
			return *m.WinnerPairID, true
		}
	}
	return uuid.Nil, false
}

// Standings is the read model of one group.
type Standings struct {
	Group bracket.Group  `json:"group"`
	Pairs []bracket.Pair `json:"pairs"`
}

func (e *StandingsEngine) GetStandings(ctx context.Context, stageID uuid.UUID) ([]Standings, error) {
	groups, err := e.groups.ListGroups(ctx, stageID)
	if err != nil {
		return nil, storeError("failed to list groups", err)
	}

	out := make([]Standings, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		g.Go(func() error {
			pairs, err := e.pairs.ListRankedByGroup(gctx, group.ID)
			if err != nil {
				return fmt.Errorf("group %s: %w", group.Name, err)
			}
			out[i] = Standings{Group: group, Pairs: pairs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storeError("failed to load standings", err)
	}
	return out, nil
}

func (e *StandingsEngine) PlayerStandings(ctx context.Context, stageID uuid.UUID) ([]bracket.PlayerStats, error) {
	stats, err := e.players.ListStats(ctx, stageID)
	if err != nil {
		return nil, storeError("failed to list player stats", err)
	}
	return stats, nil
}
