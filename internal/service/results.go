package service

import (
	"context"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/AdamBeresnev/doubles-cup/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// playerDeltas spreads each side's delta onto both of its players.
func playerDeltas(p1, p2 *bracket.Pair, o bracket.Outcome) []store.PlayerDelta {
	return []store.PlayerDelta{
		{PlayerID: p1.Player1ID, Delta: o.Pair1},
		{PlayerID: p1.Player2ID, Delta: o.Pair1},
		{PlayerID: p2.Player1ID, Delta: o.Pair2},
		{PlayerID: p2.Player2ID, Delta: o.Pair2},
	}
}

// applyToPlayers writes the four player deltas concurrently.
func applyToPlayers(ctx context.Context, players PlayerStatsRepository, stageID uuid.UUID, p1, p2 *bracket.Pair, o bracket.Outcome) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, pd := range playerDeltas(p1, p2, o) {
		if pd.Delta.IsZero() {
			continue
		}
		g.Go(func() error {
			return players.ApplyDelta(gctx, stageID, pd.PlayerID, pd.Delta)
		})
	}
	return g.Wait()
}

// loadPairs fetches both sides of a match concurrently.
func loadPairs(ctx context.Context, pairs PairRepository, id1, id2 uuid.UUID) (*bracket.Pair, *bracket.Pair, error) {
	var p1, p2 *bracket.Pair
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p1, err = pairs.GetPair(gctx, id1)
		return err
	})
	g.Go(func() error {
		var err error
		p2, err = pairs.GetPair(gctx, id2)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return p1, p2, nil
}

func winnerOf(p1, p2 *bracket.Pair, o bracket.Outcome) *bracket.Pair {
	if o.WinnerSlot == 1 {
		return p1
	}
	return p2
}
