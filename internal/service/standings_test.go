package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankPairs_Criteria(t *testing.T) {
	groupID := uuid.New()
	a := bracket.Pair{ID: uuid.New(), Name: "A", Aggregate: bracket.Aggregate{Points: 6, GamesWon: 12, GamesLost: 5}}
	b := bracket.Pair{ID: uuid.New(), Name: "B", Aggregate: bracket.Aggregate{Points: 3, GamesWon: 10, GamesLost: 8}}
	c := bracket.Pair{ID: uuid.New(), Name: "C", Aggregate: bracket.Aggregate{Points: 3, GamesWon: 9, GamesLost: 9}}
	d := bracket.Pair{ID: uuid.New(), Name: "D", Aggregate: bracket.Aggregate{Points: 0, GamesWon: 4, GamesLost: 13}}

	tests := []struct {
		name string
		in   []bracket.Pair
		want []uuid.UUID
	}{
		{name: "Points then game difference", in: []bracket.Pair{d, c, b, a}, want: []uuid.UUID{a.ID, b.ID, c.ID, d.ID}},
		{name: "Input order does not matter", in: []bracket.Pair{b, d, a, c}, want: []uuid.UUID{a.ID, b.ID, c.ID, d.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(RankPairs(groupID, tt.in, nil)))
		})
	}
}

func TestRankPairs_HeadToHead(t *testing.T) {
	groupID := uuid.New()
	agg := bracket.Aggregate{Points: 3, GamesWon: 8, GamesLost: 8, SetsWon: 2, SetsLost: 1}
	a := bracket.Pair{ID: uuid.New(), Aggregate: agg}
	b := bracket.Pair{ID: uuid.New(), Aggregate: agg}
	// Better on set difference, but lost the direct match.
	b.SetsWon = 3

	direct := bracket.Match{
		Pair1ID:      b.ID,
		Pair2ID:      a.ID,
		Status:       bracket.MatchFinished,
		WinnerPairID: &a.ID,
	}

	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, ids(RankPairs(groupID, []bracket.Pair{b, a}, []bracket.Match{direct})))
	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, ids(RankPairs(groupID, []bracket.Pair{a, b}, nil)), "set difference without a direct match")
}

func TestRankPairs_HeadToHeadOnlyForTwo(t *testing.T) {
	groupID := uuid.New()
	agg := bracket.Aggregate{Points: 3, GamesWon: 8, GamesLost: 8}
	a := bracket.Pair{ID: uuid.New(), Aggregate: agg}
	b := bracket.Pair{ID: uuid.New(), Aggregate: agg}
	c := bracket.Pair{ID: uuid.New(), Aggregate: agg}
	a.GamesWon, a.GamesLost = 9, 9
	b.GamesWon, b.GamesLost = 7, 7

	// a beat c, but three pairs are level so games won decides.
	direct := bracket.Match{Pair1ID: a.ID, Pair2ID: c.ID, Status: bracket.MatchFinished, WinnerPairID: &c.ID}

	got := RankPairs(groupID, []bracket.Pair{b, c, a}, []bracket.Match{direct})
	assert.Equal(t, []uuid.UUID{a.ID, c.ID, b.ID}, ids(got))
}

func TestRankPairs_FullTieIsRepeatable(t *testing.T) {
	groupID := uuid.New()
	var pairs []bracket.Pair
	for i := 0; i < 4; i++ {
		pairs = append(pairs, bracket.Pair{ID: uuid.New()})
	}

	first := ids(RankPairs(groupID, pairs, nil))
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ids(RankPairs(groupID, pairs, nil)))
	}
	assert.ElementsMatch(t, ids(pairs), first)
}

func TestRecompute_RanksArePermutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stageID, draws := env.drawStage(t, 11)
	env.playGroups(t, draws)

	standings, err := env.standings.GetStandings(ctx, stageID)
	require.NoError(t, err)
	require.Len(t, standings, 3)

	for _, s := range standings {
		assert.True(t, s.Group.Complete, "group %s", s.Group.Name)
		for i, p := range s.Pairs {
			assert.Equal(t, i+1, p.GroupRank)
			assert.Equal(t, 1+i, p.GroupSlot, "lower slot always won")
		}
	}

	stats, err := env.standings.PlayerStandings(ctx, stageID)
	require.NoError(t, err)
	assert.Len(t, stats, 22)
}

func TestRecompute_UnknownGroup(t *testing.T) {
	env := newTestEnv(t)
	err := env.standings.Recompute(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
