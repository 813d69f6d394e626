package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/AdamBeresnev/doubles-cup/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func win(p1, p2 int) bracket.Score {
	return bracket.Score{{Pair1: p1, Pair2: p2}}
}

func (env *testEnv) stageStatus(t *testing.T, stageID uuid.UUID) bracket.StageStatus {
	t.Helper()
	stage, err := env.stages.GetStage(context.Background(), stageID)
	require.NoError(t, err)
	return stage.Status
}

func requireSlots(t *testing.T, m bracket.Matchup, pair1, pair2 uuid.UUID) {
	t.Helper()
	require.NotNil(t, m.Pair1ID)
	require.NotNil(t, m.Pair2ID)
	assert.Equal(t, pair1, *m.Pair1ID, "%s %d slot 1", m.Phase, m.Ordinal)
	assert.Equal(t, pair2, *m.Pair2ID, "%s %d slot 2", m.Phase, m.Ordinal)
}

func TestEndToEnd_SixPairs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stageID, draws := env.drawStage(t, 6)
	require.Len(t, draws, 2)
	total := 0
	for _, d := range draws {
		matches, err := env.groupMatches.ListMatches(ctx, d.Group.ID)
		require.NoError(t, err)
		total += len(matches)
	}
	assert.Equal(t, 6, total)

	env.playGroups(t, draws)
	pos := positions(draws)

	matchups, err := env.brackets.BuildBracket(ctx, stageID, 2)
	require.NoError(t, err)
	require.Len(t, matchups, 2)
	assert.Equal(t, bracket.StageKnockout, env.stageStatus(t, stageID))

	for _, m := range matchups {
		assert.Equal(t, bracket.Semifinal, m.Phase)
		assert.Equal(t, bracket.MatchupScheduled, m.Status)
		assert.NotNil(t, m.MatchID)
	}
	requireSlots(t, matchups[0], pos["1A"], pos["2B"])
	requireSlots(t, matchups[1], pos["1B"], pos["2A"])
	assert.Equal(t, "1A", matchups[0].Origin1)
	assert.Equal(t, "2B", matchups[0].Origin2)

	classified, err := env.stores.Pairs.ListClassified(ctx, stageID)
	require.NoError(t, err)
	assert.Len(t, classified, 4)

	ko, err := env.stores.Matches.GetMatch(ctx, *matchups[0].MatchID)
	require.NoError(t, err)
	assert.Nil(t, ko.GroupID)
	require.NotNil(t, ko.MatchupID)
	assert.Equal(t, matchups[0].ID, *ko.MatchupID)

	// Semifinals, then the final
	_, err = env.brackets.SubmitResult(ctx, stageID, matchups[0].ID, win(6, 3))
	require.NoError(t, err)
	assert.Empty(t, env.phase(t, stageID, bracket.Final), "final waits for both semifinals")

	_, err = env.brackets.SubmitResult(ctx, stageID, matchups[1].ID, win(6, 4))
	require.NoError(t, err)

	finals := env.phase(t, stageID, bracket.Final)
	require.Len(t, finals, 1)
	requireSlots(t, finals[0], pos["1A"], pos["1B"])
	assert.Equal(t, "Winner SEMIFINAL 1", finals[0].Origin1)
	assert.Equal(t, "Winner SEMIFINAL 2", finals[0].Origin2)

	final, err := env.brackets.SubmitResult(ctx, stageID, finals[0].ID, win(6, 4))
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchupFinished, final.Status)
	assert.Equal(t, pos["1A"], *final.WinnerPairID)
	assert.Equal(t, bracket.StageFinished, env.stageStatus(t, stageID))

	backing, err := env.stores.Matches.GetMatch(ctx, *final.MatchID)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchFinished, backing.Status)
	assert.Equal(t, win(6, 4), backing.Score)
}

func TestSubmitKnockoutResult_EditResetsNextPhase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stageID, draws := env.drawStage(t, 6)
	env.playGroups(t, draws)
	pos := positions(draws)

	semis, err := env.brackets.BuildBracket(ctx, stageID, 2)
	require.NoError(t, err)
	for _, m := range semis {
		_, err := env.brackets.SubmitResult(ctx, stageID, m.ID, win(6, 3))
		require.NoError(t, err)
	}
	finals := env.phase(t, stageID, bracket.Final)
	require.Len(t, finals, 1)
	_, err = env.brackets.SubmitResult(ctx, stageID, finals[0].ID, win(6, 4))
	require.NoError(t, err)
	oldFinalMatch := *env.phase(t, stageID, bracket.Final)[0].MatchID

	// Same winner, new score: the final is left alone.
	_, err = env.brackets.SubmitResult(ctx, stageID, semis[0].ID, win(7, 5))
	require.NoError(t, err)
	unchanged := env.phase(t, stageID, bracket.Final)
	require.Len(t, unchanged, 1)
	assert.Equal(t, bracket.MatchupFinished, unchanged[0].Status)

	// Flip the first semifinal.
	edited, err := env.brackets.SubmitResult(ctx, stageID, semis[0].ID, win(3, 6))
	require.NoError(t, err)
	assert.Equal(t, pos["2B"], *edited.WinnerPairID)

	reset := env.phase(t, stageID, bracket.Final)
	require.Len(t, reset, 1)
	requireSlots(t, reset[0], pos["2B"], pos["1B"])
	assert.Equal(t, bracket.MatchupScheduled, reset[0].Status)
	assert.Nil(t, reset[0].WinnerPairID)
	assert.Nil(t, reset[0].Score)
	require.NotNil(t, reset[0].MatchID)
	assert.NotEqual(t, oldFinalMatch, *reset[0].MatchID)
	assert.Equal(t, bracket.StageKnockout, env.stageStatus(t, stageID))

	_, err = env.stores.Matches.GetMatch(ctx, oldFinalMatch)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Stats hold groups plus the semifinals as they now stand, no final.
	oneA := env.pair(t, pos["1A"])
	assert.Equal(t, bracket.Aggregate{MatchesWon: 2, MatchesLost: 1, SetsWon: 2, SetsLost: 1, GamesWon: 15, GamesLost: 10, Points: 6},
		env.playerStats(t, stageID, oneA.Player1ID).Aggregate)

	oneB := env.pair(t, pos["1B"])
	assert.Equal(t, bracket.Aggregate{MatchesWon: 3, SetsWon: 3, GamesWon: 18, GamesLost: 7, Points: 9},
		env.playerStats(t, stageID, oneB.Player2ID).Aggregate)
}

func TestSubmitKnockoutResult_CascadeDropsLaterPhases(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stageID, draws := env.drawStage(t, 9)
	require.Len(t, draws, 3)
	env.playGroups(t, draws)
	pos := positions(draws)

	quarters, err := env.brackets.BuildBracket(ctx, stageID, 2)
	require.NoError(t, err)
	require.Len(t, quarters, 4)

	assert.Equal(t, bracket.MatchupBye, quarters[0].Status)
	assert.Equal(t, pos["1A"], *quarters[0].WinnerPairID)
	assert.Equal(t, "BYE", quarters[0].Origin2)
	assert.Nil(t, quarters[0].Pair2ID)
	assert.Nil(t, quarters[0].MatchID)
	assert.Equal(t, bracket.MatchupBye, quarters[2].Status)
	requireSlots(t, quarters[1], pos["2B"], pos["2C"])
	requireSlots(t, quarters[3], pos["1C"], pos["2A"])

	_, err = env.brackets.SubmitResult(ctx, stageID, quarters[0].ID, win(6, 0))
	assert.ErrorIs(t, err, ErrByeHasNoResult)

	_, err = env.brackets.SubmitResult(ctx, stageID, quarters[1].ID, win(6, 2))
	require.NoError(t, err)
	_, err = env.brackets.SubmitResult(ctx, stageID, quarters[3].ID, win(6, 2))
	require.NoError(t, err)

	semis := env.phase(t, stageID, bracket.Semifinal)
	require.Len(t, semis, 2)
	requireSlots(t, semis[0], pos["1A"], pos["2B"])
	requireSlots(t, semis[1], pos["1B"], pos["1C"])
	assert.Equal(t, "Winner QUARTERFINAL 1", semis[0].Origin1)

	for _, m := range semis {
		_, err := env.brackets.SubmitResult(ctx, stageID, m.ID, win(6, 1))
		require.NoError(t, err)
	}
	finals := env.phase(t, stageID, bracket.Final)
	require.Len(t, finals, 1)
	_, err = env.brackets.SubmitResult(ctx, stageID, finals[0].ID, win(6, 1))
	require.NoError(t, err)
	assert.Equal(t, bracket.StageFinished, env.stageStatus(t, stageID))

	// 2C now wins the quarterfinal: semifinal 1 is replayed, the final is gone.
	_, err = env.brackets.SubmitResult(ctx, stageID, quarters[1].ID, win(4, 6))
	require.NoError(t, err)

	semis = env.phase(t, stageID, bracket.Semifinal)
	require.Len(t, semis, 2)
	requireSlots(t, semis[0], pos["1A"], pos["2C"])
	assert.Equal(t, bracket.MatchupScheduled, semis[0].Status)
	assert.Equal(t, bracket.MatchupFinished, semis[1].Status)
	assert.Empty(t, env.phase(t, stageID, bracket.Final))
	assert.Equal(t, bracket.StageKnockout, env.stageStatus(t, stageID))

	oneA := env.pair(t, pos["1A"])
	assert.Equal(t, bracket.Aggregate{MatchesWon: 2, SetsWon: 2, GamesWon: 12, GamesLost: 4, Points: 6},
		env.playerStats(t, stageID, oneA.Player1ID).Aggregate, "reverted semifinal and final")

	_, err = env.brackets.SubmitResult(ctx, stageID, semis[0].ID, win(6, 1))
	require.NoError(t, err)
	finals = env.phase(t, stageID, bracket.Final)
	require.Len(t, finals, 1)
	requireSlots(t, finals[0], pos["1A"], pos["1B"])
}

func TestBuildBracket_FiveGroupsRemap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stageID, draws := env.drawStage(t, 15)
	require.Len(t, draws, 5)
	env.playGroups(t, draws)
	pos := positions(draws)

	first, err := env.brackets.BuildBracket(ctx, stageID, 2)
	require.NoError(t, err)
	require.Len(t, first, 8)

	byes := 0
	for _, m := range first {
		assert.Equal(t, bracket.RoundOf16, m.Phase)
		if m.Status == bracket.MatchupBye {
			byes++
		}
	}
	assert.Equal(t, 6, byes)

	_, err = env.brackets.SubmitResult(ctx, stageID, first[6].ID, win(6, 2))
	require.NoError(t, err)
	assert.Empty(t, env.phase(t, stageID, bracket.Quarterfinal))
	_, err = env.brackets.SubmitResult(ctx, stageID, first[7].ID, win(6, 2))
	require.NoError(t, err)

	quarters := env.phase(t, stageID, bracket.Quarterfinal)
	require.Len(t, quarters, 4)
	requireSlots(t, quarters[0], pos["1A"], pos["2B"])
	requireSlots(t, quarters[1], pos["1D"], pos["1E"])
	requireSlots(t, quarters[2], pos["1B"], pos["2D"])
	requireSlots(t, quarters[3], pos["1C"], pos["2A"])
	assert.Equal(t, "Winner ROUND_OF_16 7", quarters[0].Origin2)
}

func TestBuildBracket_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("No groups", func(t *testing.T) {
		env := newTestEnv(t)
		stage, err := env.stages.CreateStage(ctx, "Cup")
		require.NoError(t, err)

		_, err = env.brackets.BuildBracket(ctx, stage.ID, 2)
		assert.ErrorIs(t, err, ErrNoGroups)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Unknown stage", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.brackets.BuildBracket(ctx, uuid.New(), 2)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("One group", func(t *testing.T) {
		env := newTestEnv(t)
		stageID, draws := env.drawStage(t, 4)
		require.Len(t, draws, 1)
		env.playGroups(t, draws)

		_, err := env.brackets.BuildBracket(ctx, stageID, 2)
		assert.ErrorIs(t, err, ErrTooFewGroups)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Incomplete groups are named", func(t *testing.T) {
		env := newTestEnv(t)
		stageID, draws := env.drawStage(t, 9)
		env.playGroups(t, draws[:1])

		_, err := env.brackets.BuildBracket(ctx, stageID, 2)
		var incomplete *IncompleteGroupsError
		require.ErrorAs(t, err, &incomplete)
		assert.Equal(t, []string{"B", "C"}, incomplete.Names)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Unsupported classified count", func(t *testing.T) {
		env := newTestEnv(t)
		stageID, draws := env.drawStage(t, 6)
		env.playGroups(t, draws)

		_, err := env.brackets.BuildBracket(ctx, stageID, 3)
		assert.ErrorIs(t, err, ErrUnsupportedClassified)
	})

	t.Run("Nine groups", func(t *testing.T) {
		env := newTestEnv(t)
		stageID, draws := env.drawStage(t, 27)
		require.Len(t, draws, 9)
		env.playGroups(t, draws)

		_, err := env.brackets.BuildBracket(ctx, stageID, 2)
		assert.ErrorIs(t, err, ErrTooManyGroups)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Built twice", func(t *testing.T) {
		env := newTestEnv(t)
		stageID, draws := env.drawStage(t, 6)
		env.playGroups(t, draws)

		_, err := env.brackets.BuildBracket(ctx, stageID, 2)
		require.NoError(t, err)
		_, err = env.brackets.BuildBracket(ctx, stageID, 2)
		assert.ErrorIs(t, err, ErrBracketExists)
	})
}

func TestSubmitKnockoutResult_InvalidScore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stageID, draws := env.drawStage(t, 6)
	env.playGroups(t, draws)
	semis, err := env.brackets.BuildBracket(ctx, stageID, 2)
	require.NoError(t, err)

	tests := []struct {
		name  string
		score bracket.Score
	}{
		{name: "No sets", score: nil},
		{name: "Two sets", score: bracket.Score{{Pair1: 6, Pair2: 2}, {Pair1: 6, Pair2: 3}}},
		{name: "Three sets", score: bracket.Score{{Pair1: 6, Pair2: 2}, {Pair1: 2, Pair2: 6}, {Pair1: 6, Pair2: 3}}},
		{name: "Tied set", score: bracket.Score{{Pair1: 4, Pair2: 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.brackets.SubmitResult(ctx, stageID, semis[0].ID, tt.score)
			assert.ErrorIs(t, err, ErrInvalidScore)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err = env.brackets.SubmitResult(ctx, stageID, uuid.New(), win(6, 1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelBracket(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stageID, draws := env.drawStage(t, 6)
	env.playGroups(t, draws)
	pos := positions(draws)

	err := env.brackets.CancelBracket(ctx, stageID)
	assert.ErrorIs(t, err, ErrNothingToCancel)
	assert.ErrorIs(t, err, ErrNotFound)

	oneA := env.pair(t, pos["1A"])
	before := env.playerStats(t, stageID, oneA.Player1ID)

	semis, err := env.brackets.BuildBracket(ctx, stageID, 2)
	require.NoError(t, err)
	_, err = env.brackets.SubmitResult(ctx, stageID, semis[0].ID, win(6, 3))
	require.NoError(t, err)
	assert.True(t, env.playerStats(t, stageID, oneA.Player1ID).Classified)

	require.NoError(t, env.brackets.CancelBracket(ctx, stageID))

	bracketNow, err := env.brackets.GetBracket(ctx, stageID)
	require.NoError(t, err)
	assert.Empty(t, bracketNow)

	matches, err := env.groupMatches.ListStageMatches(ctx, stageID)
	require.NoError(t, err)
	assert.Len(t, matches, 6, "only group matches remain")

	classified, err := env.stores.Pairs.ListClassified(ctx, stageID)
	require.NoError(t, err)
	assert.Empty(t, classified)

	after := env.playerStats(t, stageID, oneA.Player1ID)
	assert.Equal(t, before.Aggregate, after.Aggregate)
	assert.False(t, after.Classified)
	assert.Equal(t, bracket.StageGroups, env.stageStatus(t, stageID))

	// The bracket can be drawn again.
	again, err := env.brackets.BuildBracket(ctx, stageID, 2)
	require.NoError(t, err)
	assert.Len(t, again, 2)
}

// playKnockout plays every scheduled matchup phase by phase, slot 1 winning,
// and returns the champion.
func (env *testEnv) playKnockout(t *testing.T, stageID uuid.UUID, first bracket.Phase) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	for phase := first; ; {
		matchups := env.phase(t, stageID, phase)
		require.NotEmpty(t, matchups, "phase %s", phase)
		for _, m := range matchups {
			if m.Status != bracket.MatchupScheduled {
				continue
			}
			_, err := env.brackets.SubmitResult(ctx, stageID, m.ID, win(6, 3))
			require.NoError(t, err)
		}

		next, ok := bracket.NextPhase(phase)
		if !ok {
			final := env.phase(t, stageID, bracket.Final)
			require.Len(t, final, 1)
			require.NotNil(t, final[0].WinnerPairID)
			return *final[0].WinnerPairID
		}
		phase = next
	}
}

func requireGroupsApartUntilFinal(t *testing.T, matchups []bracket.Matchup, groupOf map[uuid.UUID]uuid.UUID) {
	t.Helper()
	for _, m := range matchups {
		if m.Phase == bracket.Final || !m.HasBothPairs() {
			continue
		}
		assert.NotEqual(t, groupOf[*m.Pair1ID], groupOf[*m.Pair2ID],
			"%s %d pairs one group before the final", m.Phase, m.Ordinal)
	}
}

func TestBracket_EveryGroupCount(t *testing.T) {
	for groups := 2; groups <= 8; groups++ {
		t.Run(fmt.Sprintf("%d groups", groups), func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()

			stageID, draws := env.drawStage(t, groups*3)
			require.Len(t, draws, groups)
			env.playGroups(t, draws)

			groupOf := make(map[uuid.UUID]uuid.UUID)
			for _, d := range draws {
				for _, p := range d.Pairs {
					groupOf[p.ID] = d.Group.ID
				}
			}

			before, err := env.stores.PlayerStats.ListStats(ctx, stageID)
			require.NoError(t, err)

			tmpl, ok := bracket.TemplateFor(groups)
			require.True(t, ok)

			first, err := env.brackets.BuildBracket(ctx, stageID, 2)
			require.NoError(t, err)
			require.Len(t, first, len(tmpl.Slots))
			byes := 0
			for _, m := range first {
				assert.Equal(t, tmpl.FirstPhase, m.Phase)
				if m.Status == bracket.MatchupBye {
					byes++
				}
			}
			assert.Equal(t, tmpl.Byes(), byes)

			env.playKnockout(t, stageID, tmpl.FirstPhase)
			assert.Equal(t, bracket.StageFinished, env.stageStatus(t, stageID))
			played, err := env.brackets.GetBracket(ctx, stageID)
			require.NoError(t, err)
			requireGroupsApartUntilFinal(t, played, groupOf)

			// Flip the first real matchup of the opening phase and replay.
			var flipped bracket.Matchup
			for _, m := range env.phase(t, stageID, tmpl.FirstPhase) {
				if m.Status == bracket.MatchupFinished {
					flipped = m
					break
				}
			}
			require.NotNil(t, flipped.Pair2ID)
			edited, err := env.brackets.SubmitResult(ctx, stageID, flipped.ID, win(3, 6))
			require.NoError(t, err)
			assert.Equal(t, *flipped.Pair2ID, *edited.WinnerPairID)

			env.playKnockout(t, stageID, tmpl.FirstPhase)
			assert.Equal(t, bracket.StageFinished, env.stageStatus(t, stageID))
			replayed, err := env.brackets.GetBracket(ctx, stageID)
			require.NoError(t, err)
			requireGroupsApartUntilFinal(t, replayed, groupOf)
			for _, m := range replayed {
				require.NotNil(t, m.WinnerPairID, "%s %d undecided", m.Phase, m.Ordinal)
				assert.True(t, *m.WinnerPairID == *m.Pair1ID || (m.Pair2ID != nil && *m.WinnerPairID == *m.Pair2ID))
			}

			require.NoError(t, env.brackets.CancelBracket(ctx, stageID))
			assert.Equal(t, bracket.StageGroups, env.stageStatus(t, stageID))
			after, err := env.stores.PlayerStats.ListStats(ctx, stageID)
			require.NoError(t, err)
			require.Len(t, after, len(before))
			want := make(map[uuid.UUID]bracket.Aggregate, len(before))
			for _, s := range before {
				want[s.PlayerID] = s.Aggregate
			}
			for _, s := range after {
				assert.Equal(t, want[s.PlayerID], s.Aggregate, "player %s", s.PlayerID)
			}
		})
	}
}
