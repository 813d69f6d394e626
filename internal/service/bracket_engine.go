package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/AdamBeresnev/doubles-cup/internal/store"
	"github.com/AdamBeresnev/doubles-cup/internal/utils"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const byeOrigin = "BYE"

const maxBracketGroups = 8

type BracketEngine struct {
	stages   StageRepository
	groups   GroupRepository
	pairs    PairRepository
	matches  MatchRepository
	matchups MatchupRepository
	players  PlayerStatsRepository
	tx       Transactor
	logger   *slog.Logger
}

func NewBracketEngine(stores Stores, logger *slog.Logger) *BracketEngine {
	return &BracketEngine{
		stages:   stores.Stages,
		groups:   stores.Groups,
		pairs:    stores.Pairs,
		matches:  stores.Matches,
		matchups: stores.Matchups,
		players:  stores.PlayerStats,
		tx:       stores.Tx,
		logger:   logger,
	}
}

// BuildBracket seeds the first knockout phase from the group standings using
// the template for the stage's group count.
func (e *BracketEngine) BuildBracket(ctx context.Context, stageID uuid.UUID, classifiedPerGroup int) ([]bracket.Matchup, error) {
	if _, err := e.stages.GetStage(ctx, stageID); err != nil {
		return nil, storeError("failed to get stage", err)
	}

	count, err := e.matchups.CountMatchups(ctx, stageID)
	if err != nil {
		return nil, storeError("failed to check bracket", err)
	}
	if count > 0 {
		return nil, ErrBracketExists
	}
	if classifiedPerGroup != bracket.ClassifiedPerGroup {
		return nil, ErrUnsupportedClassified
	}

	groups, err := e.groups.ListGroups(ctx, stageID)
	if err != nil {
		return nil, storeError("failed to list groups", err)
	}
	if len(groups) == 0 {
		return nil, ErrNoGroups
	}
	var incomplete []string
	for _, g := range groups {
		if !g.Complete {
			incomplete = append(incomplete, g.Name)
		}
	}
	if len(incomplete) > 0 {
		return nil, &IncompleteGroupsError{Names: incomplete}
	}
	if len(groups) < 2 {
		return nil, ErrTooFewGroups
	}
	if len(groups) > maxBracketGroups {
		return nil, ErrTooManyGroups
	}

	tmpl, err := templateChecked(len(groups), classifiedPerGroup)
	if err != nil {
		return nil, err
	}

	positions, err := e.classify(ctx, groups, classifiedPerGroup)
	if err != nil {
		return nil, err
	}

	matchups := make([]bracket.Matchup, 0, len(tmpl.Slots))
	var matches []bracket.Match
	for i, slot := range tmpl.Slots {
		home, ok := positions[slot.Home]
		if !ok {
			return nil, fmt.Errorf("%w: no pair at position %s", ErrConsistency, slot.Home)
		}

		m := bracket.Matchup{
			ID:      uuid.New(),
			StageID: stageID,
			Phase:   tmpl.FirstPhase,
			Ordinal: i + 1,
			Pair1ID: &home.ID,
			Origin1: slot.Home,
		}
		if slot.IsBye() {
			m.Origin2 = byeOrigin
			m.Status = bracket.MatchupBye
			m.WinnerPairID = &home.ID
		} else {
			away, ok := positions[slot.Away]
			if !ok {
				return nil, fmt.Errorf("%w: no pair at position %s", ErrConsistency, slot.Away)
			}
			m.Pair2ID = &away.ID
			m.Origin2 = slot.Away
			m.Status = bracket.MatchupScheduled
			matchID := uuid.New()
			m.MatchID = &matchID
			matches = append(matches, backingMatch(&m))
		}
		matchups = append(matchups, m)
	}

	classified := make([]bracket.Pair, 0, len(positions))
	for _, p := range positions {
		classified = append(classified, p)
	}

	err = e.tx.InTx(ctx, func(tx Stores) error {
		if err := tx.Matchups.CreateMatchups(ctx, matchups); err != nil {
			return storeError("failed to create matchups", err)
		}
		if err := tx.Matches.CreateMatches(ctx, matches); err != nil {
			return storeError("failed to create knockout matches", err)
		}
		if err := markClassified(ctx, tx.Pairs, tx.PlayerStats, stageID, classified, true); err != nil {
			return err
		}
		if err := tx.Stages.UpdateStageStatus(ctx, stageID, bracket.StageKnockout); err != nil {
			return storeError("failed to update stage status", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A phase made only of byes advances on its own.
	if err := e.advance(ctx, stageID, tmpl, tmpl.FirstPhase); err != nil {
		return nil, err
	}

	e.logger.Info("bracket built", "stage_id", stageID, "groups", len(groups),
		"phase", tmpl.FirstPhase, "byes", tmpl.Byes())
	return e.GetBracket(ctx, stageID)
}

func templateChecked(groups, classifiedPerGroup int) (bracket.Template, error) {
	tmpl, ok := bracket.TemplateFor(groups)
	if !ok {
		return bracket.Template{}, fmt.Errorf("%w: no bracket template for %d groups", ErrConsistency, groups)
	}

	classified := groups * classifiedPerGroup
	info, err := bracket.ByeMath(classified)
	if err != nil {
		return bracket.Template{}, fmt.Errorf("%w: %w", ErrConsistency, err)
	}
	if info.Byes != tmpl.Byes() || bracket.FirstPhaseFor(classified) != tmpl.FirstPhase {
		return bracket.Template{}, fmt.Errorf("%w: template for %d groups disagrees with bye math", ErrConsistency, groups)
	}
	return tmpl, nil
}

// classify maps position keys such as "1A" to the pair holding that rank.
func (e *BracketEngine) classify(ctx context.Context, groups []bracket.Group, perGroup int) (map[string]bracket.Pair, error) {
	ranked := make([][]bracket.Pair, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		g.Go(func() error {
			pairs, err := e.pairs.ListRankedByGroup(gctx, group.ID)
			if err != nil {
				return storeError("failed to list group ranking", err)
			}
			ranked[i] = pairs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	positions := make(map[string]bracket.Pair, len(groups)*perGroup)
	for i, group := range groups {
		if len(ranked[i]) < perGroup {
			return nil, fmt.Errorf("%w: group %s has only %d pairs", ErrConsistency, group.Name, len(ranked[i]))
		}
		for rank := 1; rank <= perGroup; rank++ {
			p := ranked[i][rank-1]
			if p.GroupRank != rank {
				return nil, fmt.Errorf("%w: group %s is missing rank %d", ErrConsistency, group.Name, rank)
			}
			positions[bracket.PositionKey(rank, group.Name)] = p
		}
	}
	return positions, nil
}

func markClassified(ctx context.Context, pairRepo PairRepository, playerRepo PlayerStatsRepository, stageID uuid.UUID, pairs []bracket.Pair, classified bool) error {
	pairIDs := make([]uuid.UUID, 0, len(pairs))
	playerIDs := make([]uuid.UUID, 0, len(pairs)*2)
	for _, p := range pairs {
		pairIDs = append(pairIDs, p.ID)
		playerIDs = append(playerIDs, p.PlayerIDs()...)
	}

	if err := pairRepo.SetClassified(ctx, pairIDs, classified); err != nil {
		return storeError("failed to update classified pairs", err)
	}
	if err := playerRepo.SetClassified(ctx, stageID, playerIDs, classified); err != nil {
		return storeError("failed to update classified players", err)
	}
	return nil
}

func backingMatch(m *bracket.Matchup) bracket.Match {
	return bracket.Match{
		ID:        *m.MatchID,
		StageID:   m.StageID,
		MatchupID: utils.Ptr(m.ID),
		Pair1ID:   *m.Pair1ID,
		Pair2ID:   *m.Pair2ID,
		Status:    bracket.MatchScheduled,
	}
}

// SubmitResult records or edits a single set knockout result, then advances
// winners once the whole phase is decided.
func (e *BracketEngine) SubmitResult(ctx context.Context, stageID, matchupID uuid.UUID, score bracket.Score) (*bracket.Matchup, error) {
	if len(score) != 1 {
		return nil, ErrInvalidScore
	}
	if err := bracket.ValidateScore(score); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScore, err)
	}

	m, err := e.matchups.GetMatchup(ctx, stageID, matchupID)
	if err != nil {
		return nil, storeError("failed to get matchup", err)
	}
	if m.Status == bracket.MatchupBye {
		return nil, ErrByeHasNoResult
	}
	if !m.HasBothPairs() {
		return nil, ErrPairsPending
	}

	var previous bracket.Score
	if m.Status == bracket.MatchupFinished {
		previous = m.Score
	}
	outcome, err := bracket.NetChange(previous, score)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScore, err)
	}

	p1, p2, err := loadPairs(ctx, e.pairs, *m.Pair1ID, *m.Pair2ID)
	if err != nil {
		return nil, storeError("failed to get matchup pairs", err)
	}
	winner := winnerOf(p1, p2, outcome)

	m.Status = bracket.MatchupFinished
	m.Score = score
	m.WinnerPairID = &winner.ID
	if err := e.matchups.RecordResult(ctx, m); err != nil {
		return nil, storeError("failed to record matchup result", err)
	}
	if err := e.syncBackingMatch(ctx, m, winner); err != nil {
		return nil, err
	}
	if err := applyToPlayers(ctx, e.players, stageID, p1, p2, outcome); err != nil {
		return nil, storeError("failed to apply result to players", err)
	}

	tmpl, err := e.stageTemplate(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if err := e.advance(ctx, stageID, tmpl, m.Phase); err != nil {
		return nil, err
	}
	if err := e.syncStageStatus(ctx, stageID); err != nil {
		return nil, err
	}

	updated, err := e.matchups.GetMatchup(ctx, stageID, matchupID)
	if err != nil {
		return nil, storeError("failed to reload matchup", err)
	}
	return updated, nil
}

// syncBackingMatch copies the matchup result onto its match row, recreating
// the row if it went missing.
func (e *BracketEngine) syncBackingMatch(ctx context.Context, m *bracket.Matchup, winner *bracket.Pair) error {
	var match *bracket.Match
	if m.MatchID != nil {
		found, err := e.matches.GetMatch(ctx, *m.MatchID)
		switch {
		case err == nil:
			match = found
		case !errors.Is(err, store.ErrNotFound):
			return storeError("failed to get knockout match", err)
		}
	}

	if match == nil {
		matchID := uuid.New()
		m.MatchID = &matchID
		fresh := backingMatch(m)
		if err := e.matches.CreateMatches(ctx, []bracket.Match{fresh}); err != nil {
			return storeError("failed to create knockout match", err)
		}
		if err := e.matchups.UpdateSlots(ctx, m); err != nil {
			return storeError("failed to link knockout match", err)
		}
		match = &fresh
	}

	match.Status = bracket.MatchFinished
	match.Score = m.Score
	match.WinnerPairID = &winner.ID
	match.WinnerName = &winner.Name
	if err := e.matches.RecordResult(ctx, match); err != nil {
		return storeError("failed to record knockout match", err)
	}
	return nil
}

func (e *BracketEngine) stageTemplate(ctx context.Context, stageID uuid.UUID) (bracket.Template, error) {
	groups, err := e.groups.ListGroups(ctx, stageID)
	if err != nil {
		return bracket.Template{}, storeError("failed to list groups", err)
	}
	return templateChecked(len(groups), bracket.ClassifiedPerGroup)
}

type slotPair struct {
	pair1, pair2     *uuid.UUID
	origin1, origin2 string
}

// advance moves winners of a fully decided phase into the next one. An
// existing next phase is diffed against the winners; any slot that changed
// is reset and every phase after it is dropped.
func (e *BracketEngine) advance(ctx context.Context, stageID uuid.UUID, tmpl bracket.Template, phase bracket.Phase) error {
	current, err := e.matchups.ListMatchupsByPhase(ctx, stageID, phase)
	if err != nil {
		return storeError("failed to list phase matchups", err)
	}
	if len(current) == 0 {
		return nil
	}
	for _, m := range current {
		if !m.Decided() {
			return nil
		}
	}

	next, ok := bracket.NextPhase(phase)
	if !ok {
		return nil
	}

	byOrdinal := make(map[int]bracket.Matchup, len(current))
	for _, m := range current {
		byOrdinal[m.Ordinal] = m
	}

	feeds := tmpl.FeedsInto(phase, len(current))
	expected := make([]slotPair, len(feeds))
	for i, f := range feeds {
		a, okA := byOrdinal[f[0]]
		b, okB := byOrdinal[f[1]]
		if !okA || !okB {
			return fmt.Errorf("%w: %s has no matchup %d or %d", ErrConsistency, phase, f[0], f[1])
		}
		expected[i] = slotPair{
			pair1:   a.WinnerPairID,
			pair2:   b.WinnerPairID,
			origin1: bracket.WinnerOrigin(phase, a.Ordinal),
			origin2: bracket.WinnerOrigin(phase, b.Ordinal),
		}
	}

	existing, err := e.matchups.ListMatchupsByPhase(ctx, stageID, next)
	if err != nil {
		return storeError("failed to list next phase", err)
	}
	if len(existing) == 0 {
		return e.createPhase(ctx, stageID, next, expected)
	}
	if len(existing) != len(expected) {
		return fmt.Errorf("%w: %s has %d matchups, want %d", ErrConsistency, next, len(existing), len(expected))
	}

	changed := false
	for i, want := range expected {
		ex := existing[i]
		if ex.SameSlots(want.pair1, want.pair2) {
			continue
		}
		changed = true
		if err := e.resetSlots(ctx, &ex, want); err != nil {
			return err
		}
	}
	if changed {
		return e.dropAfter(ctx, stageID, next)
	}
	return e.advance(ctx, stageID, tmpl, next)
}

func (e *BracketEngine) createPhase(ctx context.Context, stageID uuid.UUID, phase bracket.Phase, slots []slotPair) error {
	matchups := make([]bracket.Matchup, len(slots))
	matches := make([]bracket.Match, len(slots))
	for i, s := range slots {
		matchups[i] = bracket.Matchup{
			ID:      uuid.New(),
			StageID: stageID,
			Phase:   phase,
			Ordinal: i + 1,
			Pair1ID: s.pair1,
			Pair2ID: s.pair2,
			Origin1: s.origin1,
			Origin2: s.origin2,
			Status:  bracket.MatchupScheduled,
			MatchID: utils.Ptr(uuid.New()),
		}
		matches[i] = backingMatch(&matchups[i])
	}

	if err := e.matchups.CreateMatchups(ctx, matchups); err != nil {
		return storeError("failed to create phase", err)
	}
	if err := e.matches.CreateMatches(ctx, matches); err != nil {
		return storeError("failed to create phase matches", err)
	}

	e.logger.Info("knockout phase created", "stage_id", stageID, "phase", phase, "matchups", len(matchups))
	return nil
}

// resetSlots undoes whatever was played in the matchup and seats the new pairs
// with a fresh backing match.
func (e *BracketEngine) resetSlots(ctx context.Context, m *bracket.Matchup, want slotPair) error {
	if m.Status == bracket.MatchupFinished {
		if err := e.revertResult(ctx, m); err != nil {
			return err
		}
		if err := e.matchups.ClearResult(ctx, m.ID); err != nil {
			return storeError("failed to clear matchup result", err)
		}
	}
	if m.MatchID != nil {
		if err := e.matches.DeleteMatch(ctx, *m.MatchID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return storeError("failed to delete knockout match", err)
		}
	}

	matchID := uuid.New()
	m.Pair1ID, m.Pair2ID = want.pair1, want.pair2
	m.Origin1, m.Origin2 = want.origin1, want.origin2
	m.MatchID = &matchID
	if err := e.matchups.UpdateSlots(ctx, m); err != nil {
		return storeError("failed to update matchup slots", err)
	}
	if err := e.matches.CreateMatches(ctx, []bracket.Match{backingMatch(m)}); err != nil {
		return storeError("failed to create knockout match", err)
	}

	e.logger.Warn("knockout slot reset", "matchup_id", m.ID, "phase", m.Phase, "ordinal", m.Ordinal)
	return nil
}

// dropAfter removes every phase after the given one, reverting what was played.
func (e *BracketEngine) dropAfter(ctx context.Context, stageID uuid.UUID, phase bracket.Phase) error {
	for p, ok := bracket.NextPhase(phase); ok; p, ok = bracket.NextPhase(p) {
		matchups, err := e.matchups.ListMatchupsByPhase(ctx, stageID, p)
		if err != nil {
			return storeError("failed to list phase matchups", err)
		}
		if len(matchups) == 0 {
			return nil
		}

		var matchIDs []uuid.UUID
		for i := range matchups {
			if err := e.revertResult(ctx, &matchups[i]); err != nil {
				return err
			}
			if matchups[i].MatchID != nil {
				matchIDs = append(matchIDs, *matchups[i].MatchID)
			}
		}
		if err := e.matches.DeleteMatches(ctx, matchIDs); err != nil {
			return storeError("failed to delete phase matches", err)
		}
		if err := e.matchups.DeleteMatchupsByPhase(ctx, stageID, p); err != nil {
			return storeError("failed to delete phase", err)
		}

		e.logger.Warn("knockout phase dropped", "stage_id", stageID, "phase", p, "matchups", len(matchups))
	}
	return nil
}

// revertResult takes a finished matchup's result back out of the player stats.
func (e *BracketEngine) revertResult(ctx context.Context, m *bracket.Matchup) error {
	deltas, err := e.revertDeltas(ctx, m)
	if err != nil || len(deltas) == 0 {
		return err
	}
	if err := e.players.ApplyDeltas(ctx, m.StageID, deltas); err != nil {
		return storeError("failed to revert player stats", err)
	}
	return nil
}

func (e *BracketEngine) revertDeltas(ctx context.Context, m *bracket.Matchup) ([]store.PlayerDelta, error) {
	if m.Status != bracket.MatchupFinished || !m.HasBothPairs() {
		return nil, nil
	}
	outcome, err := bracket.Evaluate(m.Score)
	if err != nil {
		return nil, fmt.Errorf("%w: stored score of matchup %s: %w", ErrConsistency, m.ID, err)
	}

	p1, p2, err := loadPairs(ctx, e.pairs, *m.Pair1ID, *m.Pair2ID)
	if err != nil {
		return nil, storeError("failed to get matchup pairs", err)
	}
	return playerDeltas(p1, p2, outcome.Revert()), nil
}

func (e *BracketEngine) syncStageStatus(ctx context.Context, stageID uuid.UUID) error {
	finals, err := e.matchups.ListMatchupsByPhase(ctx, stageID, bracket.Final)
	if err != nil {
		return storeError("failed to list final", err)
	}

	status := bracket.StageKnockout
	if len(finals) == 1 && finals[0].Status == bracket.MatchupFinished {
		status = bracket.StageFinished
	}
	if err := e.stages.UpdateStageStatus(ctx, stageID, status); err != nil {
		return storeError("failed to update stage status", err)
	}
	return nil
}

// CancelBracket removes the whole knockout stage and reverts everything it
// added to the player stats.
func (e *BracketEngine) CancelBracket(ctx context.Context, stageID uuid.UUID) error {
	matchups, err := e.matchups.ListMatchups(ctx, stageID)
	if err != nil {
		return storeError("failed to list matchups", err)
	}
	if len(matchups) == 0 {
		return ErrNothingToCancel
	}

	var (
		mu     sync.Mutex
		deltas []store.PlayerDelta
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := range matchups {
		if matchups[i].Status != bracket.MatchupFinished {
			continue
		}
		g.Go(func() error {
			d, err := e.revertDeltas(gctx, &matchups[i])
			if err != nil {
				return err
			}
			mu.Lock()
			deltas = append(deltas, d...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if len(deltas) > 0 {
		if err := e.players.ApplyDeltas(ctx, stageID, deltas); err != nil {
			return storeError("failed to revert player stats", err)
		}
	}

	if err := e.matches.DeleteKnockoutMatches(ctx, stageID); err != nil {
		return storeError("failed to delete knockout matches", err)
	}
	if err := e.matchups.DeleteMatchups(ctx, stageID); err != nil {
		return storeError("failed to delete matchups", err)
	}

	classified, err := e.pairs.ListClassified(ctx, stageID)
	if err != nil {
		return storeError("failed to list classified pairs", err)
	}
	if err := markClassified(ctx, e.pairs, e.players, stageID, classified, false); err != nil {
		return err
	}
	if err := e.stages.UpdateStageStatus(ctx, stageID, bracket.StageGroups); err != nil {
		return storeError("failed to update stage status", err)
	}

	e.logger.Info("bracket cancelled", "stage_id", stageID, "matchups", len(matchups))
	return nil
}

func (e *BracketEngine) GetBracket(ctx context.Context, stageID uuid.UUID) ([]bracket.Matchup, error) {
	matchups, err := e.matchups.ListMatchups(ctx, stageID)
	if err != nil {
		return nil, storeError("failed to list matchups", err)
	}
	return matchups, nil
}
