package store

import (
	"context"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/google/uuid"
)

const (
	phaseOrder = `CASE phase
		WHEN 'ROUND_OF_16' THEN 1
		WHEN 'QUARTERFINAL' THEN 2
		WHEN 'SEMIFINAL' THEN 3
		WHEN 'FINAL' THEN 4
	END`

	recordMatchupResultQuery = `
		UPDATE matchups SET
		status = :status,
		score = :score,
		winner_pair_id = :winner_pair_id,
		version = version + 1
		WHERE id = :id AND version = :version
	`
	updateSlotsQuery = `
		UPDATE matchups SET
		pair_1_id = :pair_1_id,
		pair_2_id = :pair_2_id,
		origin_1 = :origin_1,
		origin_2 = :origin_2,
		match_id = :match_id,
		version = version + 1
		WHERE id = :id
	`
	clearResultQuery = `
		UPDATE matchups SET
		status = 'scheduled',
		score = NULL,
		winner_pair_id = NULL,
		version = version + 1
		WHERE id = ?
	`
)

type MatchupStore struct {
	db DBTX
}

func NewMatchupStore(db DBTX) *MatchupStore {
	return &MatchupStore{db: db}
}

func (s *MatchupStore) CreateMatchups(ctx context.Context, matchups []bracket.Matchup) error {
	if len(matchups) == 0 {
		return nil
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO matchups
		(id, stage_id, phase, ordinal, pair_1_id, pair_2_id, origin_1, origin_2, status, winner_pair_id, score, match_id)
		VALUES (:id, :stage_id, :phase, :ordinal, :pair_1_id, :pair_2_id, :origin_1, :origin_2, :status, :winner_pair_id, :score, :match_id)`, matchups)
	return err
}

func (s *MatchupStore) GetMatchup(ctx context.Context, stageID, id uuid.UUID) (*bracket.Matchup, error) {
	var m bracket.Matchup
	if err := s.db.GetContext(ctx, &m, "SELECT * FROM matchups WHERE id = ? AND stage_id = ?", id, stageID); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// ListMatchups returns the whole bracket from the first phase to the Final.
func (s *MatchupStore) ListMatchups(ctx context.Context, stageID uuid.UUID) ([]bracket.Matchup, error) {
	var matchups []bracket.Matchup
	err := s.db.SelectContext(ctx, &matchups, "SELECT * FROM matchups WHERE stage_id = ? ORDER BY "+phaseOrder+" ASC, ordinal ASC", stageID)
	return matchups, err
}

func (s *MatchupStore) ListMatchupsByPhase(ctx context.Context, stageID uuid.UUID, phase bracket.Phase) ([]bracket.Matchup, error) {
	var matchups []bracket.Matchup
	err := s.db.SelectContext(ctx, &matchups, "SELECT * FROM matchups WHERE stage_id = ? AND phase = ? ORDER BY ordinal ASC", stageID, phase)
	return matchups, err
}

func (s *MatchupStore) CountMatchups(ctx context.Context, stageID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM matchups WHERE stage_id = ?", stageID)
	return count, err
}

// RecordResult is a compare-and-swap on m.Version, like MatchStore.RecordResult.
func (s *MatchupStore) RecordResult(ctx context.Context, m *bracket.Matchup) error {
	result, err := s.db.NamedExecContext(ctx, recordMatchupResultQuery, m)
	if err != nil {
		return err
	}
	if err := checkAffectedRows(result, ErrVersionConflict); err != nil {
		return err
	}
	m.Version++
	return nil
}

func (s *MatchupStore) UpdateSlots(ctx context.Context, m *bracket.Matchup) error {
	result, err := s.db.NamedExecContext(ctx, updateSlotsQuery, m)
	if err != nil {
		return err
	}
	if err := checkAffectedRows(result, ErrNotFound); err != nil {
		return err
	}
	m.Version++
	return nil
}

func (s *MatchupStore) ClearResult(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, clearResultQuery, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrNotFound)
}

func (s *MatchupStore) DeleteMatchupsByPhase(ctx context.Context, stageID uuid.UUID, phase bracket.Phase) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM matchups WHERE stage_id = ? AND phase = ?", stageID, phase)
	return err
}

func (s *MatchupStore) DeleteMatchups(ctx context.Context, stageID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM matchups WHERE stage_id = ?", stageID)
	return err
}
