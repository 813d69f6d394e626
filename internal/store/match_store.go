package store

import (
	"context"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const recordMatchResultQuery = `
	UPDATE matches SET
	status = :status,
	score = :score,
	winner_pair_id = :winner_pair_id,
	winner_name = :winner_name,
	version = version + 1
	WHERE id = :id AND version = :version
`

type MatchStore struct {
	db DBTX
}

func NewMatchStore(db DBTX) *MatchStore {
	return &MatchStore{db: db}
}

func (s *MatchStore) CreateMatches(ctx context.Context, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO matches (id, stage_id, group_id, matchup_id, pair_1_id, pair_2_id, status)
		VALUES (:id, :stage_id, :group_id, :matchup_id, :pair_1_id, :pair_2_id, :status)`, matches)
	return err
}

func (s *MatchStore) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	if err := s.db.GetContext(ctx, &match, "SELECT * FROM matches WHERE id = ?", id); err != nil {
		return nil, notFound(err)
	}
	return &match, nil
}

// ListMatchesByGroup filters on status unless it is empty.
func (s *MatchStore) ListMatchesByGroup(ctx context.Context, groupID uuid.UUID, status bracket.MatchStatus) ([]bracket.Match, error) {
	var matches []bracket.Match
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE group_id = ? ORDER BY rowid ASC", groupID)
	} else {
		err = s.db.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE group_id = ? AND status = ? ORDER BY rowid ASC", groupID, status)
	}
	return matches, err
}

func (s *MatchStore) ListMatchesByStage(ctx context.Context, stageID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := s.db.SelectContext(ctx, &matches, "SELECT * FROM matches WHERE stage_id = ? ORDER BY rowid ASC", stageID)
	return matches, err
}

// RecordResult writes the result only if nobody changed the match since it
// was read at m.Version. On success m.Version is the stored version.
func (s *MatchStore) RecordResult(ctx context.Context, m *bracket.Match) error {
	result, err := s.db.NamedExecContext(ctx, recordMatchResultQuery, m)
	if err != nil {
		return err
	}
	if err := checkAffectedRows(result, ErrVersionConflict); err != nil {
		return err
	}
	m.Version++
	return nil
}

func (s *MatchStore) DeleteMatch(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM matches WHERE id = ?", id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrNotFound)
}

func (s *MatchStore) DeleteMatches(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM matches WHERE id IN (?)", ids)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	return err
}

// DeleteKnockoutMatches removes every match of the stage that is not part of a group.
func (s *MatchStore) DeleteKnockoutMatches(ctx context.Context, stageID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM matches WHERE stage_id = ? AND group_id IS NULL", stageID)
	return err
}
