package store

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	applyPairDeltaQuery = `
		UPDATE pairs SET
		matches_won = matches_won + ?,
		matches_lost = matches_lost + ?,
		sets_won = sets_won + ?,
		sets_lost = sets_lost + ?,
		games_won = games_won + ?,
		games_lost = games_lost + ?,
		points = points + ?
		WHERE id = ?
	`
	assignGroupQuery = "UPDATE pairs SET group_id = ?, group_slot = ? WHERE id = ?"
	updateRankQuery  = "UPDATE pairs SET group_rank = ? WHERE id = ?"
)

// GroupAssignment places a pair at a slot inside a group.
type GroupAssignment struct {
	PairID  uuid.UUID
	GroupID uuid.UUID
	Slot    int
}

type PairRank struct {
	PairID uuid.UUID
	Rank   int
}

type PairStore struct {
	db DBTX
}

func NewPairStore(db DBTX) *PairStore {
	return &PairStore{db: db}
}

func (s *PairStore) CreatePairs(ctx context.Context, pairs []bracket.Pair) error {
	if len(pairs) == 0 {
		return nil
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO pairs (id, stage_id, player_1_id, player_2_id, name)
		VALUES (:id, :stage_id, :player_1_id, :player_2_id, :name)`, pairs)
	return err
}

func (s *PairStore) GetPair(ctx context.Context, id uuid.UUID) (*bracket.Pair, error) {
	var pair bracket.Pair
	if err := s.db.GetContext(ctx, &pair, "SELECT * FROM pairs WHERE id = ?", id); err != nil {
		return nil, notFound(err)
	}
	return &pair, nil
}

func (s *PairStore) ListPairsByGroup(ctx context.Context, groupID uuid.UUID) ([]bracket.Pair, error) {
	var pairs []bracket.Pair
	err := s.db.SelectContext(ctx, &pairs, "SELECT * FROM pairs WHERE group_id = ? ORDER BY group_slot ASC", groupID)
	return pairs, err
}

// ListRankedByGroup returns the group's pairs best rank first.
func (s *PairStore) ListRankedByGroup(ctx context.Context, groupID uuid.UUID) ([]bracket.Pair, error) {
	var pairs []bracket.Pair
	err := s.db.SelectContext(ctx, &pairs, `SELECT * FROM pairs WHERE group_id = ?
		ORDER BY CASE WHEN group_rank = 0 THEN 1 ELSE 0 END, group_rank ASC, group_slot ASC`, groupID)
	return pairs, err
}

func (s *PairStore) ListPairsByStage(ctx context.Context, stageID uuid.UUID) ([]bracket.Pair, error) {
	var pairs []bracket.Pair
	err := s.db.SelectContext(ctx, &pairs, "SELECT * FROM pairs WHERE stage_id = ? ORDER BY rowid ASC", stageID)
	return pairs, err
}

func (s *PairStore) AssignGroups(ctx context.Context, assignments []GroupAssignment) error {
	return inTx(ctx, s.db, func(tx DBTX) error {
		for _, a := range assignments {
			result, err := tx.ExecContext(ctx, assignGroupQuery, a.GroupID, a.Slot, a.PairID)
			if err != nil {
				return fmt.Errorf("failed to assign pair %s: %w", a.PairID, err)
			}
			if err := checkAffectedRows(result, ErrNotFound); err != nil {
				return fmt.Errorf("pair %s: %w", a.PairID, err)
			}
		}
		return nil
	})
}

// ApplyDelta adds a signed delta to the pair aggregate in one atomic statement.
func (s *PairStore) ApplyDelta(ctx context.Context, pairID uuid.UUID, d bracket.StatDelta) error {
	result, err := s.db.ExecContext(ctx, applyPairDeltaQuery,
		d.MatchesWon, d.MatchesLost, d.SetsWon, d.SetsLost, d.GamesWon, d.GamesLost, d.Points, pairID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrNotFound)
}

func (s *PairStore) UpdateRanks(ctx context.Context, ranks []PairRank) error {
	return inTx(ctx, s.db, func(tx DBTX) error {
		for _, r := range ranks {
			if _, err := tx.ExecContext(ctx, updateRankQuery, r.Rank, r.PairID); err != nil {
				return fmt.Errorf("failed to rank pair %s: %w", r.PairID, err)
			}
		}
		return nil
	})
}

func (s *PairStore) SetClassified(ctx context.Context, pairIDs []uuid.UUID, classified bool) error {
	if len(pairIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In("UPDATE pairs SET classified = ? WHERE id IN (?)", classified, pairIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	return err
}

// ListClassified returns the pairs of the stage that reached the bracket.
func (s *PairStore) ListClassified(ctx context.Context, stageID uuid.UUID) ([]bracket.Pair, error) {
	var pairs []bracket.Pair
	err := s.db.SelectContext(ctx, &pairs, "SELECT * FROM pairs WHERE stage_id = ? AND classified = 1", stageID)
	return pairs, err
}
