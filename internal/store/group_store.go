package store

import (
	"context"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/google/uuid"
)

type GroupStore struct {
	db DBTX
}

func NewGroupStore(db DBTX) *GroupStore {
	return &GroupStore{db: db}
}

func (s *GroupStore) CreateGroups(ctx context.Context, groups []bracket.Group) error {
	if len(groups) == 0 {
		return nil
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO stage_groups (id, stage_id, name, ordinal)
		VALUES (:id, :stage_id, :name, :ordinal)`, groups)
	return err
}

func (s *GroupStore) GetGroup(ctx context.Context, id uuid.UUID) (*bracket.Group, error) {
	var group bracket.Group
	if err := s.db.GetContext(ctx, &group, "SELECT * FROM stage_groups WHERE id = ?", id); err != nil {
		return nil, notFound(err)
	}
	return &group, nil
}

func (s *GroupStore) ListGroups(ctx context.Context, stageID uuid.UUID) ([]bracket.Group, error) {
	var groups []bracket.Group
	err := s.db.SelectContext(ctx, &groups, "SELECT * FROM stage_groups WHERE stage_id = ? ORDER BY ordinal ASC", stageID)
	return groups, err
}

func (s *GroupStore) SetTotalMatches(ctx context.Context, id uuid.UUID, total int) error {
	result, err := s.db.ExecContext(ctx, "UPDATE stage_groups SET total_matches = ? WHERE id = ?", total, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrNotFound)
}

func (s *GroupStore) UpdateProgress(ctx context.Context, id uuid.UUID, finished int, complete bool) error {
	result, err := s.db.ExecContext(ctx, "UPDATE stage_groups SET finished_matches = ?, complete = ? WHERE id = ?", finished, complete, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrNotFound)
}
