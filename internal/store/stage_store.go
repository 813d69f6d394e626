package store

import (
	"context"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/google/uuid"
)

type StageStore struct {
	db DBTX
}

func NewStageStore(db DBTX) *StageStore {
	return &StageStore{db: db}
}

func (s *StageStore) CreateStage(ctx context.Context, stage *bracket.Stage) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO stages (id, name, status)
        VALUES (:id, :name, :status)`, stage)
	return err
}

func (s *StageStore) GetStage(ctx context.Context, id uuid.UUID) (*bracket.Stage, error) {
	var stage bracket.Stage
	err := s.db.GetContext(ctx, &stage, "SELECT * FROM stages WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err)
	}
	return &stage, nil
}

func (s *StageStore) UpdateStageStatus(ctx context.Context, id uuid.UUID, status bracket.StageStatus) error {
	result, err := s.db.ExecContext(ctx, "UPDATE stages SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrNotFound)
}
