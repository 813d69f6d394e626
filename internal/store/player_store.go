package store

import (
	"context"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PlayerStore struct {
	db DBTX
}

func NewPlayerStore(db DBTX) *PlayerStore {
	return &PlayerStore{db: db}
}

func (s *PlayerStore) CreatePlayers(ctx context.Context, players []bracket.Player) error {
	if len(players) == 0 {
		return nil
	}
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO players (id, name) VALUES (:id, :name)`, players)
	return err
}

func (s *PlayerStore) GetPlayer(ctx context.Context, id uuid.UUID) (*bracket.Player, error) {
	var player bracket.Player
	if err := s.db.GetContext(ctx, &player, "SELECT * FROM players WHERE id = ?", id); err != nil {
		return nil, notFound(err)
	}
	return &player, nil
}

func (s *PlayerStore) ListPlayers(ctx context.Context, ids []uuid.UUID) ([]bracket.Player, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT * FROM players WHERE id IN (?) ORDER BY name ASC", ids)
	if err != nil {
		return nil, err
	}

	var players []bracket.Player
	err = s.db.SelectContext(ctx, &players, s.db.Rebind(query), args...)
	return players, err
}
