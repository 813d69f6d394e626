package store

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/google/uuid"
)

const (
	applyPlayerDeltaQuery = `
		INSERT INTO player_stats
		(stage_id, player_id, matches_won, matches_lost, sets_won, sets_lost, games_won, games_lost, points)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (stage_id, player_id) DO UPDATE SET
		matches_won = matches_won + excluded.matches_won,
		matches_lost = matches_lost + excluded.matches_lost,
		sets_won = sets_won + excluded.sets_won,
		sets_lost = sets_lost + excluded.sets_lost,
		games_won = games_won + excluded.games_won,
		games_lost = games_lost + excluded.games_lost,
		points = points + excluded.points
	`
	setPlayerRankQuery = `
		INSERT INTO player_stats (stage_id, player_id, group_rank) VALUES (?, ?, ?)
		ON CONFLICT (stage_id, player_id) DO UPDATE SET group_rank = excluded.group_rank
	`
	setPlayerClassifiedQuery = `
		INSERT INTO player_stats (stage_id, player_id, classified) VALUES (?, ?, ?)
		ON CONFLICT (stage_id, player_id) DO UPDATE SET classified = excluded.classified
	`
)

// PlayerDelta is one signed stat change for a player within a stage.
type PlayerDelta struct {
	PlayerID uuid.UUID
	Delta    bracket.StatDelta
}

type PlayerRank struct {
	PlayerID uuid.UUID
	Rank     int
}

type PlayerStatsStore struct {
	db DBTX
}

func NewPlayerStatsStore(db DBTX) *PlayerStatsStore {
	return &PlayerStatsStore{db: db}
}

// ApplyDelta creates the row on first use, otherwise adds to it atomically.
func (s *PlayerStatsStore) ApplyDelta(ctx context.Context, stageID, playerID uuid.UUID, d bracket.StatDelta) error {
	_, err := s.db.ExecContext(ctx, applyPlayerDeltaQuery, stageID, playerID,
		d.MatchesWon, d.MatchesLost, d.SetsWon, d.SetsLost, d.GamesWon, d.GamesLost, d.Points)
	return err
}

func (s *PlayerStatsStore) ApplyDeltas(ctx context.Context, stageID uuid.UUID, deltas []PlayerDelta) error {
	return inTx(ctx, s.db, func(tx DBTX) error {
		for _, pd := range deltas {
			d := pd.Delta
			_, err := tx.ExecContext(ctx, applyPlayerDeltaQuery, stageID, pd.PlayerID,
				d.MatchesWon, d.MatchesLost, d.SetsWon, d.SetsLost, d.GamesWon, d.GamesLost, d.Points)
			if err != nil {
				return fmt.Errorf("failed to apply delta for player %s: %w", pd.PlayerID, err)
			}
		}
		return nil
	})
}

func (s *PlayerStatsStore) SetRanks(ctx context.Context, stageID uuid.UUID, ranks []PlayerRank) error {
	return inTx(ctx, s.db, func(tx DBTX) error {
		for _, r := range ranks {
			if _, err := tx.ExecContext(ctx, setPlayerRankQuery, stageID, r.PlayerID, r.Rank); err != nil {
				return fmt.Errorf("failed to rank player %s: %w", r.PlayerID, err)
			}
		}
		return nil
	})
}

func (s *PlayerStatsStore) SetClassified(ctx context.Context, stageID uuid.UUID, playerIDs []uuid.UUID, classified bool) error {
	return inTx(ctx, s.db, func(tx DBTX) error {
		for _, id := range playerIDs {
			if _, err := tx.ExecContext(ctx, setPlayerClassifiedQuery, stageID, id, classified); err != nil {
				return fmt.Errorf("failed to flag player %s: %w", id, err)
			}
		}
		return nil
	})
}

func (s *PlayerStatsStore) GetStats(ctx context.Context, stageID, playerID uuid.UUID) (*bracket.PlayerStats, error) {
	var stats bracket.PlayerStats
	err := s.db.GetContext(ctx, &stats, "SELECT * FROM player_stats WHERE stage_id = ? AND player_id = ?", stageID, playerID)
	if err != nil {
		return nil, notFound(err)
	}
	return &stats, nil
}

// ListStats orders players for the individual ranking.
func (s *PlayerStatsStore) ListStats(ctx context.Context, stageID uuid.UUID) ([]bracket.PlayerStats, error) {
	var stats []bracket.PlayerStats
	err := s.db.SelectContext(ctx, &stats, `SELECT * FROM player_stats WHERE stage_id = ?
		ORDER BY points DESC, (games_won - games_lost) DESC, (sets_won - sets_lost) DESC, games_won DESC`, stageID)
	return stats, err
}
