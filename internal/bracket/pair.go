package bracket

import (
	"time"

	"github.com/google/uuid"
)

type Player struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Aggregate is the running record of a pair, or of a player inside a stage.
type Aggregate struct {
	MatchesWon  int `db:"matches_won" json:"matches_won"`
	MatchesLost int `db:"matches_lost" json:"matches_lost"`
	SetsWon     int `db:"sets_won" json:"sets_won"`
	SetsLost    int `db:"sets_lost" json:"sets_lost"`
	GamesWon    int `db:"games_won" json:"games_won"`
	GamesLost   int `db:"games_lost" json:"games_lost"`
	Points      int `db:"points" json:"points"`
}

func (a Aggregate) GameDiff() int {
	return a.GamesWon - a.GamesLost
}

func (a Aggregate) SetDiff() int {
	return a.SetsWon - a.SetsLost
}

func (a *Aggregate) Apply(d StatDelta) {
	a.MatchesWon += d.MatchesWon
	a.MatchesLost += d.MatchesLost
	a.SetsWon += d.SetsWon
	a.SetsLost += d.SetsLost
	a.GamesWon += d.GamesWon
	a.GamesLost += d.GamesLost
	a.Points += d.Points
}

type Pair struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	StageID   uuid.UUID  `db:"stage_id" json:"stage_id"`
	GroupID   *uuid.UUID `db:"group_id" json:"group_id,omitempty"`
	GroupSlot int        `db:"group_slot" json:"group_slot"`
	Player1ID uuid.UUID  `db:"player_1_id" json:"player_1_id"`
	Player2ID uuid.UUID  `db:"player_2_id" json:"player_2_id"`
	Name      string     `db:"name" json:"name"`

	Aggregate

	// 0 until the first standings recompute
	GroupRank  int       `db:"group_rank" json:"group_rank"`
	Classified bool      `db:"classified" json:"classified"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

func (p *Pair) PlayerIDs() []uuid.UUID {
	return []uuid.UUID{p.Player1ID, p.Player2ID}
}

func (p *Pair) HasPlayer(id uuid.UUID) bool {
	return p.Player1ID == id || p.Player2ID == id
}

// PlayerStats mirrors the pair aggregate for one player, for individual ranking.
type PlayerStats struct {
	StageID  uuid.UUID `db:"stage_id" json:"stage_id"`
	PlayerID uuid.UUID `db:"player_id" json:"player_id"`

	Aggregate

	GroupRank  int  `db:"group_rank" json:"group_rank"`
	Classified bool `db:"classified" json:"classified"`
}
