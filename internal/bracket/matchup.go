package bracket

import (
	"time"

	"github.com/google/uuid"
)

type Phase string

const (
	RoundOf16    Phase = "ROUND_OF_16"
	Quarterfinal Phase = "QUARTERFINAL"
	Semifinal    Phase = "SEMIFINAL"
	Final        Phase = "FINAL"
)

// Order sorts phases from the first round to the Final.
func (p Phase) Order() int {
	switch p {
	case RoundOf16:
		return 1
	case Quarterfinal:
		return 2
	case Semifinal:
		return 3
	case Final:
		return 4
	}
	return 0
}

func (p Phase) Valid() bool {
	return p.Order() > 0
}

type MatchupStatus string

const (
	MatchupBye       MatchupStatus = "bye"
	MatchupScheduled MatchupStatus = "scheduled"
	MatchupFinished  MatchupStatus = "finished"
)

// Matchup is one knockout slot. Each side carries an origin label such as "1A"
// or "Winner QUARTERFINAL 2" alongside the concrete pair, when known.
type Matchup struct {
	ID      uuid.UUID `db:"id" json:"id"`
	StageID uuid.UUID `db:"stage_id" json:"stage_id"`
	Phase   Phase     `db:"phase" json:"phase"`
	Ordinal int       `db:"ordinal" json:"ordinal"`

	Pair1ID *uuid.UUID `db:"pair_1_id" json:"pair_1_id,omitempty"`
	Pair2ID *uuid.UUID `db:"pair_2_id" json:"pair_2_id,omitempty"`
	Origin1 string     `db:"origin_1" json:"origin_1"`
	Origin2 string     `db:"origin_2" json:"origin_2"`

	Status       MatchupStatus `db:"status" json:"status"`
	WinnerPairID *uuid.UUID    `db:"winner_pair_id" json:"winner_pair_id,omitempty"`
	Score        Score         `db:"score" json:"score,omitempty"`

	// Scheduled match backing this matchup, nil for byes
	MatchID *uuid.UUID `db:"match_id" json:"match_id,omitempty"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Decided reports whether the matchup already has a winner.
func (m *Matchup) Decided() bool {
	return m.Status == MatchupFinished || m.Status == MatchupBye
}

func (m *Matchup) HasBothPairs() bool {
	return m.Pair1ID != nil && m.Pair2ID != nil
}

// SameSlots compares the concrete pairs against the expected ones.
func (m *Matchup) SameSlots(p1, p2 *uuid.UUID) bool {
	return sameID(m.Pair1ID, p1) && sameID(m.Pair2ID, p2)
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
