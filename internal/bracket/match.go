package bracket

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchFinished  MatchStatus = "finished"
)

// SetScore holds the games won by each side in one set.
type SetScore struct {
	Pair1 int `json:"pair1"`
	Pair2 int `json:"pair2"`
}

// Score is the set-by-set result, stored as a JSON array.
type Score []SetScore

func (s Score) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal([]SetScore(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Score) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), s)
	case []byte:
		return json.Unmarshal(v, s)
	default:
		return fmt.Errorf("cannot scan %T into Score", src)
	}
}

type Match struct {
	ID      uuid.UUID `db:"id" json:"id"`
	StageID uuid.UUID `db:"stage_id" json:"stage_id"`

	// Exactly one of these is set: group stage matches belong to a group,
	// knockout matches back a matchup.
	GroupID   *uuid.UUID `db:"group_id" json:"group_id,omitempty"`
	MatchupID *uuid.UUID `db:"matchup_id" json:"matchup_id,omitempty"`

	Pair1ID uuid.UUID `db:"pair_1_id" json:"pair_1_id"`
	Pair2ID uuid.UUID `db:"pair_2_id" json:"pair_2_id"`

	Status       MatchStatus `db:"status" json:"status"`
	Score        Score       `db:"score" json:"score,omitempty"`
	WinnerPairID *uuid.UUID  `db:"winner_pair_id" json:"winner_pair_id,omitempty"`
	WinnerName   *string     `db:"winner_name" json:"winner_name,omitempty"`

	// Bumped on every result write, used for compare-and-swap
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (m *Match) IsFinished() bool {
	return m.Status == MatchFinished
}

// Involves reports whether both pairs are the two sides of this match, in any order.
func (m *Match) Involves(a, b uuid.UUID) bool {
	return (m.Pair1ID == a && m.Pair2ID == b) || (m.Pair1ID == b && m.Pair2ID == a)
}
