package bracket

import (
	"time"

	"github.com/google/uuid"
)

type Group struct {
	ID      uuid.UUID `db:"id" json:"id"`
	StageID uuid.UUID `db:"stage_id" json:"stage_id"`
	// Single letter, "A" for the first group
	Name    string `db:"name" json:"name"`
	Ordinal int    `db:"ordinal" json:"ordinal"`

	TotalMatches    int       `db:"total_matches" json:"total_matches"`
	FinishedMatches int       `db:"finished_matches" json:"finished_matches"`
	Complete        bool      `db:"complete" json:"complete"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// GroupName returns the letter for the zero based group index.
func GroupName(index int) string {
	if index < 26 {
		return string(rune('A' + index))
	}
	return GroupName(index/26-1) + string(rune('A'+index%26))
}
