package bracket

import (
	"time"

	"github.com/google/uuid"
)

type StageStatus string

const (
	StageGroups   StageStatus = "groups"
	StageKnockout StageStatus = "knockout"
	StageFinished StageStatus = "finished"
)

// Stage is one two-phase competition: round-robin groups, then the knockout bracket.
type Stage struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	Name      string      `db:"name" json:"name"`
	Status    StageStatus `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}
