package bracket

import "errors"

const (
	PointsForWin  = 3
	PointsForLoss = 0
)

var (
	ErrEmptyScore    = errors.New("score has no sets")
	ErrNegativeGames = errors.New("games in a set cannot be negative")
	ErrTiedSet       = errors.New("a set cannot end tied")
	ErrTiedMatch     = errors.New("both sides won the same number of sets")
)

// StatDelta is a signed change to an Aggregate caused by one match result.
type StatDelta struct {
	MatchesWon  int
	MatchesLost int
	SetsWon     int
	SetsLost    int
	GamesWon    int
	GamesLost   int
	Points      int
}

func (d StatDelta) Neg() StatDelta {
	return StatDelta{
		MatchesWon:  -d.MatchesWon,
		MatchesLost: -d.MatchesLost,
		SetsWon:     -d.SetsWon,
		SetsLost:    -d.SetsLost,
		GamesWon:    -d.GamesWon,
		GamesLost:   -d.GamesLost,
		Points:      -d.Points,
	}
}

func (d StatDelta) Add(o StatDelta) StatDelta {
	return StatDelta{
		MatchesWon:  d.MatchesWon + o.MatchesWon,
		MatchesLost: d.MatchesLost + o.MatchesLost,
		SetsWon:     d.SetsWon + o.SetsWon,
		SetsLost:    d.SetsLost + o.SetsLost,
		GamesWon:    d.GamesWon + o.GamesWon,
		GamesLost:   d.GamesLost + o.GamesLost,
		Points:      d.Points + o.Points,
	}
}

func (d StatDelta) IsZero() bool {
	return d == StatDelta{}
}

// Outcome is a scored result reduced to per-side deltas.
type Outcome struct {
	Pair1 StatDelta
	Pair2 StatDelta
	// 1 or 2
	WinnerSlot int
}

// ValidateScore checks that every set has a winner and the match has one too.
func ValidateScore(score Score) error {
	_, err := Evaluate(score)
	return err
}

// Evaluate computes the deltas for both sides. In every set the side with more
// games wins the set; the side with more sets wins the match.
func Evaluate(score Score) (Outcome, error) {
	var out Outcome
	if len(score) == 0 {
		return out, ErrEmptyScore
	}

	for _, set := range score {
		if set.Pair1 < 0 || set.Pair2 < 0 {
			return Outcome{}, ErrNegativeGames
		}
		if set.Pair1 == set.Pair2 {
			return Outcome{}, ErrTiedSet
		}

		out.Pair1.GamesWon += set.Pair1
		out.Pair1.GamesLost += set.Pair2
		out.Pair2.GamesWon += set.Pair2
		out.Pair2.GamesLost += set.Pair1

		if set.Pair1 > set.Pair2 {
			out.Pair1.SetsWon++
			out.Pair2.SetsLost++
		} else {
			out.Pair2.SetsWon++
			out.Pair1.SetsLost++
		}
	}

	switch {
	case out.Pair1.SetsWon > out.Pair2.SetsWon:
		out.WinnerSlot = 1
		out.Pair1.MatchesWon, out.Pair1.Points = 1, PointsForWin
		out.Pair2.MatchesLost, out.Pair2.Points = 1, PointsForLoss
	case out.Pair2.SetsWon > out.Pair1.SetsWon:
		out.WinnerSlot = 2
		out.Pair2.MatchesWon, out.Pair2.Points = 1, PointsForWin
		out.Pair1.MatchesLost, out.Pair1.Points = 1, PointsForLoss
	default:
		return Outcome{}, ErrTiedMatch
	}

	return out, nil
}

// Revert returns the outcome that undoes this one.
func (o Outcome) Revert() Outcome {
	return Outcome{Pair1: o.Pair1.Neg(), Pair2: o.Pair2.Neg(), WinnerSlot: o.WinnerSlot}
}

// NetChange is the delta that turns a stored result into a new one.
// A nil previous score means there was nothing to revert.
func NetChange(previous, next Score) (Outcome, error) {
	fresh, err := Evaluate(next)
	if err != nil {
		return Outcome{}, err
	}
	if previous == nil {
		return fresh, nil
	}

	old, err := Evaluate(previous)
	if err != nil {
		return Outcome{}, err
	}
	undo := old.Revert()
	return Outcome{
		Pair1:      undo.Pair1.Add(fresh.Pair1),
		Pair2:      undo.Pair2.Add(fresh.Pair2),
		WinnerSlot: fresh.WinnerSlot,
	}, nil
}
