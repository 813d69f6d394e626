package bracket

import (
	"errors"
	"math"
)

var (
	ErrTooFewPairs      = errors.New("at least 3 pairs are needed to form a group")
	ErrTooFewClassified = errors.New("at least 2 classified pairs are needed for a bracket")
	ErrNotPowerOfTwo    = errors.New("bracket size must be a power of two")
)

// GroupSizes splits the pairs into groups of 3. The remainder turns trailing
// groups into groups of 4, except for exactly 5 pairs which form a single group.
func GroupSizes(totalPairs int) ([]int, error) {
	if totalPairs == 5 {
		return []int{5}, nil
	}
	if totalPairs < 3 {
		return nil, ErrTooFewPairs
	}

	count := totalPairs / 3
	remainder := totalPairs % 3
	if remainder > count {
		return nil, ErrTooFewPairs
	}

	sizes := make([]int, count)
	for i := range sizes {
		sizes[i] = 3
	}
	for i := 0; i < remainder; i++ {
		sizes[count-1-i]++
	}

	return sizes, nil
}

type ByeInfo struct {
	BracketSize       int
	MustPlay          int
	Byes              int
	FirstRoundMatches int
}

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func NextPowerOfTwo(count int) int {
	if count <= 0 {
		return 0
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

func ByeMath(classified int) (ByeInfo, error) {
	if classified < 2 {
		return ByeInfo{}, ErrTooFewClassified
	}

	size := NextPowerOfTwo(classified)
	mustPlay := (classified - size/2) * 2

	return ByeInfo{
		BracketSize:       size,
		MustPlay:          mustPlay,
		Byes:              classified - mustPlay,
		FirstRoundMatches: mustPlay / 2,
	}, nil
}

func FirstPhaseFor(classified int) Phase {
	switch {
	case classified > 8:
		return RoundOf16
	case classified > 4:
		return Quarterfinal
	case classified > 2:
		return Semifinal
	default:
		return Final
	}
}

func RoundRobinCount(n int) int {
	return n * (n - 1) / 2
}

// NextPhase returns false after the Final.
func NextPhase(p Phase) (Phase, bool) {
	switch p {
	case RoundOf16:
		return Quarterfinal, true
	case Quarterfinal:
		return Semifinal, true
	case Semifinal:
		return Final, true
	}
	return "", false
}

// SeedOrder returns the classic bracket line-up for n seeds, where the two
// best seeds can only meet in the last round.
func SeedOrder(n int) ([]int, error) {
	if n < 1 || n&(n-1) != 0 {
		return nil, ErrNotPowerOfTwo
	}
	if n == 1 {
		return []int{1}, nil
	}

	half, err := SeedOrder(n / 2)
	if err != nil {
		return nil, err
	}

	order := make([]int, 0, n)
	for _, seed := range half {
		order = append(order, seed, n+1-seed)
	}
	return order, nil
}
