package bracket

import "fmt"

// ClassifiedPerGroup is the only qualification count the templates are drawn for.
const ClassifiedPerGroup = 2

type SlotTemplate struct {
	Home string
	// Empty for a bye
	Away string
}

func (s SlotTemplate) IsBye() bool {
	return s.Away == ""
}

// Template is the hand-drawn first phase for a given number of groups. Pairs
// from the same group sit in opposite halves, so they can only meet in the
// Final, and byes go to the best ranked position keys.
type Template struct {
	Groups     int
	FirstPhase Phase
	Slots      []SlotTemplate

	// Ordinals of the two first phase matchups whose winners meet in each
	// matchup of the following phase. Nil means sequential pairing.
	Remap [][2]int
}

var templates = map[int]Template{
	2: {
		Groups:     2,
		FirstPhase: Semifinal,
		Slots: []SlotTemplate{
			{"1A", "2B"},
			{"1B", "2A"},
		},
	},
	3: {
		Groups:     3,
		FirstPhase: Quarterfinal,
		Slots: []SlotTemplate{
			{"1A", ""},
			{"2B", "2C"},
			{"1B", ""},
			{"1C", "2A"},
		},
	},
	4: {
		Groups:     4,
		FirstPhase: Quarterfinal,
		Slots: []SlotTemplate{
			{"1A", "2B"},
			{"1C", "2D"},
			{"1B", "2A"},
			{"1D", "2C"},
		},
	},
	5: {
		Groups:     5,
		FirstPhase: RoundOf16,
		Slots: []SlotTemplate{
			{"1A", ""},
			{"1B", ""},
			{"1C", ""},
			{"1D", ""},
			{"1E", ""},
			{"2A", ""},
			{"2B", "2C"},
			{"2D", "2E"},
		},
		Remap: [][2]int{{1, 7}, {4, 5}, {2, 8}, {3, 6}},
	},
	6: {
		Groups:     6,
		FirstPhase: RoundOf16,
		Slots: []SlotTemplate{
			{"1A", ""},
			{"1B", ""},
			{"1C", ""},
			{"1D", ""},
			{"2B", "2F"},
			{"1E", "2C"},
			{"2A", "2E"},
			{"1F", "2D"},
		},
		Remap: [][2]int{{1, 5}, {4, 6}, {2, 7}, {3, 8}},
	},
	7: {
		Groups:     7,
		FirstPhase: RoundOf16,
		Slots: []SlotTemplate{
			{"1A", ""},
			{"1C", "2D"},
			{"1E", "2F"},
			{"1G", "2B"},
			{"1B", ""},
			{"1D", "2C"},
			{"1F", "2E"},
			{"2A", "2G"},
		},
	},
	8: {
		Groups:     8,
		FirstPhase: RoundOf16,
		Slots: []SlotTemplate{
			{"1A", "2B"},
			{"1C", "2D"},
			{"1E", "2F"},
			{"1G", "2H"},
			{"1B", "2A"},
			{"1D", "2C"},
			{"1F", "2E"},
			{"1H", "2G"},
		},
	},
}

func TemplateFor(groups int) (Template, bool) {
	t, ok := templates[groups]
	return t, ok
}

func (t Template) Byes() int {
	byes := 0
	for _, s := range t.Slots {
		if s.IsBye() {
			byes++
		}
	}
	return byes
}

// FeedsInto returns, for each matchup of the phase after `from`, the ordinals
// of the two matchups in `from` whose winners meet there.
func (t Template) FeedsInto(from Phase, count int) [][2]int {
	if from == t.FirstPhase && t.Remap != nil {
		return t.Remap
	}
	return SequentialFeeds(count)
}

// SequentialFeeds pairs 1-2, 3-4 and so on.
func SequentialFeeds(count int) [][2]int {
	feeds := make([][2]int, 0, count/2)
	for i := 1; i+1 <= count; i += 2 {
		feeds = append(feeds, [2]int{i, i + 1})
	}
	return feeds
}

func PositionKey(rank int, groupName string) string {
	return fmt.Sprintf("%d%s", rank, groupName)
}

func WinnerOrigin(phase Phase, ordinal int) string {
	return fmt.Sprintf("Winner %s %d", phase, ordinal)
}
