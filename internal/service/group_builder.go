package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdamBeresnev/doubles-cup/internal/bracket"
	"github.com/AdamBeresnev/doubles-cup/internal/store"
	"github.com/AdamBeresnev/doubles-cup/internal/utils"
	"github.com/google/uuid"
)

type GroupBuilder struct {
	groups GroupRepository
	pairs  PairRepository
	tx     Transactor
	logger *slog.Logger
}

func NewGroupBuilder(stores Stores, logger *slog.Logger) *GroupBuilder {
	return &GroupBuilder{groups: stores.Groups, pairs: stores.Pairs, tx: stores.Tx, logger: logger}
}

type GroupDraw struct {
	Group bracket.Group  `json:"group"`
	Pairs []bracket.Pair `json:"pairs"`
}

// BuildGroups splits the pairs into groups of three (one group of five for
// exactly five pairs). Pairs containing a seeded player are spread one per
// group first, the rest fill the remaining slots in input order.
func (b *GroupBuilder) BuildGroups(ctx context.Context, stageID uuid.UUID, pairs []bracket.Pair, seededPlayerIDs []uuid.UUID) ([]GroupDraw, error) {
	sizes, err := bracket.GroupSizes(len(pairs))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	seen := make(map[uuid.UUID]struct{}, len(pairs))
	for _, p := range pairs {
		if p.StageID != stageID {
			return nil, fmt.Errorf("%w: pair %s belongs to another stage", ErrValidation, p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: pair %s listed twice", ErrValidation, p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	existing, err := b.groups.ListGroups(ctx, stageID)
	if err != nil {
		return nil, storeError("failed to list groups", err)
	}
	if len(existing) > 0 {
		return nil, ErrGroupsDrawn
	}

	buckets := distribute(sizes, pairs, utils.Unique(seededPlayerIDs))

	placed := 0
	for i, bucket := range buckets {
		if len(bucket) != sizes[i] {
			return nil, fmt.Errorf("%w: group %d has %d pairs, want %d", ErrDistribution, i+1, len(bucket), sizes[i])
		}
		placed += len(bucket)
	}
	if placed != len(pairs) {
		return nil, fmt.Errorf("%w: placed %d of %d pairs", ErrDistribution, placed, len(pairs))
	}

	draws := make([]GroupDraw, len(buckets))
	groups := make([]bracket.Group, len(buckets))
	var assignments []store.GroupAssignment
	for i, bucket := range buckets {
		groups[i] = bracket.Group{
			ID:      uuid.New(),
			StageID: stageID,
			Name:    bracket.GroupName(i),
			Ordinal: i + 1,
		}
		for slot := range bucket {
			groupID := groups[i].ID
			bucket[slot].GroupID = &groupID
			bucket[slot].GroupSlot = slot + 1
			assignments = append(assignments, store.GroupAssignment{
				PairID:  bucket[slot].ID,
				GroupID: groupID,
				Slot:    slot + 1,
			})
		}
		draws[i] = GroupDraw{Group: groups[i], Pairs: bucket}
	}

	// Groups and assignments commit together.
	err = b.tx.InTx(ctx, func(tx Stores) error {
		if err := tx.Groups.CreateGroups(ctx, groups); err != nil {
			return err
		}
		return tx.Pairs.AssignGroups(ctx, assignments)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreationFailure, err)
	}

	b.logger.Info("groups drawn", "stage_id", stageID, "groups", len(groups), "pairs", len(pairs))
	return draws, nil
}

func distribute(sizes []int, pairs []bracket.Pair, seededPlayerIDs []uuid.UUID) [][]bracket.Pair {
	seeded := make(map[uuid.UUID]struct{}, len(seededPlayerIDs))
	for _, id := range seededPlayerIDs {
		seeded[id] = struct{}{}
	}

	var top, rest []bracket.Pair
	for _, p := range pairs {
		_, s1 := seeded[p.Player1ID]
		_, s2 := seeded[p.Player2ID]
		if s1 || s2 {
			top = append(top, p)
		} else {
			rest = append(rest, p)
		}
	}

	buckets := make([][]bracket.Pair, len(sizes))
	for i, size := range sizes {
		buckets[i] = make([]bracket.Pair, 0, size)
	}

	// Seeded pairs go round-robin over the groups, skipping full ones.
	next := 0
	for _, p := range top {
		for k := range sizes {
			g := (next + k) % len(sizes)
			if len(buckets[g]) < sizes[g] {
				buckets[g] = append(buckets[g], p)
				next = g + 1
				break
			}
		}
	}

	for g := range buckets {
		for len(buckets[g]) < sizes[g] && len(rest) > 0 {
			buckets[g] = append(buckets[g], rest[0])
			rest = rest[1:]
		}
	}

	return buckets
}
