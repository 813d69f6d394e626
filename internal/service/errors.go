package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AdamBeresnev/doubles-cup/internal/store"
)

// Error kinds. Every error returned by the engines matches one of these with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("requested resource not found")
	ErrConflict    = errors.New("operation conflicts with the current state")
	ErrConsistency = errors.New("internal consistency check failed")
	ErrStore       = errors.New("store operation failed")
)

var (
	ErrInvalidScore          = fmt.Errorf("%w: knockout results take exactly one set with a winner", ErrValidation)
	ErrNoGroups              = fmt.Errorf("%w: the stage has no groups", ErrValidation)
	ErrTooFewGroups          = fmt.Errorf("%w: a bracket needs at least 2 groups", ErrValidation)
	ErrTooManyGroups         = fmt.Errorf("%w: a bracket supports at most 8 groups", ErrValidation)
	ErrUnsupportedClassified = fmt.Errorf("%w: only 2 classified pairs per group are supported", ErrValidation)
	ErrNotGroupMatch         = fmt.Errorf("%w: match does not belong to a group", ErrValidation)
	ErrByeHasNoResult        = fmt.Errorf("%w: a bye cannot take a result", ErrValidation)
	ErrPairsPending          = fmt.Errorf("%w: matchup is still waiting for its pairs", ErrValidation)

	ErrLockedByBracket  = fmt.Errorf("%w: group results are locked once the bracket exists", ErrConflict)
	ErrBracketExists    = fmt.Errorf("%w: the bracket already exists", ErrConflict)
	ErrGroupsDrawn      = fmt.Errorf("%w: groups were already drawn", ErrConflict)
	ErrMatchesGenerated = fmt.Errorf("%w: group matches were already generated", ErrConflict)
	ErrStaleWrite       = fmt.Errorf("%w: the record changed while the result was being written", ErrConflict)

	ErrNothingToCancel = fmt.Errorf("%w: the stage has no bracket to cancel", ErrNotFound)
	ErrDistribution    = fmt.Errorf("%w: pairs assigned to groups do not add up", ErrConsistency)
	ErrCreationFailure = fmt.Errorf("%w: failed to create groups", ErrStore)
)

// IncompleteGroupsError lists the groups that still have matches to play.
type IncompleteGroupsError struct {
	Names []string
}

func (e *IncompleteGroupsError) Error() string {
	return fmt.Sprintf("not all groups are complete: %s", strings.Join(e.Names, ", "))
}

func (e *IncompleteGroupsError) Unwrap() error {
	return ErrValidation
}

// storeError translates a store failure into the service error kinds.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, store.ErrVersionConflict):
		return fmt.Errorf("%s: %w", op, ErrStaleWrite)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
}
