// Package lifecycle defines the booking state machine.
//
//	pending   -> confirmed | expired | cancelled
//	confirmed -> completed | cancelled
//
// expired, cancelled and completed are terminal. Nothing re-enters pending.
package lifecycle

import (
	"errors"
	"fmt"

	"urutibiz/pkg/model"
)

var ErrIllegalTransition = errors.New("illegal booking status transition")

var edges = map[model.BookingStatus][]model.BookingStatus{
	model.BookingStatusPending: {
		model.BookingStatusConfirmed,
		model.BookingStatusExpired,
		model.BookingStatusCancelled,
	},
	model.BookingStatusConfirmed: {
		model.BookingStatusCompleted,
		model.BookingStatusCancelled,
	},
}

// Targets returns the statuses reachable from s in one step.
func Targets(s model.BookingStatus) []model.BookingStatus {
	out := make([]model.BookingStatus, len(edges[s]))
	copy(out, edges[s])
	return out
}

// Sources returns every status that may move to target. Repositories use it as
// the status guard of a conditional update.
func Sources(target model.BookingStatus) []model.BookingStatus {
	var out []model.BookingStatus
	for _, from := range []model.BookingStatus{model.BookingStatusPending, model.BookingStatusConfirmed} {
		if CanTransition(from, target) {
			out = append(out, from)
		}
	}
	return out
}

func CanTransition(from, to model.BookingStatus) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(s model.BookingStatus) bool {
	return s.Valid() && len(edges[s]) == 0
}

func Validate(from, to model.BookingStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}
