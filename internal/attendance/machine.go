package attendance

import "fmt"

// Event drives a state change.
type Event string

const (
	EventImageEstimated Event = "image_estimated"
	EventImageReview    Event = "image_needs_review"
	EventNewQuote       Event = "new_quote_requested"
	EventCancelled      Event = "cancelled"
	EventDateReserved   Event = "date_reserved"
	EventOwnerApproved  Event = "owner_approved"
	EventOwnerRejected  Event = "owner_rejected"
	EventOwnerClosed    Event = "owner_closed"
)

// Transition returns the next state for ev in from, or ErrInvalidTransition.
//
// An image always starts a new quote, whatever the current state.
// Owner decisions apply from any state. Customer text only moves
// AGUARDANDO_DATA forward and reopens settled conversations. A quote
// waiting on the owner is never dropped by text.
func Transition(from State, ev Event) (State, error) {
	if _, err := ParseState(string(from)); err != nil {
		return "", err
	}

	switch ev {
	case EventImageEstimated:
		return StateAwaitingDate, nil
	case EventImageReview:
		return StateAwaitingOwner, nil
	case EventOwnerApproved, EventOwnerClosed:
		return StateClosed, nil
	case EventOwnerRejected:
		return StateEscalated, nil

	case EventCancelled:
		if from == StateAwaitingDate {
			return StateOpen, nil
		}
	case EventDateReserved:
		if from == StateAwaitingDate {
			return StateAwaitingOwner, nil
		}
	case EventNewQuote:
		switch from {
		case StateOpen, StateClosed, StateEscalated:
			return StateOpen, nil
		case StateAwaitingDate, StateAwaitingOwner:
			// pending quote; a new photo is the way to start over
		}
	}
	return "", fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
}
