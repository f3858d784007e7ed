package entities

import "errors"

// DomainError is an expected, user-facing rejection. Every variant
// carries a stable machine-checkable code and a human-readable reason.
// Domain errors never leave partial side effects behind; anything else
// bubbling out of the engine is an infrastructure failure and must not
// be treated as a rejection of the request.
type DomainError struct {
	Code   string
	Reason string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Code + ": " + e.Reason
}

// The closed set of domain rejections. Callers match with errors.Is.
var (
	ErrInsufficientFunds       = &DomainError{Code: "insufficient_funds", Reason: "available balance is lower than the requested amount"}
	ErrSupplyExhausted         = &DomainError{Code: "supply_exhausted", Reason: "emission would exceed the currency supply cap"}
	ErrRoomNotFound            = &DomainError{Code: "room_not_found", Reason: "no room exists with that code"}
	ErrRoomFull                = &DomainError{Code: "room_full", Reason: "the room already has two players"}
	ErrNotYourTurn             = &DomainError{Code: "not_your_turn", Reason: "it is the opponent's turn to move"}
	ErrInvalidMove             = &DomainError{Code: "invalid_move", Reason: "the move is not legal in the current position"}
	ErrInvalidState            = &DomainError{Code: "invalid_state", Reason: "the room is not in a state that allows this action"}
	ErrNotParticipant          = &DomainError{Code: "not_participant", Reason: "the user is not seated in this room"}
	ErrInvalidStake            = &DomainError{Code: "invalid_stake", Reason: "the stake amount is outside the allowed range"}
	ErrCodeGenerationExhausted = &DomainError{Code: "code_generation_exhausted", Reason: "could not generate a unique room code"}
)

// IsDomainError reports whether err is (or wraps) a domain rejection
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// DomainCode extracts the stable machine code from err, or "" when err
// is not a domain rejection
func DomainCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
