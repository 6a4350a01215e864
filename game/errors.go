/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

// Error is returned for every failure a caller can recover from by changing its
// request. Callers match categories with errors.Is and recover the Error itself
// with errors.As.
type Error struct {
	msg      string
	notFound bool
}

func (e *Error) Error() string {
	return e.msg
}

// NotFound reports whether the error refers to a room that does not exist.
func (e *Error) NotFound() bool {
	return e.notFound
}

var (
	ErrRoomNotFound     = &Error{msg: "room code does not exist or has expired", notFound: true}
	ErrMissingRoomCode  = &Error{msg: "please enter a room code"}
	ErrGameNotStarted   = &Error{msg: "game not started"}
	ErrInvalidRequest   = &Error{msg: "invalid request body"}
	ErrInvalidPlayers   = &Error{msg: "invalid player list"}
	ErrInvalidScoreType = &Error{msg: "score must be an integer"}
	ErrScoreSumNotZero  = &Error{msg: "scores must sum to 0"}
	ErrNoRoundsToUndo   = &Error{msg: "no rounds to undo"}
	ErrInvalidAdminMode = &Error{msg: "unknown admin mode"}
	ErrIndexOutOfRange  = &Error{msg: "admin index out of range"}
	ErrDivisionByZero   = &Error{msg: "rotation interval must be at least 1"}
	ErrEmptyPlayerList  = &Error{msg: "player list is empty"}
)
