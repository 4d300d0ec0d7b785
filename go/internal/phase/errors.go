package phase

import "errors"

var (
	ErrNoRound         = errors.New("no active round")
	ErrRoundChanged    = errors.New("round changed before the action was taken")
	ErrNotChoosing     = errors.New("not choosing an action")
	ErrSubmitInFlight  = errors.New("an action submission is already in flight")
	ErrNotComposing    = errors.New("not composing a message")
	ErrMessageInFlight = errors.New("a message is already being sent")
	ErrInvalidMessage  = errors.New("message must be 1 to 3 symbols")
	ErrInvalidChoice   = errors.New("invalid choice")
)
