package models

import "errors"

// Error kinds for the game engine. Every precondition violation aborts the
// whole operation with no partial effect; callers discriminate with
// errors.Is to decide whether a retry can ever succeed (RandomnessNotReady
// can, CommitMismatch never will).
var (
	ErrInsufficientPayment = errors.New("payment does not cover the randomness fee")
	ErrZeroWager           = errors.New("net wager is zero")
	ErrDuplicateID         = errors.New("game id already in use")
	ErrGameNotFound        = errors.New("game not found")
	ErrGameFinished        = errors.New("game already finished")
	ErrRandomnessNotReady  = errors.New("randomness not yet fulfilled")
	ErrCommitMismatch      = errors.New("secret does not match commitment")
	ErrAlreadyRevealed     = errors.New("secret already revealed")
	ErrSeedNotReady        = errors.New("seed not yet derived")
	ErrInvalidCoordinate   = errors.New("coordinate out of bounds")
	ErrCellAlreadyRevealed = errors.New("cell already revealed")
	ErrAlreadyLost         = errors.New("game already lost")
	ErrUnauthorized        = errors.New("caller not authorized for this game")
	ErrNotYourDelegate     = errors.New("delegate not registered by caller")
	ErrSelfDelegation      = errors.New("cannot delegate to yourself")
	ErrZeroDelegate        = errors.New("delegate address is empty")
	ErrTransferFailed      = errors.New("payout transfer failed")
	ErrNoPendingChange     = errors.New("no pending change for parameter")
	ErrTimelockNotElapsed  = errors.New("timelock has not elapsed")
	ErrOutOfRange          = errors.New("value outside governed bounds")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
