package event

import "time"

const (
	EventGameRequested      = "game.requested"
	EventRandomnessReceived = "game.randomness"
	EventSecretRevealed     = "game.secret_revealed"
	EventCellRevealed       = "game.cell_revealed"
	EventGameEnded          = "game.ended"
	EventDelegateRegistered = "session.delegate_registered"
	EventDelegateRevoked    = "session.delegate_revoked"
	EventParamProposed      = "params.proposed"
	EventParamApplied       = "params.applied"
)

type GameRequested struct {
	GameID    string `json:"game_id"`
	Principal string `json:"principal"`
	Wager     uint64 `json:"wager"`
	Fee       uint64 `json:"fee"`
}

type RandomnessReceived struct {
	GameID    string `json:"game_id"`
	Principal string `json:"principal"`
}

type SecretRevealed struct {
	GameID    string `json:"game_id"`
	Principal string `json:"principal"`
}

type CellRevealed struct {
	GameID    string `json:"game_id"`
	Principal string `json:"principal"`
	X         byte   `json:"x"`
	Y         byte   `json:"y"`
	IsMine    bool   `json:"is_mine"`
	Pot       uint64 `json:"pot"`
}

type GameEnded struct {
	GameID    string `json:"game_id"`
	Principal string `json:"principal"`
	Won       bool   `json:"won"`
	Payout    uint64 `json:"payout"`
}

type DelegateChanged struct {
	Principal string `json:"principal"`
	Delegate  string `json:"delegate"`
}

type ParamChanged struct {
	Param       string    `json:"param"`
	Value       uint64    `json:"value"`
	EffectiveAt time.Time `json:"effective_at,omitempty"`
}
