package models

type StartGameRequest struct {
	Commitment string `json:"commitment" binding:"required"`
	Amount     uint64 `json:"amount" binding:"required"`
}

type RevealCellRequest struct {
	GameID string `json:"game_id" binding:"required"`
	X      *byte  `json:"x" binding:"required"`
	Y      *byte  `json:"y" binding:"required"`
	// Secret carries the committed value on the first reveal only; it must
	// be empty on every later reveal.
	Secret string `json:"secret"`
}

type CashoutRequest struct {
	GameID string `json:"game_id" binding:"required"`
}

type RevealResult struct {
	GameID        string `json:"game_id"`
	X             byte   `json:"x"`
	Y             byte   `json:"y"`
	IsMine        bool   `json:"is_mine"`
	Pot           uint64 `json:"pot"`
	RevealedCount int    `json:"revealed_count"`
	GameOver      bool   `json:"game_over"`
	Status        string `json:"status"`
}

type CashoutResult struct {
	GameID        string `json:"game_id"`
	Principal     string `json:"principal"`
	Payout        uint64 `json:"payout"`
	RevealedCount int    `json:"revealed_count"`
	Status        string `json:"status"`
}

type DelegateRequest struct {
	Delegate string `json:"delegate" binding:"required"`
}

type FulfillRequest struct {
	RequestID string `json:"request_id" binding:"required"`
	Value     string `json:"value" binding:"required"`
}

type ParamProposal struct {
	Param string `json:"param" binding:"required"`
	Value uint64 `json:"value"`
}

type ParamAction struct {
	Param string `json:"param" binding:"required"`
}

type VerifyRequest struct {
	ExternalRandom string `json:"external_random" binding:"required"`
	Secret         string `json:"secret" binding:"required"`
	Principal      string `json:"principal" binding:"required"`
	X              *byte  `json:"x"`
	Y              *byte  `json:"y"`
	Threshold      uint64 `json:"threshold"`
}
