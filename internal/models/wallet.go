package models

import "time"

type Wallet struct {
	Address      string `json:"address" redis:"address"`
	Balance      uint64 `json:"balance" redis:"balance"`
	TotalWagered uint64 `json:"total_wagered" redis:"total_wagered"`
	TotalWon     uint64 `json:"total_won" redis:"total_won"`
}

type TransactionType string

const (
	TransactionTypeWager  TransactionType = "wager"
	TransactionTypePayout TransactionType = "payout"
	TransactionTypeLoss   TransactionType = "loss"
)

type Transaction struct {
	ID          string          `json:"id" redis:"id"`
	Address     string          `json:"address" redis:"address"`
	Type        TransactionType `json:"type" redis:"type"`
	Amount      uint64          `json:"amount" redis:"amount"`
	GameID      string          `json:"game_id,omitempty" redis:"game_id"`
	Description string          `json:"description" redis:"description"`
	CreatedAt   time.Time       `json:"created_at" redis:"created_at"`
}

type BalanceResponse struct {
	Balance      uint64 `json:"balance"`
	TotalWagered uint64 `json:"total_wagered"`
	TotalWon     uint64 `json:"total_won"`
}
