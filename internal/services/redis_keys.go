package services

import "time"

const (
	KeyWallet         = "wallet:%s"
	KeyGameRecord     = "game:record:%s"
	KeyActiveGames    = "principal:%s:active_games"
	KeyFinishedGames  = "principal:%s:finished_games"
	KeyTransaction    = "transaction:%s"
	KeyTransactionLog = "principal:%s:transactions"
	KeyRateLimit      = "ratelimit:%s:%s"

	// Game records persist indefinitely for audit; only the per-principal
	// indexes are trimmed.
	TTLTransaction = 90 * 24 * time.Hour

	DefaultRateLimitStart   = 30  // starts per minute
	DefaultRateLimitReveal  = 120 // reveals per minute
	DefaultRateLimitCashout = 60  // cashouts per minute
)
