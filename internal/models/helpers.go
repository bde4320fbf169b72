package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

// GenerateSecret draws a fresh 32-byte player secret. Callers commit to
// its sha256 before the game starts and reveal it on the first move.
func GenerateSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secret: %v", err)
	}
	return hex.EncodeToString(bytes), nil
}

func NewWallet(address string, startingBalance uint64) *Wallet {
	return &Wallet{
		Address: address,
		Balance: startingBalance,
	}
}
