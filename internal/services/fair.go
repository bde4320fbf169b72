package services

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"

	"minevault-backend/internal/models"
)

// ThresholdBase is the denominator for all basis-point parameters: mine
// probability, reward multiplier and the cell verdict modulus.
const ThresholdBase = 10000

// CommitmentFor hashes a hex-encoded 32-byte secret into the commitment a
// player submits before the secret is known to anyone else.
func CommitmentFor(secretHex string) (string, error) {
	secret, err := decode32(secretHex)
	if err != nil {
		return "", fmt.Errorf("invalid secret: %v", err)
	}
	sum := sha256.Sum256(secret)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyCommitment reports whether the revealed secret hashes to the
// commitment stored at game creation.
func VerifyCommitment(secretHex, commitmentHex string) bool {
	computed, err := CommitmentFor(secretHex)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(commitmentHex)) == 1
}

// DeriveSeed binds the gateway's random value, the player secret and the
// principal's identity into the per-game seed. Including the principal
// keeps a third party who learns the external value first from replaying
// the reveal on its own game.
func DeriveSeed(externalRandomHex, secretHex, principal string) (string, error) {
	random, err := decode32(externalRandomHex)
	if err != nil {
		return "", fmt.Errorf("invalid external random: %v", err)
	}
	secret, err := decode32(secretHex)
	if err != nil {
		return "", fmt.Errorf("invalid secret: %v", err)
	}

	h := sha256.New()
	h.Write(random)
	h.Write(secret)
	h.Write([]byte(principal))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CellIsMine is the deterministic verdict for one cell. The hash output is
// read as a big unsigned integer; the cell is a mine iff its value mod
// ThresholdBase falls under the probability threshold in effect on the
// call. Identical (seed, x, y, threshold) inputs always agree.
func CellIsMine(seedHex string, x, y byte, threshold uint64) (bool, error) {
	if int(x) >= models.GridSize || int(y) >= models.GridSize {
		return false, models.ErrInvalidCoordinate
	}
	seed, err := decode32(seedHex)
	if err != nil {
		return false, fmt.Errorf("invalid seed: %v", err)
	}

	h := sha256.New()
	h.Write(seed)
	h.Write([]byte{x, y})
	sum := h.Sum(nil)

	value := new(big.Int).SetBytes(sum)
	value.Mod(value, big.NewInt(ThresholdBase))
	return value.Uint64() < threshold, nil
}

func decode32(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	return b, nil
}
