package models

import "time"

// GridSize is the fixed board dimension. Cells are addressed by 0-based
// (x, y) byte coordinates; the mask bit index for a cell is y*GridSize+x.
const (
	GridSize  = 10
	GridCells = GridSize * GridSize
)

// CellMask is a 100-bit set over the board. Bits are set exactly once and
// never cleared.
type CellMask [2]uint64

func (m *CellMask) Set(idx int) {
	m[idx/64] |= 1 << uint(idx%64)
}

func (m CellMask) IsSet(idx int) bool {
	return m[idx/64]&(1<<uint(idx%64)) != 0
}

func (m CellMask) Count() int {
	n := 0
	for i := 0; i < GridCells; i++ {
		if m.IsSet(i) {
			n++
		}
	}
	return n
}

// Positions returns the set bit indexes in ascending order.
func (m CellMask) Positions() []int {
	var out []int
	for i := 0; i < GridCells; i++ {
		if m.IsSet(i) {
			out = append(out, i)
		}
	}
	return out
}

func CellIndex(x, y byte) int {
	return int(y)*GridSize + int(x)
}

// Game is one wagering round, keyed by the randomness request id the
// gateway issued for it. The record is never deleted; finished games stay
// queryable for audit and recovery.
type Game struct {
	ID        string `json:"id" redis:"id"`
	Principal string `json:"principal" redis:"principal"`

	Wager uint64 `json:"wager" redis:"wager"`
	Pot   uint64 `json:"pot" redis:"pot"`

	// Provably-fair material, hex encoded. ExternalRandom is empty until
	// the gateway fulfills, Secret and Seed until the first reveal.
	Commitment     string `json:"commitment" redis:"commitment"`
	ExternalRandom string `json:"external_random" redis:"external_random"`
	Secret         string `json:"secret" redis:"secret"`
	Seed           string `json:"seed" redis:"seed"`

	Revealed CellMask `json:"revealed" redis:"revealed"`

	Active         bool `json:"active" redis:"active"`
	Lost           bool `json:"lost" redis:"lost"`
	SecretRevealed bool `json:"secret_revealed" redis:"secret_revealed"`

	CreatedAt time.Time `json:"created_at" redis:"created_at"`
	UpdatedAt time.Time `json:"updated_at" redis:"updated_at"`
	EndedAt   time.Time `json:"ended_at,omitempty" redis:"ended_at"`
}

// Status derives the lifecycle stage from the state flags.
func (g *Game) Status() string {
	switch {
	case g.Lost:
		return "lost"
	case !g.Active:
		return "cashed_out"
	case g.ExternalRandom == "":
		return "awaiting_randomness"
	case !g.SecretRevealed:
		return "awaiting_reveal"
	default:
		return "playing"
	}
}

// Finished reports whether the game reached a terminal state.
func (g *Game) Finished() bool {
	return !g.Active || g.Lost
}

// GameSummary is the external view of a game. Seed stays empty until the
// game is finished and the secret was revealed, so no observer can
// precompute the remaining grid mid-game.
type GameSummary struct {
	ID             string    `json:"id"`
	Principal      string    `json:"principal"`
	Wager          uint64    `json:"wager"`
	Pot            uint64    `json:"pot"`
	Status         string    `json:"status"`
	Commitment     string    `json:"commitment"`
	ExternalRandom string    `json:"external_random,omitempty"`
	Seed           string    `json:"seed,omitempty"`
	RevealedCount  int       `json:"revealed_count"`
	CreatedAt      time.Time `json:"created_at"`
	EndedAt        time.Time `json:"ended_at,omitempty"`
}
