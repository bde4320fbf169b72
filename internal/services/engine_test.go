package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"minevault-backend/internal/event"
	"minevault-backend/internal/models"
	"minevault-backend/internal/services"
)

const (
	testPrincipal = "aabbccdd00112233"
	testDelegate  = "ddeeff0011223344"
	testStranger  = "9999999999999999"
	testGovernor  = "feedfacecafebeef"

	testSecret = "1111111111111111111111111111111111111111111111111111111111111111"
	testRandom = "2222222222222222222222222222222222222222222222222222222222222222"
)

type fakeTreasury struct {
	balances   map[string]uint64
	failCredit bool
}

func newFakeTreasury() *fakeTreasury {
	return &fakeTreasury{balances: make(map[string]uint64)}
}

func (t *fakeTreasury) balance(address string) uint64 {
	if _, ok := t.balances[address]; !ok {
		t.balances[address] = 1_000_000
	}
	return t.balances[address]
}

func (t *fakeTreasury) Debit(address string, amount uint64) error {
	if t.balance(address) < amount {
		return models.ErrInsufficientBalance
	}
	t.balances[address] -= amount
	return nil
}

func (t *fakeTreasury) Credit(address string, amount uint64) error {
	if t.failCredit {
		return errors.New("custody layer unavailable")
	}
	t.balances[address] = t.balance(address) + amount
	return nil
}

type fakeStore struct {
	saves     int
	completes int
}

func (s *fakeStore) SaveGame(*models.Game) error             { s.saves++; return nil }
func (s *fakeStore) CompleteGame(principal, id string) error { s.completes++; return nil }

// stubSource hands out a scripted sequence of request ids and never
// auto-fulfills; tests deliver randomness through engine.OnRandomness.
type stubSource struct {
	fee uint64
	ids []string
	i   int
}

func (s *stubSource) Fee() uint64 { return s.fee }

func (s *stubSource) Request(payment uint64) (string, error) {
	if payment < s.fee {
		return "", models.ErrInsufficientPayment
	}
	id := s.ids[s.i]
	if s.i < len(s.ids)-1 {
		s.i++
	}
	return id, nil
}

type testRig struct {
	engine    *services.GameEngine
	treasury  *fakeTreasury
	store     *fakeStore
	delegates *services.DelegateRegistry
	governor  *services.Governor
}

func newTestRig(t *testing.T, ids ...string) *testRig {
	t.Helper()
	if len(ids) == 0 {
		ids = []string{"req-1", "req-2", "req-3"}
	}

	bus := event.NewBus()
	treasury := newFakeTreasury()
	store := &fakeStore{}
	delegates := services.NewDelegateRegistry(bus)
	governor := services.NewGovernor(testGovernor, bus)
	source := &stubSource{fee: 2, ids: ids}
	engine := services.NewGameEngine(source, treasury, store, delegates, governor, bus)

	return &testRig{
		engine:    engine,
		treasury:  treasury,
		store:     store,
		delegates: delegates,
		governor:  governor,
	}
}

func mustCommitment(t *testing.T, secret string) string {
	t.Helper()
	commitment, err := services.CommitmentFor(secret)
	if err != nil {
		t.Fatalf("failed to compute commitment: %v", err)
	}
	return commitment
}

// startPlaying creates a game, delivers randomness and returns it with its
// derived seed, ready for reveals.
func startPlaying(t *testing.T, rig *testRig, amount uint64) (string, string) {
	t.Helper()

	game, err := rig.engine.Start(testPrincipal, mustCommitment(t, testSecret), amount)
	if err != nil {
		t.Fatalf("failed to start game: %v", err)
	}
	if err := rig.engine.OnRandomness(game.ID, testRandom); err != nil {
		t.Fatalf("failed to fulfill randomness: %v", err)
	}

	seed, err := services.DeriveSeed(testRandom, testSecret, testPrincipal)
	if err != nil {
		t.Fatalf("failed to derive seed: %v", err)
	}
	return game.ID, seed
}

// gridCells partitions the board into safe cells and mines for a seed at
// the given threshold.
func gridCells(t *testing.T, seed string, threshold uint64) (safe, mines [][2]byte) {
	t.Helper()
	for y := byte(0); y < models.GridSize; y++ {
		for x := byte(0); x < models.GridSize; x++ {
			isMine, err := services.CellIsMine(seed, x, y, threshold)
			if err != nil {
				t.Fatalf("cell verdict failed: %v", err)
			}
			if isMine {
				mines = append(mines, [2]byte{x, y})
			} else {
				safe = append(safe, [2]byte{x, y})
			}
		}
	}
	return safe, mines
}

func TestStartValidation(t *testing.T) {
	rig := newTestRig(t)
	commitment := mustCommitment(t, testSecret)

	if _, err := rig.engine.Start(testPrincipal, commitment, 1); !errors.Is(err, models.ErrInsufficientPayment) {
		t.Errorf("expected ErrInsufficientPayment, got %v", err)
	}

	// Paying exactly the fee leaves nothing to wager.
	if _, err := rig.engine.Start(testPrincipal, commitment, 2); !errors.Is(err, models.ErrZeroWager) {
		t.Errorf("expected ErrZeroWager, got %v", err)
	}

	if _, err := rig.engine.Start(testPrincipal, "not-hex", 100); err == nil {
		t.Error("expected error for malformed commitment")
	}

	before := rig.treasury.balance(testPrincipal)
	game, err := rig.engine.Start(testPrincipal, commitment, 100)
	if err != nil {
		t.Fatalf("failed to start game: %v", err)
	}
	if game.Wager != 98 || game.Pot != 98 {
		t.Errorf("expected net wager 98, got wager=%d pot=%d", game.Wager, game.Pot)
	}
	if got := rig.treasury.balance(testPrincipal); got != before-100 {
		t.Errorf("expected balance %d after wager, got %d", before-100, got)
	}
	if game.Status() != "awaiting_randomness" {
		t.Errorf("expected awaiting_randomness, got %s", game.Status())
	}
}

func TestDuplicateRequestID(t *testing.T) {
	rig := newTestRig(t, "same-id")
	commitment := mustCommitment(t, testSecret)

	first, err := rig.engine.Start(testPrincipal, commitment, 100)
	if err != nil {
		t.Fatalf("failed to start first game: %v", err)
	}

	before := rig.treasury.balance(testPrincipal)
	if _, err := rig.engine.Start(testPrincipal, commitment, 200); !errors.Is(err, models.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	// The wager for the rejected game must be refunded in full.
	if got := rig.treasury.balance(testPrincipal); got != before {
		t.Errorf("expected refund to restore balance %d, got %d", before, got)
	}

	// The original game is untouched.
	summary, err := rig.engine.Summary(first.ID)
	if err != nil {
		t.Fatalf("failed to get summary: %v", err)
	}
	if summary.Pot != 98 || summary.Status != "awaiting_randomness" {
		t.Errorf("original game mutated: pot=%d status=%s", summary.Pot, summary.Status)
	}
}

func TestRevealBeforeFulfillment(t *testing.T) {
	rig := newTestRig(t)

	game, err := rig.engine.Start(testPrincipal, mustCommitment(t, testSecret), 100)
	if err != nil {
		t.Fatalf("failed to start game: %v", err)
	}

	if _, err := rig.engine.RevealCell(testPrincipal, game.ID, 0, 0, testSecret); !errors.Is(err, models.ErrRandomnessNotReady) {
		t.Errorf("expected ErrRandomnessNotReady, got %v", err)
	}
}

func TestRandomnessDelivery(t *testing.T) {
	rig := newTestRig(t)

	if err := rig.engine.OnRandomness("unknown", testRandom); !errors.Is(err, models.ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound for unknown id, got %v", err)
	}

	game, err := rig.engine.Start(testPrincipal, mustCommitment(t, testSecret), 100)
	if err != nil {
		t.Fatalf("failed to start game: %v", err)
	}

	if err := rig.engine.OnRandomness(game.ID, "zz"); err == nil {
		t.Error("expected error for malformed random value")
	}
	if err := rig.engine.OnRandomness(game.ID, testRandom); err != nil {
		t.Fatalf("fulfillment failed: %v", err)
	}
	if err := rig.engine.OnRandomness(game.ID, testRandom); err == nil {
		t.Error("expected error on duplicate fulfillment")
	}
}

func TestCommitMismatch(t *testing.T) {
	rig := newTestRig(t)
	gameID, _ := startPlaying(t, rig, 100)

	wrong := strings.Repeat("33", 32)
	if _, err := rig.engine.RevealCell(testPrincipal, gameID, 0, 0, wrong); !errors.Is(err, models.ErrCommitMismatch) {
		t.Fatalf("expected ErrCommitMismatch, got %v", err)
	}

	// The failed reveal must not have touched the game.
	summary, _ := rig.engine.Summary(gameID)
	if summary.RevealedCount != 0 || summary.Status != "awaiting_reveal" {
		t.Errorf("game mutated by rejected reveal: count=%d status=%s", summary.RevealedCount, summary.Status)
	}
}

func TestPotMath(t *testing.T) {
	rig := newTestRig(t)
	// Supplied 12 = fee 2 + net wager 10.
	gameID, seed := startPlaying(t, rig, 12)

	safe, _ := gridCells(t, seed, rig.governor.MineProbability())
	if len(safe) < 2 {
		t.Fatalf("need at least 2 safe cells, got %d", len(safe))
	}

	result, err := rig.engine.RevealCell(testPrincipal, gameID, safe[0][0], safe[0][1], testSecret)
	if err != nil {
		t.Fatalf("first reveal failed: %v", err)
	}
	if result.Pot != 12 {
		t.Errorf("after reveal 1 expected pot 12, got %d", result.Pot)
	}

	result, err = rig.engine.RevealCell(testPrincipal, gameID, safe[1][0], safe[1][1], "")
	if err != nil {
		t.Fatalf("second reveal failed: %v", err)
	}
	// 12 * 1.2 = 14.4, truncated to 14.
	if result.Pot != 14 {
		t.Errorf("after reveal 2 expected pot 14, got %d", result.Pot)
	}
}

func TestMineEndsGame(t *testing.T) {
	rig := newTestRig(t)
	gameID, seed := startPlaying(t, rig, 100)

	_, mines := gridCells(t, seed, rig.governor.MineProbability())
	if len(mines) == 0 {
		t.Fatal("expected at least one mine on the board")
	}

	result, err := rig.engine.RevealCell(testPrincipal, gameID, mines[0][0], mines[0][1], testSecret)
	if err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if !result.IsMine || !result.GameOver {
		t.Error("expected a mine verdict ending the game")
	}
	if result.Pot != 0 {
		t.Errorf("expected pot 0 after loss, got %d", result.Pot)
	}

	if _, err := rig.engine.RevealCell(testPrincipal, gameID, 0, 1, ""); !errors.Is(err, models.ErrAlreadyLost) {
		t.Errorf("expected ErrAlreadyLost on further reveal, got %v", err)
	}
	if _, err := rig.engine.CashOut(testPrincipal, gameID); !errors.Is(err, models.ErrAlreadyLost) {
		t.Errorf("expected ErrAlreadyLost on cashout, got %v", err)
	}

	summary, _ := rig.engine.Summary(gameID)
	if summary.Status != "lost" {
		t.Errorf("expected lost status, got %s", summary.Status)
	}
	// Loss is terminal, so the seed becomes visible for audit.
	if summary.Seed == "" {
		t.Error("finished game should expose its seed")
	}
}

func TestCellRevealOnlyOnce(t *testing.T) {
	rig := newTestRig(t)
	gameID, seed := startPlaying(t, rig, 100)

	safe, _ := gridCells(t, seed, rig.governor.MineProbability())
	x, y := safe[0][0], safe[0][1]

	if _, err := rig.engine.RevealCell(testPrincipal, gameID, x, y, testSecret); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	if _, err := rig.engine.RevealCell(testPrincipal, gameID, x, y, ""); !errors.Is(err, models.ErrCellAlreadyRevealed) {
		t.Errorf("expected ErrCellAlreadyRevealed, got %v", err)
	}

	// Passing the secret again after the first reveal is rejected.
	if _, err := rig.engine.RevealCell(testPrincipal, gameID, safe[1][0], safe[1][1], testSecret); !errors.Is(err, models.ErrAlreadyRevealed) {
		t.Errorf("expected ErrAlreadyRevealed, got %v", err)
	}
}

func TestInvalidCoordinate(t *testing.T) {
	rig := newTestRig(t)
	gameID, _ := startPlaying(t, rig, 100)

	if _, err := rig.engine.RevealCell(testPrincipal, gameID, 10, 0, testSecret); !errors.Is(err, models.ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate for x=10, got %v", err)
	}
	if _, err := rig.engine.RevealCell(testPrincipal, gameID, 0, 10, testSecret); !errors.Is(err, models.ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate for y=10, got %v", err)
	}
}

func TestDelegatePlaysPrincipalPaid(t *testing.T) {
	rig := newTestRig(t)
	gameID, seed := startPlaying(t, rig, 100)

	if err := rig.delegates.Register(testPrincipal, testDelegate); err != nil {
		t.Fatalf("failed to register delegate: %v", err)
	}

	safe, _ := gridCells(t, seed, rig.governor.MineProbability())

	// The delegate can play the first reveal, including the secret.
	if _, err := rig.engine.RevealCell(testDelegate, gameID, safe[0][0], safe[0][1], testSecret); err != nil {
		t.Fatalf("delegate reveal failed: %v", err)
	}

	principalBefore := rig.treasury.balance(testPrincipal)
	delegateBefore := rig.treasury.balance(testDelegate)

	result, err := rig.engine.CashOut(testDelegate, gameID)
	if err != nil {
		t.Fatalf("delegate cashout failed: %v", err)
	}
	if result.Principal != testPrincipal {
		t.Errorf("payout target should be the principal, got %s", result.Principal)
	}
	if got := rig.treasury.balance(testPrincipal); got != principalBefore+result.Payout {
		t.Errorf("principal balance should grow by %d, got %d (was %d)", result.Payout, got, principalBefore)
	}
	if got := rig.treasury.balance(testDelegate); got != delegateBefore {
		t.Errorf("delegate balance must not change, got %d (was %d)", got, delegateBefore)
	}
}

func TestUnauthorizedCaller(t *testing.T) {
	rig := newTestRig(t)
	gameID, _ := startPlaying(t, rig, 100)

	if _, err := rig.engine.RevealCell(testStranger, gameID, 0, 0, testSecret); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := rig.engine.CashOut(testStranger, gameID); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized on cashout, got %v", err)
	}
}

func TestCashoutBeforeReveal(t *testing.T) {
	rig := newTestRig(t)
	gameID, _ := startPlaying(t, rig, 100)

	if _, err := rig.engine.CashOut(testPrincipal, gameID); !errors.Is(err, models.ErrSeedNotReady) {
		t.Errorf("expected ErrSeedNotReady, got %v", err)
	}
}

func TestTransferFailureRollsBack(t *testing.T) {
	rig := newTestRig(t)
	gameID, seed := startPlaying(t, rig, 100)

	safe, _ := gridCells(t, seed, rig.governor.MineProbability())
	if _, err := rig.engine.RevealCell(testPrincipal, gameID, safe[0][0], safe[0][1], testSecret); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}

	rig.treasury.failCredit = true
	if _, err := rig.engine.CashOut(testPrincipal, gameID); !errors.Is(err, models.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	// The game must be exactly as it was, so a retry can succeed.
	summary, _ := rig.engine.Summary(gameID)
	if summary.Status != "playing" {
		t.Errorf("game should still be playing after failed transfer, got %s", summary.Status)
	}

	rig.treasury.failCredit = false
	if _, err := rig.engine.CashOut(testPrincipal, gameID); err != nil {
		t.Errorf("retry after transfer failure should succeed, got %v", err)
	}
}

func TestSummaryWithholdsSeedMidGame(t *testing.T) {
	rig := newTestRig(t)
	gameID, seed := startPlaying(t, rig, 100)

	safe, _ := gridCells(t, seed, rig.governor.MineProbability())
	if _, err := rig.engine.RevealCell(testPrincipal, gameID, safe[0][0], safe[0][1], testSecret); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}

	summary, _ := rig.engine.Summary(gameID)
	if summary.Seed != "" {
		t.Error("seed must be withheld while the game is active")
	}

	if _, err := rig.engine.CashOut(testPrincipal, gameID); err != nil {
		t.Fatalf("cashout failed: %v", err)
	}

	summary, _ = rig.engine.Summary(gameID)
	if summary.Seed != seed {
		t.Errorf("finished game should expose seed %s, got %s", seed, summary.Seed)
	}
	if summary.Status != "cashed_out" {
		t.Errorf("expected cashed_out, got %s", summary.Status)
	}
}

func TestRecoveryViews(t *testing.T) {
	rig := newTestRig(t)
	gameID, seed := startPlaying(t, rig, 100)

	safe, _ := gridCells(t, seed, rig.governor.MineProbability())
	for i := 0; i < 3; i++ {
		secret := ""
		if i == 0 {
			secret = testSecret
		}
		if _, err := rig.engine.RevealCell(testPrincipal, gameID, safe[i][0], safe[i][1], secret); err != nil {
			t.Fatalf("reveal %d failed: %v", i, err)
		}
	}

	cells, err := rig.engine.RevealedSafeCells(gameID)
	if err != nil {
		t.Fatalf("failed to get safe cells: %v", err)
	}
	if len(cells) != 3 {
		t.Errorf("expected 3 safe cells, got %d", len(cells))
	}

	revealed, err := rig.engine.CellStatus(gameID, safe[0][0], safe[0][1])
	if err != nil || !revealed {
		t.Errorf("revealed cell should report revealed, got %v %v", revealed, err)
	}
	revealed, err = rig.engine.CellStatus(gameID, safe[4][0], safe[4][1])
	if err != nil || revealed {
		t.Errorf("untouched cell should report unrevealed, got %v %v", revealed, err)
	}

	active := rig.engine.ActiveGames(testPrincipal)
	if len(active) != 1 || active[0].ID != gameID {
		t.Errorf("expected one active game %s, got %v", gameID, active)
	}
}

func TestSeedNotFoundGame(t *testing.T) {
	rig := newTestRig(t)

	if _, err := rig.engine.Summary("missing"); !errors.Is(err, models.ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
	if _, err := rig.engine.RevealCell(testPrincipal, "missing", 0, 0, testSecret); !errors.Is(err, models.ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
	if _, err := rig.engine.CashOut(testPrincipal, "missing"); !errors.Is(err, models.ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
}

func TestManyGamesIndependent(t *testing.T) {
	ids := make([]string, 10)
	for i := range ids {
		ids[i] = fmt.Sprintf("req-%d", i)
	}
	rig := newTestRig(t, ids...)
	commitment := mustCommitment(t, testSecret)

	for i := 0; i < 10; i++ {
		if _, err := rig.engine.Start(testPrincipal, commitment, 100); err != nil {
			t.Fatalf("start %d failed: %v", i, err)
		}
	}

	// Fulfillment arrives out of order relative to the starts.
	for i := 9; i >= 0; i-- {
		if err := rig.engine.OnRandomness(ids[i], testRandom); err != nil {
			t.Fatalf("fulfillment %d failed: %v", i, err)
		}
	}

	if got := len(rig.engine.ActiveGames(testPrincipal)); got != 10 {
		t.Errorf("expected 10 active games, got %d", got)
	}
}
