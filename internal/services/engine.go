package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"minevault-backend/internal/event"
	"minevault-backend/internal/models"
)

// Treasury is the funds-custody collaborator. Debit takes the wager in at
// game start; Credit pays out. A failed Credit during cash-out aborts the
// whole operation.
type Treasury interface {
	Debit(address string, amount uint64) error
	Credit(address string, amount uint64) error
}

// GameStore persists game snapshots for history and recovery queries. The
// engine's in-memory map stays authoritative; store failures are logged,
// not propagated.
type GameStore interface {
	SaveGame(game *models.Game) error
	CompleteGame(principal, gameID string) error
}

// GameEngine owns every game record and serializes all state-mutating
// operations behind one mutex, so each operation either applies in full or
// not at all. All precondition checks run before any mutation.
type GameEngine struct {
	mu        sync.Mutex
	games     map[string]*models.Game
	source    RandomnessSource
	treasury  Treasury
	store     GameStore
	delegates *DelegateRegistry
	governor  *Governor
	bus       *event.Bus
}

func NewGameEngine(source RandomnessSource, treasury Treasury, store GameStore,
	delegates *DelegateRegistry, governor *Governor, bus *event.Bus) *GameEngine {
	return &GameEngine{
		games:     make(map[string]*models.Game),
		source:    source,
		treasury:  treasury,
		store:     store,
		delegates: delegates,
		governor:  governor,
		bus:       bus,
	}
}

// Start places a wager and requests randomness. The supplied amount covers
// the gateway fee; the remainder becomes the starting pot. The returned
// game id is the gateway's request id.
func (e *GameEngine) Start(principal, commitment string, amount uint64) (*models.Game, error) {
	if _, err := decode32(commitment); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCommitMismatch, err)
	}

	fee := e.source.Fee()
	if amount < fee {
		return nil, fmt.Errorf("%w: fee is %d", models.ErrInsufficientPayment, fee)
	}
	wager := amount - fee
	if wager == 0 {
		return nil, models.ErrZeroWager
	}

	if err := e.treasury.Debit(principal, amount); err != nil {
		return nil, fmt.Errorf("failed to take wager: %w", err)
	}

	id, err := e.source.Request(fee)
	if err != nil {
		e.refund(principal, amount)
		return nil, fmt.Errorf("randomness request failed: %w", err)
	}

	e.mu.Lock()
	if _, exists := e.games[id]; exists {
		e.mu.Unlock()
		e.refund(principal, amount)
		return nil, fmt.Errorf("%w: %s", models.ErrDuplicateID, id)
	}

	now := time.Now()
	game := &models.Game{
		ID:         id,
		Principal:  principal,
		Wager:      wager,
		Pot:        wager,
		Commitment: commitment,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	e.games[id] = game
	snapshot := *game
	e.mu.Unlock()

	e.persist(&snapshot)
	e.bus.Publish(event.EventGameRequested, &event.GameRequested{
		GameID:    id,
		Principal: principal,
		Wager:     wager,
		Fee:       fee,
	})
	return &snapshot, nil
}

// OnRandomness is the gateway's asynchronous fulfillment entry point,
// keyed by the request id issued at Start. It may arrive at any time
// relative to operations on other games; ids are unique per game.
func (e *GameEngine) OnRandomness(requestID, valueHex string) error {
	if _, err := decode32(valueHex); err != nil {
		return fmt.Errorf("invalid random value: %v", err)
	}

	e.mu.Lock()
	game, ok := e.games[requestID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrGameNotFound, requestID)
	}
	if game.ExternalRandom != "" {
		e.mu.Unlock()
		return fmt.Errorf("randomness already delivered for game %s", requestID)
	}

	game.ExternalRandom = valueHex
	game.UpdatedAt = time.Now()
	snapshot := *game
	e.mu.Unlock()

	e.persist(&snapshot)
	e.bus.Publish(event.EventRandomnessReceived, &event.RandomnessReceived{
		GameID:    requestID,
		Principal: snapshot.Principal,
	})
	return nil
}

// RevealCell reveals one cell. On the first reveal the committed secret
// must accompany the move; it binds with the external random value and the
// principal into the game seed. Later reveals must pass an empty secret.
func (e *GameEngine) RevealCell(caller, gameID string, x, y byte, secret string) (*models.RevealResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	game, ok := e.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrGameNotFound, gameID)
	}
	if !e.delegates.Authorized(caller, game.Principal) {
		return nil, models.ErrUnauthorized
	}
	if game.Lost {
		return nil, models.ErrAlreadyLost
	}
	if !game.Active {
		return nil, models.ErrGameFinished
	}
	if int(x) >= models.GridSize || int(y) >= models.GridSize {
		return nil, models.ErrInvalidCoordinate
	}
	idx := models.CellIndex(x, y)
	if game.Revealed.IsSet(idx) {
		return nil, fmt.Errorf("%w: (%d,%d)", models.ErrCellAlreadyRevealed, x, y)
	}

	// All remaining checks, including the seed derivation for a first
	// reveal, run before any mutation below.
	var seed string
	firstReveal := !game.SecretRevealed
	if firstReveal {
		if game.ExternalRandom == "" {
			return nil, models.ErrRandomnessNotReady
		}
		if !VerifyCommitment(secret, game.Commitment) {
			return nil, models.ErrCommitMismatch
		}
		derived, err := DeriveSeed(game.ExternalRandom, secret, game.Principal)
		if err != nil {
			return nil, fmt.Errorf("seed derivation failed: %v", err)
		}
		seed = derived
	} else {
		if secret != "" {
			return nil, models.ErrAlreadyRevealed
		}
		if game.Seed == "" {
			return nil, models.ErrSeedNotReady
		}
		seed = game.Seed
	}

	// The threshold in effect now, not at game creation: governance
	// changes apply to in-flight games.
	isMine, err := CellIsMine(seed, x, y, e.governor.MineProbability())
	if err != nil {
		return nil, err
	}

	if firstReveal {
		game.Secret = secret
		game.SecretRevealed = true
		game.Seed = seed
	}
	game.Revealed.Set(idx)
	game.UpdatedAt = time.Now()

	if isMine {
		game.Lost = true
		game.Active = false
		game.Pot = 0
		game.EndedAt = game.UpdatedAt
	} else {
		game.Pot = game.Pot * e.governor.RewardMultiplier() / ThresholdBase
	}

	snapshot := *game
	e.persist(&snapshot)
	if isMine {
		e.complete(&snapshot)
	}

	if firstReveal {
		e.bus.Publish(event.EventSecretRevealed, &event.SecretRevealed{
			GameID:    gameID,
			Principal: game.Principal,
		})
	}
	e.bus.Publish(event.EventCellRevealed, &event.CellRevealed{
		GameID:    gameID,
		Principal: game.Principal,
		X:         x,
		Y:         y,
		IsMine:    isMine,
		Pot:       game.Pot,
	})
	if isMine {
		e.bus.Publish(event.EventGameEnded, &event.GameEnded{
			GameID:    gameID,
			Principal: game.Principal,
			Won:       false,
			Payout:    0,
		})
	}

	return &models.RevealResult{
		GameID:        gameID,
		X:             x,
		Y:             y,
		IsMine:        isMine,
		Pot:           game.Pot,
		RevealedCount: game.Revealed.Count(),
		GameOver:      isMine,
		Status:        game.Status(),
	}, nil
}

// CashOut pays the pot and ends the game. A delegate may trigger it, but
// the transfer target is always the principal. If the transfer fails the
// game is left exactly as it was, so a retry stays possible.
func (e *GameEngine) CashOut(caller, gameID string) (*models.CashoutResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	game, ok := e.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrGameNotFound, gameID)
	}
	if !e.delegates.Authorized(caller, game.Principal) {
		return nil, models.ErrUnauthorized
	}
	if game.Lost {
		return nil, models.ErrAlreadyLost
	}
	if !game.Active {
		return nil, models.ErrGameFinished
	}
	if !game.SecretRevealed {
		return nil, models.ErrSeedNotReady
	}

	payout := game.Pot
	if err := e.treasury.Credit(game.Principal, payout); err != nil {
		// No state was touched yet; the operation is a clean no-op.
		return nil, fmt.Errorf("%w: %v", models.ErrTransferFailed, err)
	}

	game.Active = false
	game.UpdatedAt = time.Now()
	game.EndedAt = game.UpdatedAt

	snapshot := *game
	e.persist(&snapshot)
	e.complete(&snapshot)

	e.bus.Publish(event.EventGameEnded, &event.GameEnded{
		GameID:    gameID,
		Principal: game.Principal,
		Won:       true,
		Payout:    payout,
	})

	return &models.CashoutResult{
		GameID:        gameID,
		Principal:     game.Principal,
		Payout:        payout,
		RevealedCount: game.Revealed.Count(),
		Status:        game.Status(),
	}, nil
}

// Summary returns the external view of a game. The seed is withheld until
// the game is finished and the secret was revealed.
func (e *GameEngine) Summary(gameID string) (*models.GameSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	game, ok := e.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrGameNotFound, gameID)
	}

	summary := &models.GameSummary{
		ID:             game.ID,
		Principal:      game.Principal,
		Wager:          game.Wager,
		Pot:            game.Pot,
		Status:         game.Status(),
		Commitment:     game.Commitment,
		ExternalRandom: game.ExternalRandom,
		RevealedCount:  game.Revealed.Count(),
		CreatedAt:      game.CreatedAt,
		EndedAt:        game.EndedAt,
	}
	if game.Finished() && game.SecretRevealed {
		summary.Seed = game.Seed
	}
	return summary, nil
}

// RevealedSafeCells lists the revealed cells that were safe. On a lost
// game the mine cell is the last revealed one; it is excluded here.
func (e *GameEngine) RevealedSafeCells(gameID string) ([][2]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	game, ok := e.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrGameNotFound, gameID)
	}

	cells := make([][2]byte, 0, game.Revealed.Count())
	for _, idx := range game.Revealed.Positions() {
		x := byte(idx % models.GridSize)
		y := byte(idx / models.GridSize)
		if game.Lost && game.Seed != "" {
			if mine, err := CellIsMine(game.Seed, x, y, e.governor.MineProbability()); err == nil && mine {
				continue
			}
		}
		cells = append(cells, [2]byte{x, y})
	}
	return cells, nil
}

// CellStatus reports whether a cell has been revealed yet.
func (e *GameEngine) CellStatus(gameID string, x, y byte) (bool, error) {
	if int(x) >= models.GridSize || int(y) >= models.GridSize {
		return false, models.ErrInvalidCoordinate
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	game, ok := e.games[gameID]
	if !ok {
		return false, fmt.Errorf("%w: %s", models.ErrGameNotFound, gameID)
	}
	return game.Revealed.IsSet(models.CellIndex(x, y)), nil
}

// ActiveGames lists the caller's games still in flight.
func (e *GameEngine) ActiveGames(principal string) []*models.GameSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*models.GameSummary
	for _, game := range e.games {
		if game.Principal != principal || !game.Active {
			continue
		}
		out = append(out, &models.GameSummary{
			ID:            game.ID,
			Principal:     game.Principal,
			Wager:         game.Wager,
			Pot:           game.Pot,
			Status:        game.Status(),
			Commitment:    game.Commitment,
			RevealedCount: game.Revealed.Count(),
			CreatedAt:     game.CreatedAt,
		})
	}
	return out
}

func (e *GameEngine) refund(principal string, amount uint64) {
	if err := e.treasury.Credit(principal, amount); err != nil {
		log.Printf("engine: refund of %d to %s failed: %v", amount, principal, err)
	}
}

func (e *GameEngine) persist(game *models.Game) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveGame(game); err != nil {
		log.Printf("engine: failed to persist game %s: %v", game.ID, err)
	}
}

func (e *GameEngine) complete(game *models.Game) {
	if e.store == nil {
		return
	}
	if err := e.store.CompleteGame(game.Principal, game.ID); err != nil {
		log.Printf("engine: failed to archive game %s: %v", game.ID, err)
	}
}
