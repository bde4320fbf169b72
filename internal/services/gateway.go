package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"minevault-backend/internal/models"
)

// RandomnessSource is the contract the engine consumes from the external
// unpredictability provider. Request accepts payment synchronously and
// returns a request id; the random value arrives later, out of band,
// through the engine's fulfillment entry point keyed by that id.
type RandomnessSource interface {
	Fee() uint64
	Request(payment uint64) (string, error)
}

// FulfillFunc delivers a fulfilled random value back into the engine.
type FulfillFunc func(requestID, valueHex string) error

// LocalSource simulates the oracle in-process: it charges a flat fee,
// issues uuid request ids, and fulfills each request from crypto/rand
// after a fixed delay. Production deployments replace it with the real
// oracle and the HTTP fulfillment callback.
type LocalSource struct {
	fee     uint64
	delay   time.Duration
	mu      sync.Mutex
	fulfill FulfillFunc
	pending map[string]bool
}

func NewLocalSource(fee uint64, delay time.Duration) *LocalSource {
	return &LocalSource{
		fee:     fee,
		delay:   delay,
		pending: make(map[string]bool),
	}
}

// SetFulfiller wires the engine callback. Must be called before any
// Request; the engine and the source reference each other, so the hookup
// happens after both are constructed.
func (s *LocalSource) SetFulfiller(f FulfillFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fulfill = f
}

func (s *LocalSource) Fee() uint64 {
	return s.fee
}

func (s *LocalSource) Request(payment uint64) (string, error) {
	if payment < s.fee {
		return "", fmt.Errorf("%w: need %d, got %d", models.ErrInsufficientPayment, s.fee, payment)
	}

	id := uuid.New().String()

	s.mu.Lock()
	s.pending[id] = true
	fulfill := s.fulfill
	s.mu.Unlock()

	if fulfill != nil {
		go s.deliver(id, fulfill)
	}

	return id, nil
}

func (s *LocalSource) deliver(id string, fulfill FulfillFunc) {
	time.Sleep(s.delay)

	value := make([]byte, 32)
	if _, err := rand.Read(value); err != nil {
		log.Printf("randomness source: failed to draw value for %s: %v", id, err)
		return
	}

	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()

	if err := fulfill(id, hex.EncodeToString(value)); err != nil {
		log.Printf("randomness source: fulfillment of %s rejected: %v", id, err)
	}
}
