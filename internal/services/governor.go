package services

import (
	"fmt"
	"sync"
	"time"

	"minevault-backend/internal/event"
	"minevault-backend/internal/models"
)

type Param string

const (
	ParamMineProbability  Param = "mine_probability"
	ParamRewardMultiplier Param = "reward_multiplier"
)

// Governed bounds and defaults, in basis points of ThresholdBase.
const (
	DefaultMineProbability  = 2000
	DefaultRewardMultiplier = 12000

	MinMineProbability  = 100
	MaxMineProbability  = 5000
	MinRewardMultiplier = 10000
	MaxRewardMultiplier = 20000

	// TimelockDelay is the mandatory wait between proposing and applying
	// a parameter change.
	TimelockDelay = 24 * time.Hour
)

type PendingChange struct {
	Value       uint64    `json:"value"`
	EffectiveAt time.Time `json:"effective_at"`
}

// Governor owns the two economic parameters and the two-phase timelocked
// process for changing them. A parameter is either at its old value or
// fully switched, never interpolated. Readers always see the value in
// effect at call time; games in flight are deliberately exposed to
// mid-flight changes.
type Governor struct {
	mu        sync.RWMutex
	authority string
	delay     time.Duration
	now       func() time.Time
	bus       *event.Bus

	mineProbability  uint64
	rewardMultiplier uint64
	pending          map[Param]PendingChange
}

func NewGovernor(authority string, bus *event.Bus) *Governor {
	return &Governor{
		authority:        authority,
		delay:            TimelockDelay,
		now:              time.Now,
		bus:              bus,
		mineProbability:  DefaultMineProbability,
		rewardMultiplier: DefaultRewardMultiplier,
		pending:          make(map[Param]PendingChange),
	}
}

func (g *Governor) MineProbability() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.mineProbability
}

func (g *Governor) RewardMultiplier() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rewardMultiplier
}

// Propose stages a range-checked change that becomes executable after the
// timelock elapses. Re-proposing overwrites the previous pending change.
func (g *Governor) Propose(caller string, param Param, value uint64) error {
	if caller != g.authority {
		return models.ErrUnauthorized
	}
	if err := checkBounds(param, value); err != nil {
		return err
	}

	g.mu.Lock()
	effectiveAt := g.now().Add(g.delay)
	g.pending[param] = PendingChange{Value: value, EffectiveAt: effectiveAt}
	g.mu.Unlock()

	g.bus.Publish(event.EventParamProposed, &event.ParamChanged{
		Param:       string(param),
		Value:       value,
		EffectiveAt: effectiveAt,
	})
	return nil
}

// Execute applies a pending change once its timelock has elapsed.
func (g *Governor) Execute(caller string, param Param) error {
	if caller != g.authority {
		return models.ErrUnauthorized
	}

	g.mu.Lock()
	change, ok := g.pending[param]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrNoPendingChange, param)
	}
	if g.now().Before(change.EffectiveAt) {
		g.mu.Unlock()
		return fmt.Errorf("%w: effective at %s", models.ErrTimelockNotElapsed, change.EffectiveAt)
	}

	switch param {
	case ParamMineProbability:
		g.mineProbability = change.Value
	case ParamRewardMultiplier:
		g.rewardMultiplier = change.Value
	default:
		g.mu.Unlock()
		return fmt.Errorf("%w: unknown parameter %s", models.ErrNoPendingChange, param)
	}
	delete(g.pending, param)
	g.mu.Unlock()

	g.bus.Publish(event.EventParamApplied, &event.ParamChanged{
		Param: string(param),
		Value: change.Value,
	})
	return nil
}

// Cancel drops a pending change unconditionally.
func (g *Governor) Cancel(caller string, param Param) error {
	if caller != g.authority {
		return models.ErrUnauthorized
	}

	g.mu.Lock()
	delete(g.pending, param)
	g.mu.Unlock()
	return nil
}

// Pending returns a copy of the staged changes for the admin view.
func (g *Governor) Pending() map[Param]PendingChange {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[Param]PendingChange, len(g.pending))
	for k, v := range g.pending {
		out[k] = v
	}
	return out
}

func checkBounds(param Param, value uint64) error {
	switch param {
	case ParamMineProbability:
		if value < MinMineProbability || value > MaxMineProbability {
			return fmt.Errorf("%w: %s must be in [%d, %d]",
				models.ErrOutOfRange, param, MinMineProbability, MaxMineProbability)
		}
	case ParamRewardMultiplier:
		if value < MinRewardMultiplier || value > MaxRewardMultiplier {
			return fmt.Errorf("%w: %s must be in [%d, %d]",
				models.ErrOutOfRange, param, MinRewardMultiplier, MaxRewardMultiplier)
		}
	default:
		return fmt.Errorf("%w: unknown parameter %s", models.ErrOutOfRange, param)
	}
	return nil
}
