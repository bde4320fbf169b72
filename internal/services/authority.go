package services

import (
	"fmt"
	"sync"

	"minevault-backend/internal/event"
	"minevault-backend/internal/models"
)

// DelegateRegistry maps a delegate address to the single principal that
// installed it. Delegates may play games on the principal's behalf, but
// payouts always go to the principal, so a compromised delegate key can
// never redirect funds.
type DelegateRegistry struct {
	mu         sync.RWMutex
	byDelegate map[string]string
	bus        *event.Bus
}

func NewDelegateRegistry(bus *event.Bus) *DelegateRegistry {
	return &DelegateRegistry{
		byDelegate: make(map[string]string),
		bus:        bus,
	}
}

// Register installs (or overwrites) caller as the principal for delegate.
func (r *DelegateRegistry) Register(caller, delegate string) error {
	if delegate == "" {
		return models.ErrZeroDelegate
	}
	if delegate == caller {
		return models.ErrSelfDelegation
	}

	r.mu.Lock()
	r.byDelegate[delegate] = caller
	r.mu.Unlock()

	r.bus.Publish(event.EventDelegateRegistered, &event.DelegateChanged{
		Principal: caller,
		Delegate:  delegate,
	})
	return nil
}

// Revoke removes delegate, but only for the principal that installed it.
// The stored value is compared, not just key presence, so one principal
// cannot tear down another's delegation.
func (r *DelegateRegistry) Revoke(caller, delegate string) error {
	r.mu.Lock()
	principal, ok := r.byDelegate[delegate]
	if !ok || principal != caller {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", models.ErrNotYourDelegate, delegate)
	}
	delete(r.byDelegate, delegate)
	r.mu.Unlock()

	r.bus.Publish(event.EventDelegateRevoked, &event.DelegateChanged{
		Principal: caller,
		Delegate:  delegate,
	})
	return nil
}

// PrincipalFor resolves the principal a delegate acts for.
func (r *DelegateRegistry) PrincipalFor(delegate string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	principal, ok := r.byDelegate[delegate]
	return principal, ok
}

// Authorized reports whether caller may act on a game owned by principal:
// either the principal itself or a delegate it registered.
func (r *DelegateRegistry) Authorized(caller, principal string) bool {
	if caller == principal {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byDelegate[caller] == principal
}
