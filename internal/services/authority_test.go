package services_test

import (
	"errors"
	"testing"

	"minevault-backend/internal/event"
	"minevault-backend/internal/models"
	"minevault-backend/internal/services"
)

func TestDelegateRegistration(t *testing.T) {
	registry := services.NewDelegateRegistry(event.NewBus())

	if err := registry.Register("alice", ""); !errors.Is(err, models.ErrZeroDelegate) {
		t.Errorf("expected ErrZeroDelegate, got %v", err)
	}
	if err := registry.Register("alice", "alice"); !errors.Is(err, models.ErrSelfDelegation) {
		t.Errorf("expected ErrSelfDelegation, got %v", err)
	}

	if err := registry.Register("alice", "bot"); err != nil {
		t.Fatalf("failed to register delegate: %v", err)
	}

	principal, ok := registry.PrincipalFor("bot")
	if !ok || principal != "alice" {
		t.Errorf("expected bot to act for alice, got %q %v", principal, ok)
	}

	if !registry.Authorized("alice", "alice") {
		t.Error("principal should be authorized for itself")
	}
	if !registry.Authorized("bot", "alice") {
		t.Error("delegate should be authorized for its principal")
	}
	if registry.Authorized("bot", "carol") {
		t.Error("delegate must not be authorized for another principal")
	}
	if registry.Authorized("mallory", "alice") {
		t.Error("stranger must not be authorized")
	}
}

func TestDelegateOverwrite(t *testing.T) {
	registry := services.NewDelegateRegistry(event.NewBus())

	if err := registry.Register("alice", "bot"); err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	// A later registration moves the delegate to the new principal.
	if err := registry.Register("carol", "bot"); err != nil {
		t.Fatalf("failed to overwrite: %v", err)
	}

	if registry.Authorized("bot", "alice") {
		t.Error("bot should no longer act for alice")
	}
	if !registry.Authorized("bot", "carol") {
		t.Error("bot should act for carol now")
	}

	// Alice can no longer revoke a mapping she does not own.
	if err := registry.Revoke("alice", "bot"); !errors.Is(err, models.ErrNotYourDelegate) {
		t.Errorf("expected ErrNotYourDelegate, got %v", err)
	}
}

func TestDelegateRevocation(t *testing.T) {
	registry := services.NewDelegateRegistry(event.NewBus())

	// Revoking a delegate that was never registered fails, even when the
	// caller names itself.
	if err := registry.Revoke("bot", "bot"); !errors.Is(err, models.ErrNotYourDelegate) {
		t.Errorf("expected ErrNotYourDelegate, got %v", err)
	}

	if err := registry.Register("alice", "bot"); err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	if err := registry.Revoke("alice", "bot"); err != nil {
		t.Fatalf("failed to revoke: %v", err)
	}
	if _, ok := registry.PrincipalFor("bot"); ok {
		t.Error("revoked delegate should have no principal")
	}
	if err := registry.Revoke("alice", "bot"); !errors.Is(err, models.ErrNotYourDelegate) {
		t.Errorf("second revoke should fail, got %v", err)
	}
}
