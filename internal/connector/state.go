// Package connector holds the pieces shared by the provider connectors:
// the credential store contract, OAuth state handling and the common errors.
package connector

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/JahidHasanSagor/Data-Visualization-MVP/internal/models"
)

var (
	ErrNoCredentials = errors.New("no credentials found")
	ErrInvalidState  = errors.New("invalid state parameter")
)

// Store is the subset of the credential vault the connectors use
type Store interface {
	Save(userID, service string, record any) error
	Get(userID, service string, out any) (bool, error)
	Delete(userID, service string) (bool, error)
}

// ProviderError carries a provider's own error message back to the caller
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
}

// NewState returns a URL-safe random token with 32 bytes of entropy
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// BeginState creates and stores a fresh state token for service
func BeginState(store Store, userID, service string, now time.Time) (string, error) {
	state, err := NewState()
	if err != nil {
		return "", err
	}
	record := models.OAuthState{State: state, CreatedAt: now.UTC()}
	if err := store.Save(userID, models.StateKey(service), record); err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}
	return state, nil
}

// ConsumeState verifies state against the stored record and removes it.
// A missing, mismatched or expired state yields ErrInvalidState. The stored
// record is only removed on a match so a forged callback cannot cancel a
// legitimate flow in progress.
func ConsumeState(store Store, userID, service, state string, now time.Time, ttl time.Duration) error {
	var stored models.OAuthState
	found, err := store.Get(userID, models.StateKey(service), &stored)
	if err != nil {
		return fmt.Errorf("failed to load oauth state: %w", err)
	}
	if !found || state == "" || subtle.ConstantTimeCompare([]byte(stored.State), []byte(state)) != 1 {
		return ErrInvalidState
	}

	// Only the caller whose delete removes the record may proceed.
	deleted, err := store.Delete(userID, models.StateKey(service))
	if err != nil {
		return fmt.Errorf("failed to clear oauth state: %w", err)
	}
	if !deleted || stored.Expired(now, ttl) {
		return ErrInvalidState
	}
	return nil
}
