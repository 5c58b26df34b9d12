// Package creds resolves the two bearer credentials the harness runs with.
package creds

import (
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/ofspectrum/apicheck/internal/config"
	"github.com/ofspectrum/apicheck/internal/output"
)

const serviceName = "apicheck"

// Keyring entry names for the two credentials.
const (
	KeyUserA = "api_key_a"
	KeyUserB = "api_key_b"
)

// Credentials holds the two resolved bearer keys.
type Credentials struct {
	KeyA string
	KeyB string
}

// Store resolves credentials from the environment with a system-keyring
// fallback. Environment values always win.
type Store struct {
	useKeyring bool
}

// NewStore creates a credential store.
func NewStore(cfg *config.Config) *Store {
	if cfg.NoKeyring {
		return &Store{useKeyring: false}
	}
	return &Store{useKeyring: true}
}

// UsingKeyring reports whether the keyring fallback is enabled.
func (s *Store) UsingKeyring() bool {
	return s.useKeyring
}

// Resolve returns both credentials or a usage error naming what is missing.
// No network activity happens before this check.
func (s *Store) Resolve(cfg *config.Config) (Credentials, error) {
	c := Credentials{
		KeyA: cfg.APIKeyA,
		KeyB: cfg.APIKeyB,
	}

	if c.KeyA == "" && s.useKeyring {
		if v, err := keyring.Get(serviceName, KeyUserA); err == nil {
			c.KeyA = v
		}
	}
	if c.KeyB == "" && s.useKeyring {
		if v, err := keyring.Get(serviceName, KeyUserB); err == nil {
			c.KeyB = v
		}
	}

	var missing []string
	if c.KeyA == "" {
		missing = append(missing, "APICHECK_API_KEY_A")
	}
	if c.KeyB == "" {
		missing = append(missing, "APICHECK_API_KEY_B")
	}
	if len(missing) > 0 {
		return Credentials{}, output.ErrUsageHint(
			fmt.Sprintf("Missing credentials: %v", missing),
			"Set the environment variables, or store keys in the system keyring (service \"apicheck\", entries \"api_key_a\"/\"api_key_b\")",
		)
	}

	return c, nil
}

// Save writes a credential into the system keyring.
func (s *Store) Save(entry, value string) error {
	if !s.useKeyring {
		return output.ErrUsage("Keyring disabled via APICHECK_NO_KEYRING")
	}
	if entry != KeyUserA && entry != KeyUserB {
		return output.ErrUsage(fmt.Sprintf("Unknown credential entry %q", entry))
	}
	if err := keyring.Set(serviceName, entry, value); err != nil {
		fmt.Fprintf(os.Stderr, "warning: system keyring unavailable: %v\n", err)
		return err
	}
	return nil
}

// Delete removes a credential from the system keyring.
func (s *Store) Delete(entry string) error {
	if !s.useKeyring {
		return output.ErrUsage("Keyring disabled via APICHECK_NO_KEYRING")
	}
	return keyring.Delete(serviceName, entry)
}
