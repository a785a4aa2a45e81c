// Package vault stores per-user third-party credentials in a single
// age-encrypted file.
//
// The file holds the whole mapping user_id -> service -> record as one
// ciphertext. Every write re-encrypts the full mapping and replaces the file
// atomically, so readers never observe a partial write.
package vault

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"filippo.io/age"
	"github.com/natefinch/atomic"
)

// ErrCorrupt is returned when the vault file exists but cannot be decrypted
// or decoded. Writes are refused until the file is repaired or removed, so a
// wrong key never silently wipes stored credentials.
var ErrCorrupt = errors.New("credential vault is unreadable")

type contents map[string]map[string]json.RawMessage

type Vault struct {
	path     string
	identity *age.X25519Identity
	mu       sync.Mutex
}

// New returns a vault backed by the file at path and encrypted for identity.
// The file is created on first Save.
func New(path string, identity *age.X25519Identity) *Vault {
	return &Vault{path: path, identity: identity}
}

// GenerateKey creates a new vault key
func GenerateKey() (*age.X25519Identity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return identity, nil
}

// ParseKey parses an AGE-SECRET-KEY-1... string
func ParseKey(key string) (*age.X25519Identity, error) {
	identity, err := age.ParseX25519Identity(key)
	if err != nil {
		return nil, fmt.Errorf("parsing encryption key: %w", err)
	}
	return identity, nil
}

// Save stores record (JSON-encoded) under userID/service, replacing any
// previous value.
func (v *Vault) Save(userID, service string, record any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding %s credentials: %w", service, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	all, err := v.load()
	if err != nil {
		return err
	}
	if all[userID] == nil {
		all[userID] = make(map[string]json.RawMessage)
	}
	all[userID][service] = raw

	return v.store(all)
}

// Get decodes the record stored under userID/service into out. It reports
// false when the file, user or service does not exist.
func (v *Vault) Get(userID, service string, out any) (bool, error) {
	v.mu.Lock()
	all, err := v.load()
	v.mu.Unlock()
	if err != nil {
		return false, err
	}

	raw, ok := all[userID][service]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decoding %s credentials: %w", service, err)
	}
	return true, nil
}

// Delete removes one service entry, or every entry for userID when service is
// empty. It reports false when there was nothing to remove.
func (v *Vault) Delete(userID, service string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	all, err := v.load()
	if err != nil {
		return false, err
	}

	entries, ok := all[userID]
	if !ok {
		return false, nil
	}
	if service == "" {
		delete(all, userID)
	} else {
		if _, ok := entries[service]; !ok {
			return false, nil
		}
		delete(entries, service)
		if len(entries) == 0 {
			delete(all, userID)
		}
	}

	if err := v.store(all); err != nil {
		return false, err
	}
	return true, nil
}

// Prune removes, in a single write, every entry for which drop returns true.
// It returns the number of entries removed.
func (v *Vault) Prune(drop func(userID, service string, raw []byte) bool) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	all, err := v.load()
	if err != nil {
		return 0, err
	}

	removed := 0
	for userID, entries := range all {
		for service, raw := range entries {
			if drop(userID, service, raw) {
				delete(entries, service)
				removed++
			}
		}
		if len(entries) == 0 {
			delete(all, userID)
		}
	}
	if removed == 0 {
		return 0, nil
	}

	if err := v.store(all); err != nil {
		return 0, err
	}
	return removed, nil
}

// Users lists the user IDs with at least one stored record
func (v *Vault) Users() ([]string, error) {
	v.mu.Lock()
	all, err := v.load()
	v.mu.Unlock()
	if err != nil {
		return nil, err
	}

	users := make([]string, 0, len(all))
	for id := range all {
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

// Services lists the service names stored for userID
func (v *Vault) Services(userID string) ([]string, error) {
	v.mu.Lock()
	all, err := v.load()
	v.mu.Unlock()
	if err != nil {
		return nil, err
	}

	services := make([]string, 0, len(all[userID]))
	for name := range all[userID] {
		services = append(services, name)
	}
	sort.Strings(services)
	return services, nil
}

// load reads and decrypts the vault file. A missing file is an empty vault.
func (v *Vault) load() (contents, error) {
	data, err := os.ReadFile(v.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(contents), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading vault file: %w", err)
	}
	if len(data) == 0 {
		return make(contents), nil
	}

	r, err := age.Decrypt(bytes.NewReader(data), v.identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	all := make(contents)
	if err := json.Unmarshal(plain, &all); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return all, nil
}

// store encrypts the full mapping and atomically replaces the vault file.
func (v *Vault) store(all contents) error {
	plain, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("encoding vault: %w", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, v.identity.Recipient())
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := w.Write(plain); err != nil {
		return fmt.Errorf("encrypting vault: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}

	if dir := filepath.Dir(v.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating vault directory: %w", err)
		}
	}
	if err := atomic.WriteFile(v.path, &buf); err != nil {
		return fmt.Errorf("writing vault file: %w", err)
	}
	return nil
}
