// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe access to the OS
// keychain/credential store. Connection passwords marked as keyring-sourced
// in the configuration are resolved through this package instead of being
// written into the config file.
package keychain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "querypipe"

// ErrNotFound is returned when no password is stored for a connection.
var ErrNotFound = errors.New("keychain: no stored password")

// Manager provides thread-safe operations on the OS keychain.
type Manager struct {
	mu   sync.Mutex
	ring keyring.Keyring
}

// NewManager opens the OS keyring for the querypipe namespace.
func NewManager() (*Manager, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return &Manager{ring: ring}, nil
}

func passwordKey(conn string) string { return "db_password/" + conn }

// LoadPassword returns the stored password for the named connection.
func (m *Manager) LoadPassword(conn string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, err := m.ring.Get(passwordKey(conn))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(item.Data), nil
}

// StorePassword saves the password for the named connection.
func (m *Manager) StorePassword(conn, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ring.Set(keyring.Item{
		Key:   passwordKey(conn),
		Data:  []byte(password),
		Label: ServiceName + " " + conn,
	})
}

// DeletePassword removes the stored password for the named connection.
func (m *Manager) DeletePassword(conn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ring.Remove(passwordKey(conn)); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}
