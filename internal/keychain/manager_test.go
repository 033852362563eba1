// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package keychain

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *Manager {
	return &Manager{ring: keyring.NewArrayKeyring(nil)}
}

func TestPasswordLifecycle(t *testing.T) {
	m := newTestManager()

	_, err := m.LoadPassword("pg/main")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.StorePassword("pg/main", "hunter2"))
	pw, err := m.LoadPassword("pg/main")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)

	// storing again overwrites
	require.NoError(t, m.StorePassword("pg/main", "changed"))
	pw, err = m.LoadPassword("pg/main")
	require.NoError(t, err)
	assert.Equal(t, "changed", pw)

	require.NoError(t, m.DeletePassword("pg/main"))
	_, err = m.LoadPassword("pg/main")
	assert.ErrorIs(t, err, ErrNotFound)

	// clearing an absent password is not an error
	require.NoError(t, m.DeletePassword("pg/other"))
}

func TestPasswordsScopedByConnection(t *testing.T) {
	m := newTestManager()

	require.NoError(t, m.StorePassword("pg/a", "one"))
	require.NoError(t, m.StorePassword("pg/b", "two"))
	require.NoError(t, m.DeletePassword("pg/a"))

	_, err := m.LoadPassword("pg/a")
	assert.ErrorIs(t, err, ErrNotFound)
	pw, err := m.LoadPassword("pg/b")
	require.NoError(t, err)
	assert.Equal(t, "two", pw)
}
