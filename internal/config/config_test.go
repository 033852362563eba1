// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
log_level: debug
connections:
  - name: pg/main
    host: db.internal
    port: 5433
    database: services
    user: svc
    password: hunter2
  - name: pg/audit
    database: audit
    user: auditor
    password_from_keyring: true
`

type fakeSource map[string]string

func (f fakeSource) LoadPassword(conn string) (string, error) {
	return f[conn], nil
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", c.LogLevel)
	require.Len(t, c.Connections, 2)
	assert.Equal(t, "pg/main", c.Connections[0].Name)
	assert.Equal(t, 5433, c.Connections[0].Port)
	assert.True(t, c.Connections[1].PasswordFromKeyring)
}

func TestParseDefaultsLogLevel(t *testing.T) {
	c, err := Parse([]byte("connections: []"))
	require.NoError(t, err)
	assert.Equal(t, "info", c.LogLevel)
}

func TestDescriptors(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	descs, err := c.Descriptors(fakeSource{"pg/audit": "fromring"})
	require.NoError(t, err)
	require.Len(t, descs, 2)

	assert.Equal(t, "hunter2", descs[0].Password)
	assert.Equal(t, "fromring", descs[1].Password)

	// defaults filled for the block that omitted host/port
	assert.Equal(t, "127.0.0.1", descs[1].Host)
	assert.Equal(t, 5432, descs[1].Port)
}

func TestDescriptorsRejectsDuplicates(t *testing.T) {
	c, err := Parse([]byte(`
connections:
  - {name: pg/main, database: a, user: u}
  - {name: pg/main, database: b, user: u}
`))
	require.NoError(t, err)

	_, err = c.Descriptors(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate connection name")
}

func TestDescriptorsKeyringWithoutSource(t *testing.T) {
	c, err := Parse([]byte(`
connections:
  - {name: pg/main, database: a, user: u, password_from_keyring: true}
`))
	require.NoError(t, err)

	_, err = c.Descriptors(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no keyring")
}
