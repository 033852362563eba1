// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads the querypipe configuration file. Only non-secret
// settings belong in the file; a connection can opt into resolving its
// password from the OS keychain instead of storing it on disk.
package config

import (
	"fmt"
	"os"

	"querypipe/cli/internal/dsn"

	"gopkg.in/yaml.v3"
)

// Config holds the full configuration file contents.
type Config struct {
	LogLevel    string       `yaml:"log_level"`
	Connections []Connection `yaml:"connections"`
}

// Connection is one logical connection block.
type Connection struct {
	Name     string `yaml:"name"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// PasswordFromKeyring resolves the password from the OS keychain under
	// the connection name, ignoring the Password field.
	PasswordFromKeyring bool `yaml:"password_from_keyring"`
}

// PasswordSource resolves stored passwords for keyring-backed connections.
// keychain.Manager satisfies it.
type PasswordSource interface {
	LoadPassword(conn string) (string, error)
}

// Load reads and parses the configuration file at path.
func Load(path string) (Config, error) {
	var c Config

	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c, nil
}

// Parse parses configuration from raw bytes. Used by tests and by callers
// that already hold the file contents.
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c, nil
}

// Descriptors converts the connection blocks into validated descriptors,
// resolving keyring-backed passwords through src. src may be nil when no
// block sets password_from_keyring.
func (c Config) Descriptors(src PasswordSource) ([]dsn.Descriptor, error) {
	seen := make(map[string]struct{}, len(c.Connections))
	out := make([]dsn.Descriptor, 0, len(c.Connections))

	for _, cc := range c.Connections {
		d := dsn.Descriptor{
			Name:     cc.Name,
			Host:     cc.Host,
			Port:     cc.Port,
			Database: cc.Database,
			User:     cc.User,
			Password: cc.Password,
		}.WithDefaults()

		if cc.PasswordFromKeyring {
			if src == nil {
				return nil, fmt.Errorf("connection %q wants a keyring password but no keyring is available", cc.Name)
			}
			pw, err := src.LoadPassword(cc.Name)
			if err != nil {
				return nil, fmt.Errorf("resolve password for %q: %w", cc.Name, err)
			}
			d.Password = pw
		}

		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("duplicate connection name %q", d.Name)
		}
		seen[d.Name] = struct{}{}
		out = append(out, d)
	}

	return out, nil
}
