// Copyright (c) 2025 Querypipe
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"querypipe/cli/internal/config"
	"querypipe/cli/internal/keychain"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// setPasswordCmd stores a connection password in the OS keychain so the
// config file never needs to carry it.
var setPasswordCmd = &cobra.Command{
	Use:   "set-password <connection>",
	Short: "Store a connection password in the OS keychain",
	Long: `The set-password command prompts for a password and stores it in the OS
keychain under the given connection name. Set password_from_keyring: true on
the matching connection block to use it instead of an inline password.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		cfg, _, err := loadSetup()
		if err != nil {
			return err
		}
		if !configuredConnection(cfg, name) {
			return fmt.Errorf("connection %q is not configured in %s", name, configPath)
		}

		km, err := keychain.NewManager()
		if err != nil {
			pterm.Println("❌ Secure storage is not available on this system")
			return err
		}

		reader := bufio.NewReader(os.Stdin)
		fmt.Printf("Enter password for %s: ", name)
		raw, _ := reader.ReadString('\n')
		password := strings.TrimSuffix(strings.TrimSuffix(raw, "\n"), "\r")
		if password == "" {
			return errors.New("password is required")
		}

		if err := km.StorePassword(name, password); err != nil {
			return err
		}
		pterm.Println("✅ Password stored in the OS keychain")
		pterm.Println("   Set password_from_keyring: true on the " + name + " block to use it")
		return nil
	},
}

// clearPasswordCmd removes a stored connection password.
var clearPasswordCmd = &cobra.Command{
	Use:   "clear-password <connection>",
	Short: "Remove a stored connection password from the OS keychain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		km, err := keychain.NewManager()
		if err != nil {
			pterm.Println("❌ Secure storage is not available on this system")
			return err
		}
		if err := km.DeletePassword(name); err != nil {
			return err
		}
		pterm.Println("✅ Stored password removed")
		return nil
	},
}

func configuredConnection(cfg config.Config, name string) bool {
	return lo.ContainsBy(cfg.Connections, func(c config.Connection) bool {
		return c.Name == name
	})
}

func init() {
	connectionsCmd.AddCommand(setPasswordCmd, clearPasswordCmd)
}
