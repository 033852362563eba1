// Package main is the entry point for the Querypipe CLI application.
// It provides asynchronous SQL execution against configured database
// connections.
package main

import (
	"querypipe/cli/cmd"
)

func main() {
	cmd.Execute()
}
