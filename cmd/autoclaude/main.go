package main

import (
	"os"

	"github.com/r3e-network/AutoClaude-sub004/cmd/autoclaude/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
