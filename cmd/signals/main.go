package main

import (
	"os"

	"github.com/KeyzrSoze/signals/cmd/signals/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
