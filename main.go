package main

import (
	"os"

	"github.com/theapemachine/agentdeck/cmd"
	_ "github.com/theapemachine/agentdeck/pkg/agents"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
