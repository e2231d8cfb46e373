package main

import (
	"os"

	"github.com/alphadesk/tradedash/cmd/tradedash/commands"
)

// main is the entry point for the tradedash CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/tradedash [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
