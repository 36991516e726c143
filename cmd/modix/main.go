// Command modix runs the moderation ledger service and its maintenance tasks.
//
// Usage:
//
//	modix serve
//	modix migrate [--down]
//	modix stats --guild <id> [--since 720h] [--top 5] [--format json]
package main

import (
	"os"

	"github.com/heartmarshall/modix-backend/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
