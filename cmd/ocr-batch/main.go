// Package main provides the batch client entrypoint.
package main

import (
	"os"

	"github.com/lumina-docs/ocr-gateway/cmd/ocr-batch/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
