// Package main is the entry point for the epubgen CLI.
package main

import (
	"os"

	"github.com/simp-lee/epubgen/cmd/epubgen/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
