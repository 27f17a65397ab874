// Package main is the entry point for the nativeiq CLI.
package main

import (
	"os"

	"github.com/nativeiq/nativeiq/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
