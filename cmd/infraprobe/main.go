// Package main is the entry point for the infraprobe CLI.
package main

import (
	"os"

	"github.com/kumasuke/infraprobe/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
