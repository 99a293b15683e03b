// Package main is the entry point for the unittesting CLI.
package main

import (
	"os"

	"github.com/AndreyAkinshin/unittesting/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
