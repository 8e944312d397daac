// Package main provides the entry point for the kbsense knowledge-base CLI.
package main

import (
	"errors"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		printError("%v", err)
		os.Exit(1)
	}
}
