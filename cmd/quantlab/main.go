// Command quantlab is the CLI entry point for the backtesting, strategy
// optimization, and walk-forward validation research platform.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
