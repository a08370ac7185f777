// Command claudechat is a terminal chat with Claude.
//
// It reads ANTHROPIC_API_KEY (from the environment or a .env file) and an
// optional claudechat.yaml, then alternates between reading a line and
// asking the model until the user types "exit".
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
