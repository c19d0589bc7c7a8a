// Command greenmovectl derives ledger addresses and submits instructions to
// the rewards worker over RabbitMQ.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
