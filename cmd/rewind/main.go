// Command rewind records ledger events into archived sessions and moves
// through their history.
package main

import (
	"os"

	"github.com/roach88/rewind/internal/cli"
)

func main() {
	os.Exit(cli.Main(os.Args[1:], os.Stdout, os.Stderr))
}
