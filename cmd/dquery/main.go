// Command dquery indexes scanned PDFs into a vector store and searches them.
package main

import (
	"os"

	"github.com/custodia-labs/dquery/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	os.Exit(cli.Execute())
}
