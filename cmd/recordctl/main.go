// Command recordctl manages users stored through recordkit.
package main

import (
	"os"

	"github.com/mesh-intelligence/recordkit/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
