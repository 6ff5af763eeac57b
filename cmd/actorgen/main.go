// Command actorgen generates persister, validator and query actors from
// annotated model declarations.
package main

import (
	"os"

	"github.com/syssam/actorgen/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
