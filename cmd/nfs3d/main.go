// Command nfs3d serves NFSv3, MOUNT v3, and PORTMAP v2 from an in-memory
// filesystem backend.
package main

import (
	"fmt"
	"os"

	"github.com/lunixbochs/nfs-mamont-mirror/cmd/nfs3d/commands"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	commands.Version = version
	commands.Commit = commit

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
