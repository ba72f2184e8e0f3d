// Command bfsnd inspects, converts and plays BFSTM streams and BFSAR archives.
package main

import (
	"fmt"
	"os"
)

// Version information (injected at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
