// Command ndvi drives the NDVI analysis backend from a terminal.
package main

import (
	"os"
)

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}
