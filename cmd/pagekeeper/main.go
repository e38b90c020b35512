// Package main provides the pagekeeper command: it drives a browser page of
// the shipping application and keeps the configured patches applied to it,
// and it edits the feature toggles the running agent reacts to.
package main

import (
	"os"
)

// version can be set during build with -ldflags
var version = "dev"

func main() {
	root := newRootCmd()
	root.Version = version
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
