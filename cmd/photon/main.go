// Command photon converts still and animated images between formats.
//
// Usage:
//
//	photon convert [flags] <input>...   Convert files to --format
//	photon info <input>                 Describe a file as the decoders see it
//
// Flags can also be set in a YAML config file (--config) or through
// PHOTON_ environment variables, e.g. PHOTON_QUALITY=90.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
