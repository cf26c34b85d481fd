// Package main prints a fresh HMAC key for signing registry tokens.
package main

import (
	"flag"
	"os"

	"github.com/louisbranch/mutation-registry/internal/platform/config"
	"github.com/louisbranch/mutation-registry/internal/tools/hmackey"
)

func main() {
	cfg, err := hmackey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := hmackey.Run(cfg, os.Stdout, nil); err != nil {
		config.Exitf("generate key: %v", err)
	}
}
