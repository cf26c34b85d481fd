// Package hmackey generates HMAC keys for signing registry caller tokens.
package hmackey

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"

	"github.com/louisbranch/mutation-registry/internal/platform/config"
	"github.com/louisbranch/mutation-registry/internal/services/registry/auth"
)

// EnvName is the variable the generated key is printed for.
const EnvName = config.EnvPrefix + "AUTH_HMAC_KEY"

// Config holds configuration for HMAC key generation.
type Config struct {
	Bytes int
	Raw   bool
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: auth.MinKeyBytes}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes")
	fs.BoolVar(&cfg.Raw, "raw", false, "print only the hex key")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the key and writes it to out.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes < auth.MinKeyBytes {
		return fmt.Errorf("bytes must be at least %d", auth.MinKeyBytes)
	}
	if out == nil {
		return fmt.Errorf("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	key := hex.EncodeToString(buf)
	if cfg.Raw {
		_, err := fmt.Fprintln(out, key)
		return err
	}
	_, err := fmt.Fprintf(out, "%s=%s\n", EnvName, key)
	return err
}
