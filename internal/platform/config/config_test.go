package config

import (
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Port     int           `env:"MUTATION_REGISTRY_TEST_PORT" envDefault:"123"`
	CacheTTL time.Duration `env:"MUTATION_REGISTRY_TEST_CACHE_TTL" envDefault:"0s"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
	if cfg.CacheTTL != 0 {
		t.Fatalf("expected zero cache ttl, got %v", cfg.CacheTTL)
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("MUTATION_REGISTRY_TEST_PORT", "9000")
	t.Setenv("MUTATION_REGISTRY_TEST_CACHE_TTL", "30s")

	var cfg envTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("port = %d, want 9000", cfg.Port)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Fatalf("cache ttl = %v, want 30s", cfg.CacheTTL)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("MUTATION_REGISTRY_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

// os.Exit cannot be intercepted in-process, so the exit path runs in a
// re-executed test binary.
func TestExitfExitsWithCode1(t *testing.T) {
	if os.Getenv("TEST_EXITF_SUBPROCESS") == "1" {
		Exitf("fatal: %s", "registry broke")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitfExitsWithCode1$")
	cmd.Env = append(os.Environ(), "TEST_EXITF_SUBPROCESS=1")

	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %d", exitErr.ExitCode())
	}
	if !strings.Contains(string(out), "fatal: registry broke") {
		t.Fatalf("expected stderr to contain %q, got %q", "fatal: registry broke", string(out))
	}
}
