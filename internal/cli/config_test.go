package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wesleyorama2/tickscope/perf/config"
)

func TestConfigPrintsDefaults(t *testing.T) {
	out, err := execute(t, "config")
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}

	cfg, err := config.ParseConfig([]byte(out), "defaults.yaml")
	if err != nil {
		t.Fatalf("printed defaults do not parse: %v\n%s", err, out)
	}
	config.ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		t.Errorf("printed defaults do not validate: %v", err)
	}
	if cfg.Analysis.TopN != config.Default().Analysis.TopN {
		t.Errorf("topN = %d, want %d", cfg.Analysis.TopN, config.Default().Analysis.TopN)
	}
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, []byte("analysis:\n  topN: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "config", "--validate", good)
	if err != nil {
		t.Fatalf("valid file rejected: %v", err)
	}
	if !strings.Contains(out, "is valid") {
		t.Errorf("unexpected output %q", out)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("analysis:\n  topN: 500\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "config", "--validate", bad); err == nil {
		t.Error("expected an error for topN out of range")
	}

	if _, err := execute(t, "config", "--validate", filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
