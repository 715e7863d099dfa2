package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "8080" {
		t.Fatalf("APIPort = %q", cfg.APIPort)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 100 {
		t.Fatalf("chunking defaults = %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.RRFK != 60 || cfg.TopK != 10 || cfg.Candidates != 20 {
		t.Fatalf("retrieval defaults = %d/%d/%d", cfg.RRFK, cfg.TopK, cfg.Candidates)
	}
	if cfg.FilterResults {
		t.Fatal("result filter should default to off")
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9999")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("FILTER_RESULTS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "9999" {
		t.Fatalf("APIPort = %q", cfg.APIPort)
	}
	if cfg.ChunkSize != 500 {
		t.Fatalf("ChunkSize = %d", cfg.ChunkSize)
	}
	if !cfg.FilterResults {
		t.Fatal("FILTER_RESULTS override not applied")
	}
}

func TestLoadReadsYAMLFileAndEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "api_port: \"7777\"\nelastic_index: from-file\nchunk_size: 800\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("ELASTIC_INDEX", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "7777" {
		t.Fatalf("APIPort = %q, want file value", cfg.APIPort)
	}
	if cfg.ChunkSize != 800 {
		t.Fatalf("ChunkSize = %d, want file value", cfg.ChunkSize)
	}
	if cfg.ElasticIndex != "from-env" {
		t.Fatalf("ElasticIndex = %q, env must win over file", cfg.ElasticIndex)
	}
}

func TestLoadRejectsMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/does/not/exist.yaml")
	if _, err := Load(); !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestValidateRejectsBadChunking(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }},
		{"overlap not smaller than size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }},
		{"zero top_k", func(c *Config) { c.TopK = 0 }},
		{"candidates below top_k", func(c *Config) { c.Candidates = 5; c.TopK = 10 }},
		{"missing elastic index", func(c *Config) { c.ElasticIndex = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.mod(&cfg)
			if err := cfg.Validate(); !domain.IsKind(err, domain.ErrConfiguration) {
				t.Fatalf("err = %v, want ErrConfiguration", err)
			}
		})
	}
}
