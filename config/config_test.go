package config

import (
	"os"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "varasto-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadConfig(t *testing.T) {
	content := `
version: v1
profile: DEFAULT
region: eu-frankfurt-1

roots:
  - ocid1.tenancy.oc1..root

kinds:
  - database
  - host

cache:
  staleness_window: 12h
  history_keep: 5

build:
  max_depth: 6
  workers: 8
`
	cfg, err := LoadConfig(writeConfig(t, content))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Profile != "DEFAULT" {
		t.Errorf("Profile = %v, want DEFAULT", cfg.Profile)
	}
	if cfg.Region != "eu-frankfurt-1" {
		t.Errorf("Region = %v, want eu-frankfurt-1", cfg.Region)
	}
	if len(cfg.Roots) != 1 {
		t.Fatalf("Roots = %v, want 1 entry", cfg.Roots)
	}
	if cfg.Cache.StalenessWindow != 12*time.Hour {
		t.Errorf("StalenessWindow = %v, want 12h", cfg.Cache.StalenessWindow)
	}
	if cfg.Cache.HistoryKeep != 5 {
		t.Errorf("HistoryKeep = %v, want 5", cfg.Cache.HistoryKeep)
	}
	if cfg.Build.MaxDepth != 6 {
		t.Errorf("MaxDepth = %v, want 6", cfg.Build.MaxDepth)
	}
	if len(cfg.ResourceKinds()) != 2 {
		t.Errorf("ResourceKinds() = %v, want 2 kinds", cfg.ResourceKinds())
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	content := `
version: v1
region: us-ashburn-1
roots: [ocid1.tenancy.oc1..root]
`
	cfg, err := LoadConfig(writeConfig(t, content))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Cache.StalenessWindow != DefaultStalenessWindow {
		t.Errorf("StalenessWindow = %v, want default 24h", cfg.Cache.StalenessWindow)
	}
	if cfg.Build.Workers != DefaultWorkers {
		t.Errorf("Workers = %v, want default", cfg.Build.Workers)
	}
	if cfg.Cache.Dir == "" {
		t.Error("Cache.Dir should default to a usable path")
	}
	// Empty kinds selector means collect everything
	if len(cfg.ResourceKinds()) != 2 {
		t.Errorf("ResourceKinds() = %v, want all kinds", cfg.ResourceKinds())
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing version", "region: us-ashburn-1\nroots: [a]"},
		{"missing region", "version: v1\nroots: [a]"},
		{"missing roots", "version: v1\nregion: us-ashburn-1"},
		{"bad kind", "version: v1\nregion: us-ashburn-1\nroots: [a]\nkinds: [bucket]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
