package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	_, err := Load("/nonexistent/path/riskcore.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
	// Load with empty path uses default search (may use defaults if no config file)
	cfg, _ := Load("")
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr: got %s", cfg.Server.Addr)
	}
	if cfg.Server.TCPAddr != ":9090" {
		t.Errorf("default tcp_addr: got %s", cfg.Server.TCPAddr)
	}
	if cfg.Model.TreeCount != 40 {
		t.Errorf("default tree_count: got %d", cfg.Model.TreeCount)
	}
	if cfg.Synth.BootSize != 1200 {
		t.Errorf("default boot_size: got %d", cfg.Synth.BootSize)
	}
	if cfg.Storage.BatchSize != 200 {
		t.Errorf("default batch_size: got %d", cfg.Storage.BatchSize)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
server:
  addr: ":9000"
  tcp_addr: ":9001"
model:
  tree_count: 20
  seed: 42
synth:
  boot_size: 600
  train_fraction: 0.75
storage:
  path: "test_data"
  history_cache: 500
  batch_size: 100
explain:
  url: "http://localhost:11434/explain"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr: got %s", cfg.Server.Addr)
	}
	if cfg.Model.TreeCount != 20 {
		t.Errorf("tree_count: got %d", cfg.Model.TreeCount)
	}
	if cfg.Model.Seed != 42 {
		t.Errorf("seed: got %d", cfg.Model.Seed)
	}
	if cfg.Synth.BootSize != 600 {
		t.Errorf("boot_size: got %d", cfg.Synth.BootSize)
	}
	if cfg.Synth.TrainFraction != 0.75 {
		t.Errorf("train_fraction: got %v", cfg.Synth.TrainFraction)
	}
	if cfg.Storage.HistoryCache != 500 {
		t.Errorf("history_cache: got %d", cfg.Storage.HistoryCache)
	}
	if cfg.Explain.URL != "http://localhost:11434/explain" {
		t.Errorf("explain url: got %s", cfg.Explain.URL)
	}
	// timeout not set in file, default applies
	if cfg.Explain.TimeoutMS != 8000 {
		t.Errorf("explain timeout: got %d", cfg.Explain.TimeoutMS)
	}
}
