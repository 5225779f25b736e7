package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	Synth   SynthConfig   `yaml:"synth"`
	Storage StorageConfig `yaml:"storage"`
	Explain ExplainConfig `yaml:"explain"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`     // HTTP Listen Address (e.g. :8080)
	TCPAddr string `yaml:"tcp_addr"` // TCP Listen Address (e.g. :9090)
}

type ModelConfig struct {
	TreeCount int   `yaml:"tree_count"`
	Seed      int64 `yaml:"seed"` // 0 => time-derived (non-deterministic runs)
}

type SynthConfig struct {
	BootSize      int     `yaml:"boot_size"`      // corpus size generated at startup
	TrainFraction float64 `yaml:"train_fraction"` // held-out split for the boot accuracy log
	Seed          int64   `yaml:"seed"`
}

type StorageConfig struct {
	Path         string `yaml:"path"`
	HistoryCache int    `yaml:"history_cache"` // records kept in the in-memory index
	BatchSize    int    `yaml:"batch_size"`    // journal-to-sqlite flush batch
}

type ExplainConfig struct {
	URL       string `yaml:"url"` // empty => explanations disabled
	TimeoutMS int    `yaml:"timeout_ms"`
}

func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:    ":8080",
			TCPAddr: ":9090",
		},
		Model: ModelConfig{
			TreeCount: 40,
		},
		Synth: SynthConfig{
			BootSize:      1200,
			TrainFraction: 0.8,
		},
		Storage: StorageConfig{
			Path:         "risk_data",
			HistoryCache: 1000,
			BatchSize:    200,
		},
		Explain: ExplainConfig{
			TimeoutMS: 8000,
		},
	}

	if configPath == "" {
		for _, p := range []string{"configs/riskcore.yaml", "riskcore.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, err
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		applyDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Model.TreeCount <= 0 {
		cfg.Model.TreeCount = 40
	}
	if cfg.Synth.BootSize <= 0 {
		cfg.Synth.BootSize = 1200
	}
	if cfg.Synth.TrainFraction <= 0 || cfg.Synth.TrainFraction >= 1 {
		cfg.Synth.TrainFraction = 0.8
	}
	if cfg.Storage.HistoryCache <= 0 {
		cfg.Storage.HistoryCache = 1000
	}
	if cfg.Storage.BatchSize <= 0 {
		cfg.Storage.BatchSize = 200
	}
	if cfg.Explain.TimeoutMS <= 0 {
		cfg.Explain.TimeoutMS = 8000
	}
}
