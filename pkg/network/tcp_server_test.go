package network

import (
	"net"
	"testing"

	"riskcore/pkg/client"
	"riskcore/pkg/config"
	"riskcore/pkg/core"
	"riskcore/pkg/history"
	"riskcore/pkg/profile"
)

func startTestServer(t *testing.T) string {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Model.Seed = 42
	cfg.Model.TreeCount = 20
	cfg.Synth.Seed = 42
	cfg.Synth.BootSize = 600
	cfg.Storage.Path = t.TempDir()

	hist, err := history.Open(cfg.Storage.Path, cfg.Storage.HistoryCache, cfg.Storage.BatchSize)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	engine := core.NewEngine(cfg, hist)
	t.Cleanup(engine.Close)
	if err := engine.Boot(); err != nil {
		t.Fatalf("boot: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })
	go NewTCPServer(engine).Serve(listener)

	return listener.Addr().String()
}

func TestPredictOverTCP(t *testing.T) {
	addr := startTestServer(t)

	cli, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer cli.Close()

	p, err := profile.Parse("category=antibiotic dosage=high age=85 weight=50 bp=high freq=3")
	if err != nil {
		t.Fatalf("parse profile: %v", err)
	}
	label, prob, err := cli.Predict(p.Encode())
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if !label.Valid() {
		t.Errorf("label out of range: %d", int(label))
	}
	if prob < 0 || prob > 1 {
		t.Errorf("probability out of range: %v", prob)
	}
}

func TestPredictOverTCPRejectsShortVector(t *testing.T) {
	addr := startTestServer(t)

	cli, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer cli.Close()

	if _, _, err := cli.Predict([]float64{1, 2, 3}); err == nil {
		t.Error("short vector must be rejected")
	}
}

func TestTrainImportanceStatsOverTCP(t *testing.T) {
	addr := startTestServer(t)

	cli, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer cli.Close()

	if err := cli.Train(300); err != nil {
		t.Fatalf("train: %v", err)
	}
	if err := cli.Train(-2); err == nil {
		t.Error("negative corpus size must be rejected")
	}

	importance, err := cli.Importance()
	if err != nil {
		t.Fatalf("importance: %v", err)
	}
	if len(importance) != 8 {
		t.Fatalf("importance slots: %d", len(importance))
	}
	sum := 0.0
	for _, v := range importance {
		sum += v
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("importance sum %v", sum)
	}

	stats, err := cli.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats["trainings"] != 2 { // boot + client train
		t.Errorf("trainings: %v", stats)
	}
}
