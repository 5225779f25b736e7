package main

import (
	"flag"
	"log"
	"time"

	"riskcore/pkg/api"
	"riskcore/pkg/config"
	"riskcore/pkg/core"
	"riskcore/pkg/explain"
	"riskcore/pkg/history"
	"riskcore/pkg/network"
)

func main() {
	configPath := flag.String("config", "", "Path to riskcore.yaml (default: search configs/)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	hist, err := history.Open(cfg.Storage.Path, cfg.Storage.HistoryCache, cfg.Storage.BatchSize)
	if err != nil {
		log.Fatalf("Failed to open history store: %v", err)
	}

	engine := core.NewEngine(cfg, hist)
	defer engine.Close()

	if err := engine.Boot(); err != nil {
		log.Fatalf("Failed to train boot model: %v", err)
	}

	explainer := explain.New(cfg.Explain.URL, time.Duration(cfg.Explain.TimeoutMS)*time.Millisecond)
	if explainer.Enabled() {
		log.Printf("[Server] Explanation service: %s", cfg.Explain.URL)
	} else {
		log.Printf("[Server] Explanation service disabled")
	}

	tcpServer := network.NewTCPServer(engine)
	go func() {
		if err := tcpServer.Start(cfg.Server.TCPAddr); err != nil {
			log.Fatalf("TCP server failed: %v", err)
		}
	}()

	httpServer := api.NewServer(engine, explainer)
	if err := httpServer.Start(cfg.Server.Addr); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
