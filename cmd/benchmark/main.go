package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"time"

	"riskcore/pkg/common"
	"riskcore/pkg/protocol"
)

func main() {
	httpAddr := flag.String("http", "http://localhost:8080", "HTTP API base URL")
	tcpAddr := flag.String("tcp", "localhost:9090", "TCP server address")
	nReq := flag.Int("n", 5000, "Number of predict requests per run")
	seed := flag.Int64("seed", 1, "Seed for the probe vectors")
	flag.Parse()

	fmt.Printf("RiskCore Predict Benchmark (N=%d)\n", *nReq)
	fmt.Printf("  HTTP=%s  TCP=%s\n", *httpAddr, *tcpAddr)
	fmt.Println("---------------------------------------------------")

	vectors := probeVectors(*nReq, *seed)

	fmt.Println(">> Starting HTTP Benchmark (JSON over HTTP 1.1)...")
	httpDuration := runHTTPBenchmark(*httpAddr, vectors)
	fmt.Printf("   HTTP Time: %v | QPS: %.0f\n\n", httpDuration, float64(*nReq)/httpDuration.Seconds())

	fmt.Println(">> Starting TCP Benchmark (Binary Protocol)...")
	tcpDuration := runTCPBenchmark(*tcpAddr, vectors)
	fmt.Printf("   TCP  Time: %v | QPS: %.0f\n", tcpDuration, float64(*nReq)/tcpDuration.Seconds())

	fmt.Println("---------------------------------------------------")
	speedup := httpDuration.Seconds() / tcpDuration.Seconds()
	fmt.Printf("Conclusion: TCP is %.2fx faster than HTTP!\n", speedup)
}

// probeVectors draws valid encoded vectors across each slot's domain.
func probeVectors(n int, seed int64) []common.FeatureVector {
	rng := rand.New(rand.NewSource(seed))
	out := make([]common.FeatureVector, n)
	for i := range out {
		v := make(common.FeatureVector, common.FeatureCount)
		for j, dom := range common.FeatureDomains {
			v[j] = dom.Min + rng.Float64()*(dom.Max-dom.Min)
		}
		out[i] = v
	}
	return out
}

func runHTTPBenchmark(httpAddr string, vectors []common.FeatureVector) time.Duration {
	start := time.Now()
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 100,
		},
	}

	for _, v := range vectors {
		jsonData, _ := json.Marshal(map[string]interface{}{"features": v})

		resp, err := client.Post(httpAddr+"/api/predict", "application/json", bytes.NewReader(jsonData))
		if err != nil {
			log.Fatalf("HTTP Req failed: %v", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	return time.Since(start)
}

func runTCPBenchmark(addr string, vectors []common.FeatureVector) time.Duration {
	start := time.Now()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Fatalf("TCP Connect failed: %v", err)
	}
	defer conn.Close()

	for _, v := range vectors {
		if err := protocol.Encode(conn, protocol.OpPredict, protocol.EncodeVector(v)); err != nil {
			log.Fatalf("TCP Write failed: %v", err)
		}

		if _, err := protocol.Decode(conn); err != nil {
			log.Fatalf("TCP Read failed: %v", err)
		}
	}

	return time.Since(start)
}
