package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"riskcore/pkg/client"
	"riskcore/pkg/common"
	"riskcore/pkg/profile"
)

const Prompt = "risk> "

func main() {
	serverAddr := flag.String("addr", "localhost:9090", "RiskCore TCP Server Address")
	flag.Parse()

	fmt.Printf("RiskCore CLI (Target: %s)\n", *serverAddr)
	fmt.Println("Connecting...")

	cli, err := client.Dial(*serverAddr)
	if err != nil {
		fmt.Printf("Connection failed: %v\n", err)
		fmt.Println("Tip: Ensure the server is running (e.g. go run cmd/server/main.go).")
		return
	}
	defer cli.Close()
	fmt.Println("Connected! Type 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(Prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "predict":
			handlePredict(cli, parts)
		case "train":
			handleTrain(cli, parts)
		case "importance":
			handleImportance(cli)
		case "stats":
			handleStats(cli)
		case "help":
			printHelp()
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Printf("Unknown command: '%s'. Type 'help'.\n", cmd)
		}
	}
}

func handlePredict(cli *client.Client, parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: predict key=value ... (e.g. predict age=90 category=beta-blocker bp=high)")
		return
	}

	p, err := profile.Parse(strings.Join(parts[1:], " "))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	start := time.Now()
	label, prob, err := cli.Predict(p.Encode())
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Printf("%s risk, confidence %.1f%% (%v)\n", label, prob*100, duration)
	}
}

func handleTrain(cli *client.Client, parts []string) {
	count := 1200
	if len(parts) >= 2 {
		parsed, err := strconv.Atoi(parts[1])
		if err != nil {
			fmt.Println("Error: Count must be an integer (e.g. 1200)")
			return
		}
		count = parsed
	}

	fmt.Printf("Retraining on %d synthetic examples...\n", count)
	start := time.Now()
	err := cli.Train(count)
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Printf("OK (%v)\n", duration)
	}
}

func handleImportance(cli *client.Client) {
	importance, err := cli.Importance()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("Feature importance:")
	for i, imp := range importance {
		name := ""
		if i < common.FeatureCount {
			name = common.FeatureNames[i]
		}
		fmt.Printf("  %-12s %.4f %s\n", name, imp, bar(imp))
	}
}

func handleStats(cli *client.Client) {
	stats, err := cli.Stats()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	for k, v := range stats {
		fmt.Printf("  %-16s %d\n", k, v)
	}
}

func bar(v float64) string {
	n := int(v * 40)
	return strings.Repeat("#", n)
}

func printHelp() {
	fmt.Println(`
Commands:
  predict key=value ...   Classify a profile (fields: category, dosage, age,
                          weight, sex, bp, freq, lifestyle)
  train [count]           Retrain on a fresh synthetic corpus
  importance              Show normalized feature importance
  stats                   Show server workload counters
  help                    This help
  exit                    Quit`)
}
