package main

import (
	"fmt"
	"log"
	"time"

	"riskcore/pkg/client"
	"riskcore/pkg/profile"
)

func main() {
	fmt.Println("Connecting to RiskCore...")
	cli, err := client.Dial("localhost:9090")
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer cli.Close()

	p, err := profile.Parse("category=beta-blocker dosage=high age=90 bp=high freq=3")
	if err != nil {
		log.Fatalf("Bad profile: %v", err)
	}

	fmt.Printf("Profile: %+v\n", p)
	start := time.Now()
	label, prob, err := cli.Predict(p.Encode())
	if err != nil {
		log.Fatalf("Predict failed: %v", err)
	}
	fmt.Printf("Risk: %s (confidence %.1f%%, in %v)\n", label, prob*100, time.Since(start))

	importance, err := cli.Importance()
	if err != nil {
		log.Fatalf("Importance failed: %v", err)
	}
	fmt.Printf("Feature importance: %v\n", importance)
}
