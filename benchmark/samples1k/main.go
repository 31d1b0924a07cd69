package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var maxSources int = 1000
var samplesPerSource int = 3
var httpHostPort string = "127.0.0.1:1080"

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

var fired atomic.Int64
var limited atomic.Int64

func main() {
	sources := make([]string, maxSources)
	for i := range maxSources {
		sources[i] = "press-" + uuid.NewString()[:8]
	}
	fmt.Printf("generated %v sample sources\n", maxSources)

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}

	fmt.Printf("http server verified\n")

	loadRules()

	startTime := time.Now()
	wg := sync.WaitGroup{}
	for i := range maxSources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range samplesPerSource {
				postSample(sources[i])
				time.Sleep(time.Duration(50+rndInt(200)) * time.Millisecond)
			}
		}()
	}
	wg.Wait()
	usedTime := time.Since(startTime)

	total := maxSources * samplesPerSource
	fmt.Printf(
		"\rposted %v samples: used time=%v seconds, throughput=%v samples/second, fired=%v, rate limited=%v\n",
		total, usedTime.Seconds(), float64(total)/usedTime.Seconds(), fired.Load(), limited.Load(),
	)
}

func rndInt(n int32) int32 {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Int31n(n)
}

func rndFloat64(min, max float64, decimal int) float64 {
	rndMu.Lock()
	val := min + rnd.Float64()*(max-min)
	rndMu.Unlock()
	multiplier := math.Pow10(decimal)
	return math.Round(val*multiplier) / multiplier
}

func loadRules() {
	rules := []map[string]any{
		{
			"id":              "bench-overheat",
			"name":            "Benchmark overheat",
			"category":        "production",
			"condition":       "temperature > 90",
			"severity":        "high",
			"enabled":         true,
			"channels":        []string{"desktop"},
			"recipients":      []string{"bench-supervisor"},
			"cooldownSeconds": 0,
		},
		{
			"id":              "bench-vibration",
			"name":            "Benchmark vibration",
			"category":        "maintenance",
			"condition":       "vibration > 7.5 && load > 0.8",
			"severity":        "medium",
			"enabled":         true,
			"channels":        []string{"desktop"},
			"recipients":      []string{"bench-maintenance"},
			"cooldownSeconds": 1,
		},
	}
	jsonData, _ := json.Marshal(rules)
	resp, err := http.Post(fmt.Sprintf("http://%s/rules/load", httpHostPort), "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		log.Fatal("Failed to load rules:", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("rules load rejected: %v", resp.Status)
	}
	fmt.Printf("benchmark rules loaded\n")
}

func postSample(source string) {
	payload := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"source":    source,
		"fields": map[string]any{
			"temperature": rndFloat64(20.0, 100.0, 2),
			"vibration":   rndFloat64(0.0, 10.0, 2),
			"load":        rndFloat64(0.0, 1.0, 2),
		},
	}

	jsonData, _ := json.Marshal(payload)
	resp, err := http.Post(fmt.Sprintf("http://%s/samples", httpHostPort), "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		fmt.Printf("\nerror: %v\n", err)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		limited.Add(1)
	case http.StatusOK:
		var report struct {
			FiredRules []string `json:"firedRules"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&report); err == nil {
			fired.Add(int64(len(report.FiredRules)))
		}
	default:
		fmt.Printf("\nunexpected status %v for %v\n", resp.Status, source)
	}
	fmt.Printf("\rposted sample for %v", source)
}
