// demo_fit.go drives a full weight identification round trip against a running
// Reidentify API: rank a generated decision matrix with hidden weights, ask the service
// to recover them from the ranking alone, then poll until the fit finishes.
//
// Usage:
//
//	go run scripts/demo_fit.go -api http://localhost:8700 -alternatives 20 -weights 0.2,0.3,0.5
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type rankRequest struct {
	Matrix  [][]float64 `json:"matrix"`
	Weights []float64   `json:"weights"`
	Types   []float64   `json:"types,omitempty"`
}

type rankResponse struct {
	Weights []float64 `json:"weights"`
	Ranking []float64 `json:"ranking"`
}

type fitRequest struct {
	Matrix    [][]float64 `json:"matrix"`
	Target    []float64   `json:"target"`
	Bounds    [][]float64 `json:"bounds"`
	Types     []float64   `json:"types,omitempty"`
	Optimizer string      `json:"optimizer,omitempty"`
	Seed      *uint64     `json:"seed,omitempty"`
	Source    string      `json:"source"`
}

type fitRun struct {
	ID      string    `json:"run_id"`
	Status  string    `json:"status"`
	Weights []float64 `json:"weights"`
	Fitness *float64  `json:"fitness"`
	Error   string    `json:"error"`
	Evals   int       `json:"evaluations"`
}

func main() {
	apiURL := flag.String("api", "http://localhost:8700", "Reidentify API base URL")
	alternatives := flag.Int("alternatives", 20, "number of generated alternatives")
	weightsFlag := flag.String("weights", "0.2,0.3,0.5", "hidden criterion weights, comma separated")
	optimizer := flag.String("optimizer", "pso", "optimizer to fit with")
	seed := flag.Uint64("seed", 42, "seed for the matrix generator and the optimizer")
	poll := flag.Duration("poll", 500*time.Millisecond, "status poll interval")
	flag.Parse()

	hidden, err := parseWeights(*weightsFlag)
	if err != nil {
		log.Fatalf("parse weights: %v", err)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))
	matrix := make([][]float64, *alternatives)
	for i := range matrix {
		matrix[i] = make([]float64, len(hidden))
		for j := range matrix[i] {
			matrix[i][j] = rng.Float64()
		}
	}

	client := &http.Client{Timeout: 30 * time.Second}

	var ranked rankResponse
	if err := postJSON(client, *apiURL+"/api/v1/rank", rankRequest{Matrix: matrix, Weights: hidden}, http.StatusOK, &ranked); err != nil {
		log.Fatalf("rank: %v", err)
	}
	log.Printf("reference ranking from weights %v: %v", ranked.Weights, ranked.Ranking)

	bounds := make([][]float64, len(hidden))
	for i := range bounds {
		bounds[i] = []float64{0, 1}
	}
	var run fitRun
	req := fitRequest{
		Matrix:    matrix,
		Target:    ranked.Ranking,
		Bounds:    bounds,
		Optimizer: *optimizer,
		Seed:      seed,
		Source:    "demo",
	}
	if err := postJSON(client, *apiURL+"/api/v1/fits", req, http.StatusAccepted, &run); err != nil {
		log.Fatalf("submit fit: %v", err)
	}
	log.Printf("queued run %s", run.ID)

	for {
		time.Sleep(*poll)
		resp, err := client.Get(*apiURL + "/api/v1/fits/" + run.ID)
		if err != nil {
			log.Fatalf("poll: %v", err)
		}
		err = json.NewDecoder(resp.Body).Decode(&run)
		resp.Body.Close()
		if err != nil {
			log.Fatalf("decode run: %v", err)
		}

		switch run.Status {
		case "pending", "running":
			continue
		case "completed":
			fitness := "n/a"
			if run.Fitness != nil {
				fitness = fmt.Sprintf("%.6f", *run.Fitness)
			}
			log.Printf("done: weights=%v fitness=%s evaluations=%d", run.Weights, fitness, run.Evals)
			log.Printf("hidden weights were %v", ranked.Weights)
			return
		default:
			log.Fatalf("run %s ended %s: %s", run.ID, run.Status, run.Error)
		}
	}
}

func postJSON(client *http.Client, url string, body interface{}, want int, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseWeights(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
