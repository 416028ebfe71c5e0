// Package remote benchmarks an out-of-process simulator service over HTTP.
// This is how frameworks that cannot run in-process (qiskit, cirq and
// friends behind a thin bridge) join the evaluation matrix.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quafel/quafel/internal/config"
	"github.com/quafel/quafel/internal/ctxlog"
	"github.com/quafel/quafel/internal/registry"
)

const defaultTimeout = 30 * time.Second

// Module implements the registry.Module interface for this package.
type Module struct{}

type framework struct {
	endpoint string
	client   *http.Client
}

// simulateRequest is the wire format POSTed to <endpoint>/simulate.
type simulateRequest struct {
	QASM  string `json:"qasm"`
	Shots int    `json:"shots"`
	Seed  int64  `json:"seed"`
}

// simulateResponse is the expected reply.
type simulateResponse struct {
	Counts map[string]int `json:"counts"`
}

func newFramework(cfg *config.Framework) (registry.Framework, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("remote framework %q requires an endpoint", cfg.Name)
	}

	timeout := defaultTimeout
	if raw, ok := cfg.Options["timeout"]; ok {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("remote framework %q: bad timeout %q: %w", cfg.Name, raw, err)
		}
		timeout = parsed
	}

	return &framework{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

func (f *framework) Name() string { return "remote" }

func (f *framework) Run(ctx context.Context, qasm string, shots int, seed int64) (map[string]int, error) {
	logger := ctxlog.FromContext(ctx).With("adapter", "remote", "endpoint", f.endpoint)

	body, err := json.Marshal(simulateRequest{QASM: qasm, Shots: shots, Seed: seed})
	if err != nil {
		return nil, fmt.Errorf("failed to encode simulate request: %w", err)
	}

	url := f.endpoint + "/simulate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create simulate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("Submitting circuit to remote simulator.", "shots", shots)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("simulate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("remote simulator returned %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded simulateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode simulate response: %w", err)
	}
	if len(decoded.Counts) == 0 {
		return nil, fmt.Errorf("remote simulator returned no counts")
	}

	return decoded.Counts, nil
}

// Register registers the adapter factory with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFramework("remote", newFramework)
}
