// Command healthcheck probes the API health endpoint and exits 0 on success.
// It exists for container HEALTHCHECK directives, where a full curl install
// is unwanted.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"
)

const defaultAddr = "127.0.0.1:8090"

func main() {
	if !healthy() {
		os.Exit(1)
	}
}

func healthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "http://" + probeAddr(os.Getenv("ECHOPAD_LISTEN_ADDR")) + "/api/v1/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}

	resp, err := (&http.Client{Timeout: 2 * time.Second}).Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// probeAddr resolves the address to probe. The server may bind 0.0.0.0, but
// the probe runs inside the same container, so loopback is substituted.
func probeAddr(raw string) string {
	if raw == "" {
		return defaultAddr
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultAddr
	}
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
