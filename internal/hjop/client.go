// Package hjop keeps a DC-01 connected while an hJOP server reports the
// layout healthy. It polls the server's PT API and feeds the device's host
// liveness with set-state commands.
package hjop

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Defaults for the hJOP PT server.
const (
	DefaultServer = "127.0.0.1"
	DefaultPort   = 5823
)

// ServerStatus is the subset of the PT /status response the watchdog reads.
type ServerStatus struct {
	Trakce struct {
		Emergency bool `json:"emergency"`
	} `json:"trakce"`
}

// Client queries the hJOP PT server.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// NewClient creates a client for server:port. Each request is bounded by
// timeout.
func NewClient(server string, port int, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: "http://" + net.JoinHostPort(server, strconv.Itoa(port)),
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

// Status fetches /status.
func (c *Client) Status(ctx context.Context) (ServerStatus, error) {
	var st ServerStatus
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return st, err
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("PT GET /status", "url", c.baseURL)
	resp, err := c.http.Do(req)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("PT /status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("PT /status: decode: %w", err)
	}
	return st, nil
}

// OK reports whether the server is reachable and not in emergency stop.
func (c *Client) OK(ctx context.Context) bool {
	st, err := c.Status(ctx)
	if err != nil {
		c.log.Info("Unable to read hJOPserver status", "err", err)
		return false
	}
	if st.Trakce.Emergency {
		c.log.Info("hJOP EMERGENCY")
		return false
	}
	c.log.Info("hJOP OK")
	return true
}
