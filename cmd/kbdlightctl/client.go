package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Wire types (duplicated from kbdlightd for a standalone binary).

type requestEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type setBrightnessData struct {
	Value uint64 `json:"value"`
}

type statusReport struct {
	Brightness    uint64    `json:"brightness"`
	Original      uint64    `json:"original"`
	LastActivity  time.Time `json:"last_activity"`
	IdleTimeoutMs int64     `json:"idle_timeout_ms"`
	Devices       []string  `json:"devices"`
}

type ipcResponse struct {
	Status string        `json:"status"`
	Error  string        `json:"error,omitempty"`
	State  *statusReport `json:"state,omitempty"`
}

// newRequest builds an envelope; data may be nil.
func newRequest(typ string, data any) (requestEnvelope, error) {
	env := requestEnvelope{Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return env, fmt.Errorf("marshal %s data: %w", typ, err)
		}
		env.Data = raw
	}
	return env, nil
}

// sendRequest sends one request line to the daemon and decodes the reply.
func sendRequest(socketPath string, timeout time.Duration, req requestEnvelope) (*statusReport, error) {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	line, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	if _, err := fmt.Fprintf(conn, "%s\n", line); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var resp ipcResponse
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return resp.State, nil
}
