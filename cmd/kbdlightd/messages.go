package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// Control Requests
// ============================================================================
// Requests arrive on the control socket wrapped in a RequestEnvelope:
//   {"type": "set_brightness", "data": {"value": 2}}
// ============================================================================

// Request is a marker interface for control socket requests.
type Request interface {
	requestMarker()
}

// StatusRequest asks for the current state.
type StatusRequest struct{}

func (StatusRequest) requestMarker() {}

// SetBrightnessRequest writes an explicit brightness value.
type SetBrightnessRequest struct {
	Value *uint64 `json:"value"`
}

func (SetBrightnessRequest) requestMarker() {}

// WakeRequest counts as input activity.
type WakeRequest struct{}

func (WakeRequest) requestMarker() {}

// DimRequest turns the backlight off now, regardless of the idle clock.
type DimRequest struct{}

func (DimRequest) requestMarker() {}

// RequestEnvelope wraps a request with a type discriminator.
type RequestEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalRequest decodes one JSON envelope into a concrete Request.
func UnmarshalRequest(data []byte) (Request, error) {
	var env RequestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "status":
		return StatusRequest{}, nil

	case "set_brightness":
		var r SetBrightnessRequest
		if len(env.Data) == 0 {
			return nil, fmt.Errorf("set_brightness: missing data")
		}
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal SetBrightnessRequest: %w", err)
		}
		if r.Value == nil {
			return nil, fmt.Errorf("set_brightness: missing value")
		}
		return r, nil

	case "wake":
		return WakeRequest{}, nil

	case "dim":
		return DimRequest{}, nil

	case "":
		return nil, fmt.Errorf("missing request type")

	default:
		return nil, fmt.Errorf("unknown request type: %s", env.Type)
	}
}

// MarshalRequest encodes a Request into its JSON envelope.
func MarshalRequest(r Request) ([]byte, error) {
	var typ string
	switch r.(type) {
	case StatusRequest:
		typ = "status"
	case SetBrightnessRequest:
		typ = "set_brightness"
	case WakeRequest:
		typ = "wake"
	case DimRequest:
		typ = "dim"
	default:
		return nil, fmt.Errorf("unknown request %T", r)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return json.Marshal(RequestEnvelope{Type: typ, Data: data})
}

// ============================================================================
// Responses
// ============================================================================

// StatusReport is the state returned by "status" and GET /status.
type StatusReport struct {
	Brightness    uint64    `json:"brightness"`
	Original      uint64    `json:"original"`
	LastActivity  time.Time `json:"last_activity"`
	IdleTimeoutMs int64     `json:"idle_timeout_ms"`
	Devices       []string  `json:"devices"`
}

// IPCResponse is sent back for every request line.
type IPCResponse struct {
	Status string        `json:"status"`          // "ok" or "error"
	Error  string        `json:"error,omitempty"` // set when Status == "error"
	State  *StatusReport `json:"state,omitempty"`
}
