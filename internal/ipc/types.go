package ipc

import "switchscan/internal/messenger"

// ServiceName is the JSON-RPC namespace for every method.
const ServiceName = "Switchscan"

// StatusRequest fetches the app status.
type StatusRequest struct {
	RequestID string `json:"request_id"`
}

// StatusResponse is the app status snapshot.
type StatusResponse struct {
	RequestID string `json:"request_id"`
	messenger.Status
}

// ThreadsRequest lists threads in display order.
type ThreadsRequest struct {
	RequestID string `json:"request_id"`
}

// ThreadsResponse contains the channel list rows.
type ThreadsResponse struct {
	RequestID string                 `json:"request_id"`
	Threads   []messenger.ThreadInfo `json:"threads"`
}

// SayRequest narrates text, interrupting current speech.
type SayRequest struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
}

// SayResponse acknowledges a narration request.
type SayResponse struct {
	RequestID string `json:"request_id"`
	Queued    bool   `json:"queued"`
}

// HaltRequest stops speech and drops pending text.
type HaltRequest struct {
	RequestID string `json:"request_id"`
}

// HaltResponse acknowledges a halt.
type HaltResponse struct {
	RequestID string `json:"request_id"`
}

// SignalRequest injects a scan action such as "advance-short" or
// "activate-long".
type SignalRequest struct {
	RequestID string `json:"request_id"`
	Action    string `json:"action"`
}

// SignalResponse acknowledges an injected action.
type SignalResponse struct {
	RequestID string `json:"request_id"`
	Accepted  bool   `json:"accepted"`
}

// StopRequest asks the app to shut down.
type StopRequest struct {
	RequestID string `json:"request_id"`
}

// StopResponse indicates the stop result.
type StopResponse struct {
	RequestID string `json:"request_id"`
	Stopped   bool   `json:"stopped"`
}
