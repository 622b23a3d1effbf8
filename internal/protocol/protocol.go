package protocol

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeLog carries one formatted log line
	TypeLog MessageType = "log"

	// TypeProgress is sent after every dispatched playback event
	TypeProgress MessageType = "progress"

	// TypeState is sent whenever recording or playback starts or stops
	TypeState MessageType = "state"

	// TypePing can be used for application-level heartbeats if needed
	TypePing MessageType = "ping"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// LogPayload is the payload for TypeLog
type LogPayload struct {
	Level string `json:"level"`
	Line  string `json:"line"`
}

// ProgressPayload is the payload for TypeProgress
type ProgressPayload struct {
	Session string `json:"session"`
	Index   int    `json:"index"`
	Event   string `json:"event"`
	Error   string `json:"error,omitempty"`
}

// StatePayload is the payload for TypeState and the body of GET /api/status
type StatePayload struct {
	Recording   bool   `json:"recording"`
	Playing     bool   `json:"playing"`
	HasLog      bool   `json:"has_log"`
	EventCount  int    `json:"event_count"`
	RecordingID string `json:"recording_id,omitempty"`
	RecordedAt  string `json:"recorded_at,omitempty"`
}
