// Package events defines the messages pushed to browsers over the
// websocket.
package events

import "time"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeConnection greets a newly connected client.
	MessageTypeConnection MessageType = "connection"

	// MessageTypeRunSnapshot carries the full state of a run. It is the only
	// message used for progress.
	MessageTypeRunSnapshot MessageType = "run:snapshot"
)

// Message is the envelope of every websocket message.
type Message struct {
	Type      MessageType `json:"type"`
	RunID     string      `json:"run_id,omitempty"`
	Status    string      `json:"status,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// ConnectionData is the payload of MessageTypeConnection.
type ConnectionData struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
}
