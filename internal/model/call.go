// Package model defines data structures for the voice reservation line.
package model

import (
	"time"
)

// SessionState represents the lifecycle state of a call session.
type SessionState string

const (
	SessionAwaitingStart SessionState = "awaiting_start"
	SessionActive        SessionState = "active"
	SessionClosing       SessionState = "closing"
	SessionClosed        SessionState = "closed"
)

// DialoutRequest is the request to place an outbound call.
type DialoutRequest struct {
	ToNumber   string `json:"to_number"`
	FromNumber string `json:"from_number"`
}

// DialoutResponse is the response after initiating a call.
type DialoutResponse struct {
	CallID   string `json:"call_id"`
	Status   string `json:"status"`
	ToNumber string `json:"to_number"`
}

// CallSession describes one live media stream tied to one phone call.
// It is created when the stream's start event arrives and discarded when
// the stream stops.
type CallSession struct {
	SessionID  string       `json:"session_id"`
	StreamSID  string       `json:"stream_sid"`
	CallSID    string       `json:"call_sid"`
	ToNumber   string       `json:"to_number"`
	FromNumber string       `json:"from_number"`
	StartedAt  time.Time    `json:"started_at"`
	State      SessionState `json:"state"`
}
