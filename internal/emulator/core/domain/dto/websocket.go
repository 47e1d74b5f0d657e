package dto

import "encoding/json"

const (
	WSEventAuth          = "auth"
	WSEventFleetSnapshot = "fleet_snapshot"
)

type WSEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type AuthMessage struct {
	Token string `json:"token"`
}

type AuthResult struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message,omitempty"`
}
