package dto

import "encoding/json"

const MessageTypeSimulatorConfig = "isuride.simulator.config"

// ConfigMessage is the typed envelope pushed to the fleet, on the bus or over
// the control API.
type ConfigMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SimulatorConfigPayload struct {
	GhostChairEnabled *bool `json:"ghostChairEnabled,omitempty"`
}
