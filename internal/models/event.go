package models

// Event types published on the bus.
const (
	EventSaved    = "saved"
	EventCleared  = "cleared"
	EventDeleted  = "deleted"
	EventRestored = "restored"
	EventSettings = "settings"
	EventSnapshot = "snapshot"
)

// Event is a change notification delivered to SSE subscribers.
type Event struct {
	Type         string       `json:"type"`
	FriendlyName string       `json:"friendly_name,omitempty"`
	SavedStates  []SavedState `json:"saved_states"`
}

// Info is the system information returned by /api/info.
type Info struct {
	Hostname             string `json:"hostname"`
	Version              string `json:"version"`
	SaveStateFile        string `json:"save_state_file"`
	FastConnectSupported bool   `json:"fast_connect_supported"`
	SavedStates          int    `json:"saved_states"`
	Capacity             int    `json:"capacity"`
}
