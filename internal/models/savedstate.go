// Package models defines the data structures shared by the fast-connect daemon.
// JSON field names follow the AVDECC naming used on the wire.
package models

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// FriendlyNameSize is the buffer size reserved for a listener friendly name,
// including the terminator. Names are capped at FriendlyNameSize-1 bytes.
const FriendlyNameSize = 64

// SavedState associates a listener with the talker it was last connected to
// and the controller that made the connection.
type SavedState struct {
	FriendlyName       string   `json:"friendly_name"`
	TalkerEntityID     EntityID `json:"talker_entity_id"`
	ControllerEntityID EntityID `json:"controller_entity_id"`
}

// Matches reports whether s carries exactly the given identifiers.
func (s SavedState) Matches(talker, controller EntityID) bool {
	return s.TalkerEntityID == talker && s.ControllerEntityID == controller
}

// Listener describes a local AVB listener stream. Only the friendly name is
// used to look up saved state.
type Listener struct {
	FriendlyName string `json:"friendly_name"`
	// StreamUID is informational; it is never part of the saved-state key.
	StreamUID int `json:"stream_uid,omitempty"`
}

// TruncateFriendlyName caps name at FriendlyNameSize-1 bytes without
// splitting a UTF-8 sequence.
func TruncateFriendlyName(name string) string {
	max := FriendlyNameSize - 1
	if len(name) <= max {
		return name
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}

// ValidateFriendlyName rejects names that would not survive a round trip
// through the saved-state file: invalid UTF-8 and control characters,
// line breaks included.
func ValidateFriendlyName(name string) error {
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidName, name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains control character %U", ErrInvalidName, name, r)
		}
	}
	return nil
}
