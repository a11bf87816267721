package models

// Default settings values.
const (
	DefaultSaveStateFile = "/etc/avdecc/avdecc_save.ini"
	DefaultRestoreRate   = 2 // connections per second
	DefaultRestoreBurst  = 1
)

// Settings is the persisted daemon configuration.
type Settings struct {
	// FastConnectSupported gates every save. With it off, saved state can
	// still be read and cleared but never added.
	FastConnectSupported bool `json:"fast_connect_supported"`
	// SaveStateFile may carry a ",override" suffix; only the part before
	// the first comma names the file.
	SaveStateFile string `json:"save_state_file"`
	// StrictPersist rolls back in-memory changes when the file write fails.
	StrictPersist bool       `json:"strict_persist"`
	RestoreRate   float64    `json:"restore_rate"`
	RestoreBurst  int        `json:"restore_burst"`
	Listeners     []Listener `json:"listeners"`
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() Settings {
	return Settings{
		FastConnectSupported: true,
		SaveStateFile:        DefaultSaveStateFile,
		RestoreRate:          DefaultRestoreRate,
		RestoreBurst:         DefaultRestoreBurst,
		Listeners:            []Listener{},
	}
}

// DeepCopy returns a copy of s that shares no slices with it.
func (s Settings) DeepCopy() Settings {
	cp := s
	cp.Listeners = append([]Listener(nil), s.Listeners...)
	if cp.Listeners == nil {
		cp.Listeners = []Listener{}
	}
	return cp
}

// Listener returns the configured listener with the given friendly name.
func (s Settings) Listener(name string) (Listener, bool) {
	for _, l := range s.Listeners {
		if l.FriendlyName == name {
			return l, true
		}
	}
	return Listener{}, false
}
