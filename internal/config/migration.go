package config

import (
	"log/slog"
	"strings"

	"github.com/micro-nova/avdecc-fastconnect/internal/models"
)

// migrateSettings fills in default values for fields that are missing or
// invalid in hand-edited or older config files.
func migrateSettings(settings *models.Settings) {
	if strings.TrimSpace(settings.SaveStateFile) == "" {
		slog.Warn("config: empty save_state_file, using default", "default", models.DefaultSaveStateFile)
		settings.SaveStateFile = models.DefaultSaveStateFile
	}
	if settings.RestoreRate <= 0 {
		slog.Warn("config: invalid restore_rate, fixing", "rate", settings.RestoreRate)
		settings.RestoreRate = models.DefaultRestoreRate
	}
	if settings.RestoreBurst < 1 {
		settings.RestoreBurst = models.DefaultRestoreBurst
	}

	// Listener names are the saved-state key, so drop blanks and duplicates
	// and apply the same length cap the saved-state file uses.
	seen := make(map[string]bool, len(settings.Listeners))
	listeners := make([]models.Listener, 0, len(settings.Listeners))
	for i, l := range settings.Listeners {
		name := models.TruncateFriendlyName(strings.TrimSpace(l.FriendlyName))
		if name == "" {
			slog.Warn("config: dropping listener with empty friendly name", "index", i)
			continue
		}
		if seen[name] {
			slog.Warn("config: dropping duplicate listener", "name", name, "index", i)
			continue
		}
		seen[name] = true
		l.FriendlyName = name
		listeners = append(listeners, l)
	}
	settings.Listeners = listeners
}
