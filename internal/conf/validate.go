package conf

import (
	"fmt"
)

// ValidateSettings rejects configurations the rest of the application cannot
// act on. Called from Load before the settings instance is installed.
func ValidateSettings(settings *Settings) error {
	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return fmt.Errorf("no database enabled, enable either output.sqlite or output.mysql")
	}

	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		return fmt.Errorf("output.sqlite.path must not be empty")
	}

	if settings.Output.MySQL.Enabled {
		if settings.Output.MySQL.Host == "" || settings.Output.MySQL.Database == "" {
			return fmt.Errorf("output.mysql requires host and database")
		}
	}

	if settings.Import.Workers < 1 {
		return fmt.Errorf("import.workers must be at least 1, got %d", settings.Import.Workers)
	}

	return nil
}
