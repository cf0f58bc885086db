// Package conf holds the application configuration, loaded from config.yaml
// and environment variables via viper.
package conf

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// RotationType defines the log rotation strategy
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// LogConfig holds settings for a rotating log file
type LogConfig struct {
	Enabled  bool         // true to enable this log
	Path     string       // path to log file
	Rotation RotationType // daily, weekly or size
	MaxSize  int64        // max size in bytes for RotationSize
}

// MainSettings are application wide settings
type MainSettings struct {
	Name string    // node name, used to identify the source of observations
	Log  LogConfig // main log settings
}

// SQLiteSettings holds SQLite output settings
type SQLiteSettings struct {
	Enabled bool   // true to enable SQLite
	Path    string // path to the database file
}

// MySQLSettings holds MySQL output settings
type MySQLSettings struct {
	Enabled  bool   // true to enable MySQL
	Username string // MySQL username
	Password string // MySQL password
	Host     string // MySQL host
	Port     string // MySQL port
	Database string // MySQL database name
}

// OutputSettings selects and configures the relational store
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// ImportSettings control the CSV import pipeline
type ImportSettings struct {
	DataDir         string // directory holding species.csv, research.csv, records.csv
	Workers         int    // row processing workers, 1 means strictly sequential
	Dedupe          bool   // skip rows whose content fingerprint was already imported
	ErrorReportPath string // where the per-run rejected row report is written
}

// Settings is the root configuration type
type Settings struct {
	Debug bool // true to enable debug logging

	Main   MainSettings
	Output OutputSettings
	Import ImportSettings
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new
// Settings instance and installs it as the global one.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// LoadFile reads a specific configuration file into settings, replacing the
// values loaded from the default search paths. Used by the --config flag;
// settings keeps its identity so references held by subcommands stay valid.
func LoadFile(path string, settings *Settings) error {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	if err := ValidateSettings(settings); err != nil {
		return fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config file is fine, defaults plus flags apply.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the config file search paths in priority order:
// current working directory first, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "antdb-go"))
	}
	return paths, nil
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// DumpYAML marshals the effective settings to YAML for the config subcommand.
func DumpYAML(settings *Settings) ([]byte, error) {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return data, nil
}

// GetBasePath ensures path exists relative to the working directory and
// returns it. Used to resolve the SQLite database location.
func GetBasePath(path string) string {
	if path == "" {
		return "."
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		log.Printf("failed to create directory %s: %v", path, err)
	}
	return path
}
