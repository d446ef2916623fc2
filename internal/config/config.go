package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendMongoDB   = "mongodb"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	MongoDB   MongoDBConfig   `yaml:"mongodb"`
	Firestore FirestoreConfig `yaml:"firestore"`
	Sheets    SheetsConfig    `yaml:"sheets"`
	Export    ExportConfig    `yaml:"export"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Timezone  string          `yaml:"timezone"`
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// LogConfig holds the zap level name.
type LogConfig struct {
	Level string `yaml:"level"`
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI        string `yaml:"uri"`
	DBName     string `yaml:"db_name"`
	Collection string `yaml:"collection"`
}

// FirestoreConfig contains the project and credentials for the Firestore REST API.
type FirestoreConfig struct {
	BaseURL    string `yaml:"base_url"`
	ProjectID  string `yaml:"project_id"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
}

// SheetsConfig contains configuration required to interact with Google Sheets.
// Export is disabled when SpreadsheetID is empty.
type SheetsConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	Range           string `yaml:"range"`
}

// ExportConfig holds scheduler-related settings.
type ExportConfig struct {
	CronSchedule string `yaml:"cron_schedule"`
}

// WorkspaceConfig bounds how long idle sessions and list views are kept.
type WorkspaceConfig struct {
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// Enabled reports whether a spreadsheet export target is configured.
func (s SheetsConfig) Enabled() bool {
	return s.SpreadsheetID != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance. When APP_CONFIG_FILE names a YAML file its
// values act as defaults beneath the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	cfg := defaults()

	if path := os.Getenv("APP_CONFIG_FILE"); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Log:    LogConfig{Level: "info"},
		Store:  StoreConfig{Backend: BackendMongoDB},
		MongoDB: MongoDBConfig{
			URI:        "mongodb://localhost:27017",
			DBName:     "truck_maintenance",
			Collection: "records",
		},
		Firestore: FirestoreConfig{
			BaseURL:    "https://firestore.googleapis.com/v1",
			Collection: "records",
		},
		Sheets:    SheetsConfig{Range: "Records!A:I"},
		Export:    ExportConfig{CronSchedule: "0 1 * * *"},
		Workspace: WorkspaceConfig{IdleTTL: 30 * time.Minute},
		Timezone:  "Asia/Tokyo",
	}
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Server.Port = getenvWithDefault("APP_PORT", cfg.Server.Port)
	cfg.Log.Level = getenvWithDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Timezone = getenvWithDefault("TIMEZONE", cfg.Timezone)
	cfg.Store.Backend = getenvWithDefault("STORE_BACKEND", cfg.Store.Backend)

	cfg.MongoDB.URI = getenvWithDefault("MONGODB_URI", cfg.MongoDB.URI)
	cfg.MongoDB.DBName = getenvWithDefault("MONGODB_DB_NAME", cfg.MongoDB.DBName)
	cfg.MongoDB.Collection = getenvWithDefault("MONGODB_COLLECTION", cfg.MongoDB.Collection)

	cfg.Firestore.BaseURL = getenvWithDefault("FIRESTORE_BASE_URL", cfg.Firestore.BaseURL)
	cfg.Firestore.ProjectID = getenvWithDefault("FIRESTORE_PROJECT_ID", cfg.Firestore.ProjectID)
	cfg.Firestore.APIKey = getenvWithDefault("FIRESTORE_API_KEY", cfg.Firestore.APIKey)
	cfg.Firestore.Collection = getenvWithDefault("FIRESTORE_COLLECTION", cfg.Firestore.Collection)

	cfg.Sheets.CredentialsPath = getenvWithDefault("GOOGLE_SHEETS_CREDENTIALS_PATH", cfg.Sheets.CredentialsPath)
	cfg.Sheets.SpreadsheetID = getenvWithDefault("GOOGLE_SHEET_DATABASE_ID", cfg.Sheets.SpreadsheetID)
	cfg.Sheets.Range = getenvWithDefault("SHEETS_EXPORT_RANGE", cfg.Sheets.Range)
	cfg.Export.CronSchedule = getenvWithDefault("EXPORT_CRON_SCHEDULE", cfg.Export.CronSchedule)

	if raw := os.Getenv("WORKSPACE_IDLE_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid WORKSPACE_IDLE_TTL: %w", err)
		}
		cfg.Workspace.IdleTTL = ttl
	}

	return nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	switch c.Store.Backend {
	case BackendMongoDB:
		switch {
		case c.MongoDB.URI == "":
			return errors.New("MONGODB_URI must be provided")
		case c.MongoDB.DBName == "":
			return errors.New("MONGODB_DB_NAME must be provided")
		case c.MongoDB.Collection == "":
			return errors.New("MONGODB_COLLECTION must not be empty")
		}
	case BackendFirestore:
		switch {
		case c.Firestore.ProjectID == "":
			return errors.New("FIRESTORE_PROJECT_ID must be provided")
		case c.Firestore.BaseURL == "":
			return errors.New("FIRESTORE_BASE_URL must not be empty")
		case c.Firestore.Collection == "":
			return errors.New("FIRESTORE_COLLECTION must not be empty")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.Store.Backend)
	}

	if c.Sheets.Enabled() {
		if c.Sheets.CredentialsPath == "" {
			return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided when GOOGLE_SHEET_DATABASE_ID is set")
		}
		if c.Sheets.Range == "" {
			return errors.New("SHEETS_EXPORT_RANGE must not be empty")
		}
		if c.Export.CronSchedule == "" {
			return errors.New("EXPORT_CRON_SCHEDULE must be provided")
		}
	}

	if c.Workspace.IdleTTL <= 0 {
		return errors.New("WORKSPACE_IDLE_TTL must be positive")
	}

	return nil
}

// Location returns the configured time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
