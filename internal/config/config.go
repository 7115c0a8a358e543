package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// SQLite
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID string
	RecordsSheetName    string
	BackupSheetName     string

	// Receipt storage (Google Drive); empty folder means Drive root.
	ReceiptFolderID string
	ReceiptsEnabled bool

	// Participants: the fixed set of users selectable in the form. The
	// selection is a client-side identity, not a credential.
	Users []string

	// Ledger read cache
	CacheTTL time.Duration
}

// DefaultUsers is the household list used when USERS is not set.
var DefaultUsers = []string{"梅三", "真由美", "悠斗", "淳斗"}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		RecordsSheetName:    getEnv("RECORDS_SHEET_NAME", "Records"),
		BackupSheetName:     getEnv("BACKUP_SHEET_NAME", "Backup"),

		ReceiptFolderID: getEnv("RECEIPT_FOLDER_ID", ""),
		ReceiptsEnabled: getEnvBool("RECEIPTS_ENABLED", false),

		Users:    getEnvList("USERS", DefaultUsers),
		CacheTTL: getEnvDuration("CACHE_TTL", 60*time.Second),
	}
	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sheets", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.RecordsSheetName == "" {
			errors = append(errors, "records sheet name cannot be empty")
		}
		if c.BackupSheetName == "" {
			errors = append(errors, "backup sheet name cannot be empty")
		}
		if c.RecordsSheetName != "" && c.RecordsSheetName == c.BackupSheetName {
			errors = append(errors, "records and backup sheets must differ")
		}
	}

	if len(c.Users) == 0 {
		errors = append(errors, "user list cannot be empty")
	}
	for _, u := range c.Users {
		if strings.TrimSpace(u) == "" {
			errors = append(errors, "user list contains a blank entry")
			break
		}
	}

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	} else if c.CacheTTL > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 1 hour", c.CacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// IsKnownUser reports whether name is in the configured participant list.
func (c *Config) IsKnownUser(name string) bool {
	for _, u := range c.Users {
		if u == name {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
