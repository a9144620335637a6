// Package config loads accounts and global settings from a dotenv file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/cyp0633/calsync/davclient"
	"github.com/joho/godotenv"
)

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Global keys.
const (
	KeyICSFileName  = "ICS_FILE_NAME"
	KeyDataDir      = "DATA_DIR"
	KeySyncSchedule = "SYNC_SCHEDULE"
	KeyLogLevel     = "LOG_LEVEL"
)

const (
	DefaultDataDir      = "."
	DefaultSyncSchedule = "@every 1h"
	DefaultLogLevel     = "info"
)

// Config is the parsed configuration file. Accounts keep the order of
// davclient.Kinds.
type Config struct {
	Accounts     []davclient.Account
	ICSFileName  string
	DataDir      string
	SyncSchedule string
	LogLevel     string

	windows map[davclient.Kind]davclient.Window
	values  map[string]string
}

// Load reads path without touching the process environment. An account of
// kind K is configured only when K_ACCOUNT_NAME, K_USERNAME, K_PASSWORD and
// K_URL are all non-empty.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return FromMap(values), nil
}

// FromMap builds a Config from already parsed key-value pairs.
func FromMap(values map[string]string) *Config {
	cfg := &Config{
		ICSFileName:  strings.TrimSpace(values[KeyICSFileName]),
		DataDir:      valueOr(values, KeyDataDir, DefaultDataDir),
		SyncSchedule: valueOr(values, KeySyncSchedule, DefaultSyncSchedule),
		LogLevel:     strings.ToLower(valueOr(values, KeyLogLevel, DefaultLogLevel)),
		windows:      make(map[davclient.Kind]davclient.Window),
		values:       values,
	}

	for _, kind := range davclient.Kinds() {
		prefix := strings.ToUpper(string(kind)) + "_"
		acc := davclient.Account{
			Kind:        kind,
			Name:        strings.TrimSpace(values[prefix+"ACCOUNT_NAME"]),
			Username:    strings.TrimSpace(values[prefix+"USERNAME"]),
			Password:    values[prefix+"PASSWORD"],
			URLTemplate: strings.TrimSpace(values[prefix+"URL"]),
		}
		if acc.Name != "" && acc.Username != "" && acc.Password != "" && acc.URLTemplate != "" {
			cfg.Accounts = append(cfg.Accounts, acc)
		}
		cfg.windows[kind] = davclient.Window{
			PastDays:   days(values[prefix+"SYNC_DAYS_PAST"]),
			FutureDays: days(values[prefix+"SYNC_DAYS_FUTURE"]),
		}
	}
	return cfg
}

// days parses a window override. Anything but a non-negative integer falls
// back to the default.
func days(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return davclient.DefaultWindowDays
	}
	return n
}

func valueOr(values map[string]string, key, def string) string {
	if v := strings.TrimSpace(values[key]); v != "" {
		return v
	}
	return def
}

// Get returns a raw configuration value, or def when it is unset.
func (c *Config) Get(key, def string) string {
	return valueOr(c.values, key, def)
}

// Window returns the sync window configured for kind.
func (c *Config) Window(kind davclient.Kind) davclient.Window {
	if w, ok := c.windows[kind]; ok {
		return w
	}
	return davclient.DefaultWindow()
}

// AccountByKind returns the first account of kind.
func (c *Config) AccountByKind(kind davclient.Kind) (davclient.Account, bool) {
	kind = davclient.Kind(strings.ToLower(string(kind)))
	for _, acc := range c.Accounts {
		if acc.Kind == kind {
			return acc, true
		}
	}
	return davclient.Account{}, false
}

// AccountByName returns the account with the given display name.
func (c *Config) AccountByName(name string) (davclient.Account, bool) {
	for _, acc := range c.Accounts {
		if acc.Name == name {
			return acc, true
		}
	}
	return davclient.Account{}, false
}

// Kinds returns the kinds that have a configured account, in order.
func (c *Config) Kinds() []davclient.Kind {
	var kinds []davclient.Kind
	for _, acc := range c.Accounts {
		if len(kinds) == 0 || kinds[len(kinds)-1] != acc.Kind {
			kinds = append(kinds, acc.Kind)
		}
	}
	return kinds
}
