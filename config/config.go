// Package config resolves the host configuration from, in increasing order
// of precedence: built-in defaults, a YAML file, environment variables and
// command-line flags.
package config

import (
	"fmt"
	"os"
	"strconv"

	"excalidraw-desktop/dialogs"
	"excalidraw-desktop/stores"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const EnvConfigFile = "EXCALIDRAW_CONFIG"

type Config struct {
	Listen     string        `yaml:"listen"`
	LogLevel   string        `yaml:"log_level"`
	LogFile    string        `yaml:"log_file"`
	Dev        bool          `yaml:"dev"`
	Dialogs    string        `yaml:"dialogs"`
	DefaultDir string        `yaml:"default_dir"`
	Storage    stores.Config `yaml:"storage"`
}

func Default() Config {
	return Config{
		Listen:   "127.0.0.1:3002",
		LogLevel: "info",
		Dialogs:  dialogs.KindNative,
	}
}

// FromArgs builds the configuration for a run with the given command-line
// arguments (without the program name). It returns pflag.ErrHelp when help
// was requested.
func FromArgs(args []string, lookupEnv func(string) (string, bool)) (Config, *pflag.FlagSet, error) {
	fs := pflag.NewFlagSet("excalidraw-desktop", pflag.ContinueOnError)
	configFile := fs.String("config", "", "path to a YAML config file")
	listen := fs.String("listen", "", "address the bridge listens on")
	logLevel := fs.String("loglevel", "", "logging level: debug, info, warn, error, fatal, panic")
	logFile := fs.String("log-file", "", "also write logs to this file, rotated")
	dev := fs.Bool("dev", false, "development mode: relaxed CORS, no capability token, debug logging")
	dialogKind := fs.String("dialogs", "", "file dialogs: native, accept-default or none")
	defaultDir := fs.String("default-dir", "", "directory the save dialog opens in")
	storageType := fs.String("storage-type", "", "recent files storage: memory or sqlite")
	dataSourceName := fs.String("data-source-name", "", "sqlite database for recent files")
	backupType := fs.String("backup-type", "", "backup mirror: none, filesystem or s3")

	if err := fs.Parse(args); err != nil {
		return Config{}, fs, err
	}

	cfg := Default()

	path := *configFile
	if path == "" {
		path, _ = lookupEnv(EnvConfigFile)
	}
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, fs, err
		}
	}

	if err := applyEnv(&cfg, lookupEnv); err != nil {
		return Config{}, fs, err
	}

	if fs.Changed("listen") {
		cfg.Listen = *listen
	}
	if fs.Changed("loglevel") {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("log-file") {
		cfg.LogFile = *logFile
	}
	if fs.Changed("dev") {
		cfg.Dev = *dev
	}
	if fs.Changed("dialogs") {
		cfg.Dialogs = *dialogKind
	}
	if fs.Changed("default-dir") {
		cfg.DefaultDir = *defaultDir
	}
	if fs.Changed("storage-type") {
		cfg.Storage.StorageType = *storageType
	}
	if fs.Changed("data-source-name") {
		cfg.Storage.DataSourceName = *dataSourceName
	}
	if fs.Changed("backup-type") {
		cfg.Storage.BackupType = *backupType
	}

	return cfg, fs, cfg.Validate()
}

// LoadFile merges the YAML file at path into cfg. Keys absent from the file
// keep their current value.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookupEnv func(string) (string, bool)) error {
	strs := map[string]*string{
		"EXCALIDRAW_LISTEN":      &cfg.Listen,
		"EXCALIDRAW_LOG_LEVEL":   &cfg.LogLevel,
		"EXCALIDRAW_LOG_FILE":    &cfg.LogFile,
		"EXCALIDRAW_DIALOGS":     &cfg.Dialogs,
		"EXCALIDRAW_DEFAULT_DIR": &cfg.DefaultDir,
		"STORAGE_TYPE":           &cfg.Storage.StorageType,
		"DATA_SOURCE_NAME":       &cfg.Storage.DataSourceName,
		"BACKUP_TYPE":            &cfg.Storage.BackupType,
		"LOCAL_BACKUP_PATH":      &cfg.Storage.LocalBackupPath,
		"S3_BUCKET_NAME":         &cfg.Storage.S3BucketName,
		"S3_PREFIX":              &cfg.Storage.S3Prefix,
	}
	for key, dst := range strs {
		if v, ok := lookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookupEnv("EXCALIDRAW_DEV"); ok && v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("EXCALIDRAW_DEV: %w", err)
		}
		cfg.Dev = dev
	}
	return nil
}

func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch c.Dialogs {
	case dialogs.KindNative, dialogs.KindAcceptDefault, dialogs.KindNone:
	default:
		return fmt.Errorf("unknown dialogs kind %q", c.Dialogs)
	}
	return nil
}
