package stores

import (
	"context"
	"fmt"

	"excalidraw-desktop/core"
	"excalidraw-desktop/stores/aws"
	"excalidraw-desktop/stores/filesystem"
	"excalidraw-desktop/stores/memory"
	"excalidraw-desktop/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// Config selects the recent-files registry and the backup mirror.
type Config struct {
	StorageType     string `yaml:"storage_type"`
	DataSourceName  string `yaml:"data_source_name"`
	BackupType      string `yaml:"backup_type"`
	LocalBackupPath string `yaml:"local_backup_path"`
	S3BucketName    string `yaml:"s3_bucket_name"`
	S3Prefix        string `yaml:"s3_prefix"`
}

func GetRegistry(cfg Config) (core.RecentRegistry, error) {
	storageField := logrus.Fields{
		"storageType": cfg.StorageType,
	}

	var registry core.RecentRegistry
	switch cfg.StorageType {
	case "sqlite":
		dataSourceName := cfg.DataSourceName
		if dataSourceName == "" {
			dataSourceName = "excalidraw-desktop.db"
		}
		storageField["dataSourceName"] = dataSourceName
		storageField["cgo"] = sqlite.CGOEnabled
		store, err := sqlite.NewRecentRegistry(dataSourceName)
		if err != nil {
			return nil, err
		}
		registry = store
	case "", "memory":
		registry = memory.NewRecentRegistry()
		storageField["storageType"] = "in-memory"
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}

	logrus.WithFields(storageField).Info("Use recent files storage")
	return registry, nil
}

// GetMirror returns nil when backups are disabled.
func GetMirror(ctx context.Context, cfg Config) (core.Mirror, error) {
	backupField := logrus.Fields{
		"backupType": cfg.BackupType,
	}

	var mirror core.Mirror
	switch cfg.BackupType {
	case "", "none":
		logrus.Info("Backups disabled")
		return nil, nil
	case "filesystem":
		basePath := cfg.LocalBackupPath
		if basePath == "" {
			basePath = "./backups"
		}
		backupField["basePath"] = basePath
		m, err := filesystem.NewMirror(basePath)
		if err != nil {
			return nil, err
		}
		mirror = m
	case "s3":
		backupField["bucketName"] = cfg.S3BucketName
		backupField["prefix"] = cfg.S3Prefix
		m, err := aws.NewMirror(ctx, cfg.S3BucketName, cfg.S3Prefix)
		if err != nil {
			return nil, err
		}
		mirror = m
	default:
		return nil, fmt.Errorf("unknown backup type %q", cfg.BackupType)
	}

	logrus.WithFields(backupField).Info("Use backup mirror")
	return mirror, nil
}
