// Package container wires the reimbursement workflow's components together
// and owns their start-up and shutdown order.
package container

import (
	"fmt"
	"time"
)

// Storage drivers
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// Config holds all configuration for the Container.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Workflow WorkflowConfig
	Storage  StorageConfig
	Lark     LarkConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to the SQLite database file, or ":memory:"
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// WorkflowConfig holds the approval rules that are not fixed by the domain.
type WorkflowConfig struct {
	// ResponseWindow is how long an approver has before the deadline sweep acts
	ResponseWindow time.Duration

	// SweepSchedule is a cron spec such as "@every 30s"
	SweepSchedule string

	OrgCap             float64
	UrgentWindow       time.Duration
	BenefitsDepartment string
}

// StorageConfig selects and configures the blob store.
type StorageConfig struct {
	// Driver is "local" or "s3"
	Driver  string
	BaseDir string
	S3      S3Config
}

// S3Config holds S3-compatible object store settings.
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
}

// LarkConfig holds Lark chat push settings.
type LarkConfig struct {
	Enabled       bool
	AppID         string
	AppSecret     string
	ReceiveIDType string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/reimbursement.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxUploadBytes: 20 << 20,
		},
		Workflow: WorkflowConfig{
			ResponseWindow:     72 * time.Hour,
			SweepSchedule:      "@every 30s",
			OrgCap:             1000.00,
			UrgentWindow:       14 * 24 * time.Hour,
			BenefitsDepartment: "Benefits",
		},
		Storage: StorageConfig{
			Driver:  StorageDriverLocal,
			BaseDir: "data/files",
		},
		Lark: LarkConfig{
			ReceiveIDType: "open_id",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Workflow.ResponseWindow <= 0 {
		return fmt.Errorf("workflow.response_window must be positive")
	}
	if c.Workflow.OrgCap <= 0 {
		return fmt.Errorf("workflow.org_cap must be positive")
	}

	switch c.Storage.Driver {
	case StorageDriverLocal, "":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir is required")
		}
	case StorageDriverS3:
		s3 := c.Storage.S3
		if s3.Endpoint == "" || s3.Bucket == "" {
			return fmt.Errorf("storage.s3.endpoint and storage.s3.bucket are required")
		}
		if s3.AccessKeyID == "" || s3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3 credentials are required")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required")
		}
	}

	return nil
}
