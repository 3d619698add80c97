package config

import (
	"github.com/garyjia/training-reimbursement/internal/container"
)

// ToContainerConfig converts the file-based Config loaded by viper into
// the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			MaxUploadBytes: c.Server.MaxUploadBytes,
		},
		Workflow: container.WorkflowConfig{
			ResponseWindow:     c.Workflow.ResponseWindow,
			SweepSchedule:      c.Workflow.SweepSchedule,
			OrgCap:             c.Workflow.OrgCap,
			UrgentWindow:       c.Workflow.UrgentWindow,
			BenefitsDepartment: c.Workflow.BenefitsDepartment,
		},
		Storage: container.StorageConfig{
			Driver:  c.Storage.Driver,
			BaseDir: c.Storage.BaseDir,
			S3: container.S3Config{
				Endpoint:        c.Storage.S3.Endpoint,
				AccessKeyID:     c.Storage.S3.AccessKeyID,
				SecretAccessKey: c.Storage.S3.SecretAccessKey,
				Bucket:          c.Storage.S3.Bucket,
				Region:          c.Storage.S3.Region,
				UseSSL:          c.Storage.S3.UseSSL,
			},
		},
		Lark: container.LarkConfig{
			Enabled:       c.Lark.Enabled,
			AppID:         c.Lark.AppID,
			AppSecret:     c.Lark.AppSecret,
			ReceiveIDType: c.Lark.ReceiveIDType,
		},
	}
}
